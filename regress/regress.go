// Package regress fits the delta model: Δcases regressed on Δindex with an intercept.
package regress

import (
	"errors"
	"fmt"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/delta"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/models"
)

var (
	ErrInsufficientData = errors.New("insufficient data to fit the delta model")
	ErrDegenerateFit    = errors.New("delta model cannot be solved")
)

// MinObservations is the fewest raw rows a dataset needs before a fit is attempted.
const MinObservations = 3

// Coefficients are the intercept (alpha) and slope (beta) of the delta model.
type Coefficients struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Result is a successful fit along with the sizes it was computed from.
type Result struct {
	Coefficients
	Observations  int `json:"observations"`
	TrainingPairs int `json:"training_pairs"`
}

// Fit runs the delta transform and the single predictor regression. The row count threshold is
// checked before anything else, independently of how many training pairs survive. minObs values
// below MinObservations are raised to it.
func Fit(ds *dataset.Dataset, minObs int) (Result, error) {
	if minObs < MinObservations {
		minObs = MinObservations
	}
	n := ds.Len()
	if n < minObs {
		return Result{}, fmt.Errorf("have %d observations, need at least %d, %w", n, minObs, ErrInsufficientData)
	}

	pairs := delta.TrainingPairs(ds)
	if len(pairs) == 0 {
		return Result{}, fmt.Errorf("no complete delta pairs in %d observations, %w", n, ErrInsufficientData)
	}

	x, y := delta.Split(pairs)
	model := models.NewSimpleRegression()
	if err := model.FitSlices(x, y); err != nil {
		return Result{}, fmt.Errorf("%w, %w", ErrDegenerateFit, err)
	}

	return Result{
		Coefficients: Coefficients{
			Alpha: model.Intercept(),
			Beta:  model.Coef()[0],
		},
		Observations:  n,
		TrainingPairs: len(pairs),
	}, nil
}

// NotReady reports whether err means the model could not be fit from the data, as opposed to an
// unexpected failure.
func NotReady(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDegenerateFit)
}
