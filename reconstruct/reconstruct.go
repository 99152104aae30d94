// Package reconstruct replays a fitted delta model over the historical weeks and projects the next
// week's case count.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/delta"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
)

var (
	ErrEmptyDataset = errors.New("no observations to forecast from")
	ErrNoLastCases  = errors.New("latest week has no reported cases")
	ErrNoModel      = errors.New(
		"no fitted model: at least 3 weeks are needed for an own model, " +
			"load a reference model to forecast from week 1",
	)
)

// Estimates are the two in-sample estimate series aligned with the dataset rows.
type Estimates struct {
	WithoutIntercept []float64 `json:"est_without_intercept"`
	WithIntercept    []float64 `json:"est_with_intercept"`
}

// Reconstruct walks the dataset forward. Each row's estimate is projected from the actual cases of
// the previous row, so estimation errors never carry into later weeks. Row 0 is always 0.
func Reconstruct(ds *dataset.Dataset, c regress.Coefficients) Estimates {
	n := ds.Len()
	est := Estimates{
		WithoutIntercept: make([]float64, n),
		WithIntercept:    make([]float64, n),
	}

	lag := ds.LaggedIndex()
	cases := ds.Cases()
	for i := 1; i < n; i++ {
		dIndex := delta.ReconstructionDelta(lag, i)
		est.WithoutIntercept[i] = cases[i-1] + c.Beta*dIndex
		est.WithIntercept[i] = cases[i-1] + c.Alpha + c.Beta*dIndex
	}
	return est
}

// Apply recomputes both estimate columns of ds from scratch.
func Apply(ds *dataset.Dataset, c regress.Coefficients) error {
	est := Reconstruct(ds, c)
	return ds.SetEstimates(est.WithoutIntercept, est.WithIntercept)
}

// Source names which model produced a forecast.
type Source string

const (
	SourceOwn       Source = "own"
	SourceReference Source = "reference"
)

// Model is the session's own fitted model and whether it may be used.
type Model struct {
	regress.Coefficients
	Ready bool
}

// Forecast is a one step ahead projection.
type Forecast struct {
	Source       Source               `json:"source"`
	Label        string               `json:"label,omitempty"`
	Coefficients regress.Coefficients `json:"coefficients"`

	Week       string     `json:"week"`
	NextWeek   string     `json:"next_week,omitempty"`
	NextPeriod *time.Time `json:"next_period,omitempty"`

	LastCases        float64 `json:"last_cases"`
	DeltaIndex       float64 `json:"delta_index"`
	WithoutIntercept float64 `json:"forecast_without_intercept"`
	WithIntercept    float64 `json:"forecast_with_intercept"`
}

// NextDelta is the index change used to project the following week: the latest week's index minus
// its own lagged index. No future index is known, so the most recent observed change stands in for
// it. An undefined lag, as on a single row dataset, contributes no change.
func NextDelta(last dataset.Observation) float64 {
	if math.IsNaN(last.IndexT) || math.IsNaN(last.IndexTMinus1) {
		return 0
	}
	return last.IndexT - last.IndexTMinus1
}

// PredictNext projects the week after the latest observation. The own model is used when ready,
// otherwise the reference when one is loaded.
func PredictNext(ds *dataset.Dataset, own Model, ref *reference.Reference, interval time.Duration) (Forecast, error) {
	last, ok := ds.Last()
	if !ok {
		return Forecast{}, fmt.Errorf("%w, %w", ErrEmptyDataset, regress.ErrInsufficientData)
	}
	if math.IsNaN(last.CasesT) {
		return Forecast{}, fmt.Errorf("week %s, %w, %w", last.Week, ErrNoLastCases, regress.ErrInsufficientData)
	}

	f := Forecast{
		Source:       SourceOwn,
		Coefficients: own.Coefficients,
	}
	if !own.Ready {
		if ref == nil {
			return Forecast{}, fmt.Errorf("%w, %w", ErrNoModel, regress.ErrInsufficientData)
		}
		f.Source = SourceReference
		f.Label = ref.Label
		f.Coefficients = ref.Coefficients
	}

	suggestion := ds.Suggest(interval)
	f.Week = last.Week
	f.NextWeek = suggestion.Week
	f.NextPeriod = suggestion.Period

	f.LastCases = last.CasesT
	f.DeltaIndex = NextDelta(last)
	f.WithoutIntercept = last.CasesT + f.Coefficients.Beta*f.DeltaIndex
	f.WithIntercept = last.CasesT + f.Coefficients.Alpha + f.Coefficients.Beta*f.DeltaIndex
	return f, nil
}
