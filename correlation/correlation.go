// Package correlation fits the static level model, cases_t ~ index_t_minus_1, to show how weakly
// the raw index levels track reported cases. It never feeds a forecast.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	mat_ "github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/mat"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoRowsInRange = errors.New("no observations in the analysis range")
	ErrDegenerateFit = errors.New("level model cannot be solved")
)

const (
	// MinWeek is the first week included in the analysis.
	MinWeek = 2
	// WeakR2 flags a relationship that explains less than a tenth of the variance.
	WeakR2 = 0.1
)

// Report is the outcome of the level regression.
type Report struct {
	Slope     float64               `json:"slope"`
	Intercept float64               `json:"intercept"`
	R         float64               `json:"r"`
	R2        float64               `json:"r_squared"`
	Weak      bool                  `json:"weak"`
	Rows      []dataset.Observation `json:"rows"`
}

// Filter keeps rows whose week is numeric and at least MinWeek with a defined lagged index and cases.
func Filter(ds *dataset.Dataset) []dataset.Observation {
	rows := make([]dataset.Observation, 0, ds.Len())
	for _, r := range ds.Rows() {
		w, err := strconv.ParseFloat(strings.TrimSpace(r.Week), 64)
		if err != nil || math.IsNaN(w) || w < MinWeek {
			continue
		}
		if math.IsNaN(r.IndexTMinus1) || math.IsNaN(r.CasesT) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// Analyze fits cases_t on index_t_minus_1 by least squares and reports the Pearson correlation.
func Analyze(ds *dataset.Dataset) (*Report, error) {
	rows := Filter(ds)
	if len(rows) == 0 {
		return nil, ErrNoRowsInRange
	}

	x := make([]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		x = append(x, r.IndexTMinus1)
		y = append(y, r.CasesT)
	}

	xMx, err := mat_.NewDenseFromColumns(x)
	if err != nil {
		return nil, err
	}
	yMx := mat.NewDense(len(y), 1, y)

	ols, err := models.NewOLSRegression(nil)
	if err != nil {
		return nil, err
	}
	var model models.Model = ols
	if err := model.Fit(xMx, yMx); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrDegenerateFit, err)
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		// constant cases
		r = 0
	}
	r2 := r * r

	return &Report{
		Slope:     model.Coef()[0],
		Intercept: model.Intercept(),
		R:         r,
		R2:        r2,
		Weak:      r2 < WeakR2,
		Rows:      rows,
	}, nil
}
