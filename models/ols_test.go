package models

import (
	"testing"

	mat_ "github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestOLSOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *OLSOptions
		err      error
		expected *OLSOptions
	}{
		"nil": {nil, nil, NewDefaultOLSOptions()},
		"valid": {
			&OLSOptions{
				FitIntercept: true,
			}, nil,
			&OLSOptions{
				FitIntercept: true,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-5
	testData := map[string]struct {
		cols      [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"ols model intercept": {
			cols: [][]float64{
				{0, 3, 9, 12, 15},
				{0, 5, 20, 6, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"ols model no intercept": {
			cols: [][]float64{
				{1, 1, 1, 1, 1},
				{0, 3, 9, 12, 15},
				{0, 5, 20, 6, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: &OLSOptions{
				FitIntercept: false,
			},
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
		"single predictor": {
			cols:      [][]float64{{10, 12, 15, 9}},
			y:         []float64{25, 29, 35, 23},
			intercept: 5.0,
			coef:      []float64{2.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromColumns(td.cols...)
			require.Nil(t, err)

			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.Nil(t, err)

			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestOLSRegressionErrors(t *testing.T) {
	testData := map[string]struct {
		cols [][]float64
		y    []float64
		err  error
	}{
		"collinear columns": {
			cols: [][]float64{{1, 2, 3}, {2, 4, 6}},
			y:    []float64{1, 2, 3},
			err:  ErrDegenerateFit,
		},
		"constant predictor": {
			cols: [][]float64{{4, 4, 4}},
			y:    []float64{1, 2, 3},
			err:  ErrDegenerateFit,
		},
		"fewer rows than coefficients": {
			cols: [][]float64{{3}},
			y:    []float64{1},
			err:  ErrDegenerateFit,
		},
		"target length mismatch": {
			cols: [][]float64{{1, 2, 3}},
			y:    []float64{1, 2},
			err:  ErrTargetLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromColumns(td.cols...)
			require.Nil(t, err)
			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(nil)
			require.Nil(t, err)
			assert.ErrorIs(t, model.Fit(x, y), td.err)
		})
	}
}

func TestOLSRegressionNilInputs(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.Nil(t, err)

	assert.ErrorIs(t, model.Fit(nil, nil), ErrNoTrainingArray)
	assert.ErrorIs(t, model.Fit(mat.NewDense(1, 1, nil), nil), ErrNoTargetArray)

	_, err = model.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)
}
