// Package models holds the least squares fitting implementations used by the delta forecaster and
// the level correlation report.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a fitted linear model of the form y ~ intercept + coef . x
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
