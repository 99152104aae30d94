package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SimpleRegression fits y ~ alpha + beta*x on paired slices in closed form where
// beta = cov(x, y) / var(x) and alpha = mean(y) - beta*mean(x).
//
// A single observation centers to a zero predictor so the slope is zero and the intercept absorbs
// the target. Two or more observations sharing one predictor value cannot determine a slope and
// return ErrDegenerateFit.
type SimpleRegression struct {
	alpha float64
	beta  float64
}

func NewSimpleRegression() *SimpleRegression {
	return &SimpleRegression{}
}

// FitSlices fits the regression directly on paired predictor and target slices.
func (s *SimpleRegression) FitSlices(x, y []float64) error {
	if len(x) == 0 {
		return ErrNoTrainingArray
	}
	if len(y) == 0 {
		return ErrNoTargetArray
	}
	if len(x) != len(y) {
		return fmt.Errorf("predictor has %d values and target has %d, %w", len(x), len(y), ErrTargetLenMismatch)
	}
	if floats.HasNaN(x) || floats.HasNaN(y) || hasInf(x) || hasInf(y) {
		return ErrNonFinite
	}

	if len(x) == 1 {
		s.alpha, s.beta = y[0], 0
		return nil
	}

	if stat.Variance(x, nil) == 0 {
		return fmt.Errorf("predictor is constant at %.4f, %w", x[0], ErrDegenerateFit)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return ErrDegenerateFit
	}
	s.alpha, s.beta = alpha, beta
	return nil
}

func (s *SimpleRegression) Intercept() float64 {
	return s.alpha
}

func (s *SimpleRegression) Coef() []float64 {
	return []float64{s.beta}
}

func hasInf(x []float64) bool {
	for _, v := range x {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
