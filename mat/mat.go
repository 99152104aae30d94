// Package mat holds small helpers for building gonum design matrices out of the row and column
// slices the dataset produces.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyArray  = errors.New("no rows or columns in array")
	ErrRowMismatch = errors.New("row size mismatch")
)

// NewDenseFromColumns builds an m x n matrix where each input slice becomes one column.
func NewDenseFromColumns(cols ...[]float64) (*mat.Dense, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, ErrEmptyArray
	}
	m := len(cols[0])
	for j, col := range cols {
		if len(col) != m {
			return nil, fmt.Errorf("column %d has %d rows, expected %d, %w", j, len(col), m, ErrRowMismatch)
		}
	}

	mx := mat.NewDense(m, len(cols), nil)
	for j, col := range cols {
		mx.SetCol(j, col)
	}
	return mx, nil
}
