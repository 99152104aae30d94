// Package delta derives week over week first differences from an ordered dataset.
//
// Two distinct behaviours apply to undefined deltas. TrainingPairs drops any pair with an undefined
// component so the regressor only sees complete observations, while ReconstructionDelta substitutes
// zero so every historical row still receives an estimate.
package delta

import (
	"math"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
)

// Pair is one training observation for the delta regression.
type Pair struct {
	DIndex float64 `json:"delta_index"`
	DCases float64 `json:"delta_cases"`
}

// Series holds the first differences aligned with the dataset rows. Position 0 is always NaN.
type Series struct {
	DIndex []float64
	DCases []float64
}

// Diff computes Δcases[i] = cases[i] - cases[i-1] and Δindex[i] = lag[i] - lag[i-1].
func Diff(ds *dataset.Dataset) Series {
	n := ds.Len()
	s := Series{
		DIndex: make([]float64, n),
		DCases: make([]float64, n),
	}
	if n == 0 {
		return s
	}

	lag := ds.LaggedIndex()
	cases := ds.Cases()
	s.DIndex[0] = math.NaN()
	s.DCases[0] = math.NaN()
	for i := 1; i < n; i++ {
		s.DIndex[i] = lag[i] - lag[i-1]
		s.DCases[i] = cases[i] - cases[i-1]
	}
	return s
}

// TrainingPairs returns the pairs with both deltas defined, silently dropping the rest.
func TrainingPairs(ds *dataset.Dataset) []Pair {
	s := Diff(ds)
	pairs := make([]Pair, 0, len(s.DIndex))
	for i := 1; i < len(s.DIndex); i++ {
		if !defined(s.DIndex[i]) || !defined(s.DCases[i]) {
			continue
		}
		pairs = append(pairs, Pair{DIndex: s.DIndex[i], DCases: s.DCases[i]})
	}
	return pairs
}

// Split separates pairs into predictor and target slices.
func Split(pairs []Pair) (dIndex, dCases []float64) {
	dIndex = make([]float64, 0, len(pairs))
	dCases = make([]float64, 0, len(pairs))
	for _, p := range pairs {
		dIndex = append(dIndex, p.DIndex)
		dCases = append(dCases, p.DCases)
	}
	return dIndex, dCases
}

// ReconstructionDelta returns lag[i] - lag[i-1], or 0 when either operand is undefined or i has no
// previous row.
func ReconstructionDelta(lag []float64, i int) float64 {
	if i < 1 || i >= len(lag) {
		return 0
	}
	if !defined(lag[i]) || !defined(lag[i-1]) {
		return 0
	}
	return lag[i] - lag[i-1]
}

func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
