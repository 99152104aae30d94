package regress

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func week(n int) time.Time {
	return time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC).Add(time.Duration(n-1) * dataset.DefaultWeekInterval)
}

func newDataset(index, cases []float64) *dataset.Dataset {
	obs := make([]dataset.Observation, 0, len(index))
	for i := range index {
		obs = append(obs, dataset.NewObservation("", week(i+1), index[i], cases[i]))
	}
	return dataset.New(obs)
}

func TestFit(t *testing.T) {
	tol := 1e-9
	testData := map[string]struct {
		index    []float64
		cases    []float64
		minObs   int
		expected Result
		err      error
	}{
		"empty": {
			err: ErrInsufficientData,
		},
		"two observations": {
			index: []float64{10, 12},
			cases: []float64{100, 105},
			err:   ErrInsufficientData,
		},
		"three observations": {
			index: []float64{10, 12, 15},
			cases: []float64{100, 105, 112},
			expected: Result{
				Coefficients:  Coefficients{Alpha: 7, Beta: 0},
				Observations:  3,
				TrainingPairs: 1,
			},
		},
		"exact delta line": {
			// lag deltas 2, 3, -4, 7 with Δcases = 1 + 2*Δindex
			index: []float64{10, 12, 15, 11, 18, 0},
			cases: []float64{100, 101, 106, 113, 106, 121},
			expected: Result{
				Coefficients:  Coefficients{Alpha: 1, Beta: 2},
				Observations:  6,
				TrainingPairs: 4,
			},
		},
		"raised threshold": {
			index:  []float64{10, 12, 15},
			cases:  []float64{100, 105, 112},
			minObs: 4,
			err:    ErrInsufficientData,
		},
		"threshold never below three": {
			index:  []float64{10, 12},
			cases:  []float64{100, 105},
			minObs: 1,
			err:    ErrInsufficientData,
		},
		"no complete pairs": {
			index: []float64{10, 12, 15},
			cases: []float64{100, 105, math.NaN()},
			err:   ErrInsufficientData,
		},
		"constant index change": {
			index: []float64{10, 12, 14, 16},
			cases: []float64{100, 105, 112, 120},
			err:   ErrDegenerateFit,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Fit(newDataset(td.index, td.cases), td.minObs)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.True(t, NotReady(err))
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected.Alpha, res.Alpha, tol, "alpha")
			assert.InDelta(t, td.expected.Beta, res.Beta, tol, "beta")
			assert.Equal(t, td.expected.Observations, res.Observations)
			assert.Equal(t, td.expected.TrainingPairs, res.TrainingPairs)
		})
	}
}

func TestFitDegenerateWrapsModelError(t *testing.T) {
	_, err := Fit(newDataset([]float64{10, 12, 14, 16}, []float64{100, 105, 112, 120}), 0)
	assert.ErrorIs(t, err, models.ErrDegenerateFit)
}

func TestNotReady(t *testing.T) {
	assert.False(t, NotReady(nil))
	assert.False(t, NotReady(errors.New("boom")))
}
