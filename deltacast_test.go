package deltacast

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reconstruct"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func period(n int) time.Time {
	return time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC).Add(time.Duration(n-1) * dataset.DefaultWeekInterval)
}

func entry(n int, index, cases float64) dataset.Entry {
	return dataset.Entry{
		Week:   fmt.Sprintf("%d", n),
		Period: period(n).Format(dataset.DateLayout),
		Index:  fmt.Sprintf("%g", index),
		Cases:  fmt.Sprintf("%g", cases),
	}
}

func newDataset(index, cases []float64) *dataset.Dataset {
	obs := make([]dataset.Observation, 0, len(index))
	for i := range index {
		obs = append(obs, dataset.NewObservation(fmt.Sprintf("%d", i+1), period(i+1), index[i], cases[i]))
	}
	return dataset.New(obs)
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	opt := NewDefaultOptions()
	opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(opt)
	require.Nil(t, err)
	return s
}

// referenceDataset fits exactly alpha=1, beta=0.5
func referenceDataset() *dataset.Dataset {
	return newDataset([]float64{10, 12, 16, 14}, []float64{50, 50, 52, 55})
}

func TestNewSession(t *testing.T) {
	s, err := New(nil)
	require.Nil(t, err)
	assert.False(t, s.Ready())
	assert.ErrorIs(t, s.NotReadyReason(), regress.ErrInsufficientData)
	assert.True(t, s.Dataset().Empty())

	_, err = New(&Options{MinObservations: 2})
	assert.ErrorIs(t, err, ErrMinObservations)
}

func TestSessionReadinessThreshold(t *testing.T) {
	s := newTestSession(t)

	require.Nil(t, s.Add(entry(1, 10, 100)))
	require.Nil(t, s.Add(entry(2, 12, 105)))
	assert.False(t, s.Ready(), "two rows are never ready")

	require.Nil(t, s.Add(entry(3, 15, 112)))
	assert.True(t, s.Ready(), "three rows with distinct index values are ready")
	assert.Nil(t, s.NotReadyReason())
}

func TestSessionScenarioA(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.Load(newDataset([]float64{10, 12, 15}, []float64{100, 105, 112})))
	require.True(t, s.Ready())
	assert.Equal(t, regress.Coefficients{Alpha: 7, Beta: 0}, s.Coefficients())

	ds := s.Dataset()
	assert.Equal(t, []float64{0, 100, 105}, ds.EstimatesWithoutIntercept())
	assert.Equal(t, []float64{0, 107, 112}, ds.EstimatesWithIntercept())

	f, err := s.PredictNext()
	require.Nil(t, err)
	assert.Equal(t, reconstruct.SourceOwn, f.Source)
	assert.Equal(t, 112.0, f.WithoutIntercept)
	assert.Equal(t, 119.0, f.WithIntercept)
	assert.Equal(t, "4", f.NextWeek)
}

func TestSessionScenarioB(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.Add(entry(1, 10, 100)))
	require.Nil(t, s.Add(entry(2, 12, 105)))

	_, err := s.PredictNext()
	assert.ErrorIs(t, err, regress.ErrInsufficientData)
	assert.ErrorIs(t, err, reconstruct.ErrNoModel)

	require.Nil(t, s.LoadReference(referenceDataset(), "season-2023"))
	ref := s.Reference()
	require.NotNil(t, ref)
	assert.InDelta(t, 1.0, ref.Alpha, 1e-9)
	assert.InDelta(t, 0.5, ref.Beta, 1e-9)

	f, err := s.PredictNext()
	require.Nil(t, err)
	assert.Equal(t, reconstruct.SourceReference, f.Source)
	assert.Equal(t, "season-2023", f.Label)
	assert.InDelta(t, 106.0, f.WithoutIntercept, 1e-9)
	assert.InDelta(t, 107.0, f.WithIntercept, 1e-9)

	// the reference never fills in the estimate columns
	assert.Equal(t, []float64{0, 0}, s.Dataset().EstimatesWithIntercept())
	assert.False(t, s.Ready())
}

func TestSessionReferenceFromWeekOne(t *testing.T) {
	s := newTestSession(t)
	s.SetReference(&reference.Reference{
		Coefficients: regress.Coefficients{Alpha: 2, Beta: 1},
		Label:        "saved.json",
	})
	require.Nil(t, s.Add(entry(1, 40, 30)))

	f, err := s.PredictNext()
	require.Nil(t, err)
	assert.Equal(t, 30.0, f.WithoutIntercept)
	assert.Equal(t, 32.0, f.WithIntercept)
	assert.Equal(t, "2", f.NextWeek)
}

func TestSessionReferenceRejected(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.LoadReference(referenceDataset(), "season-2023"))

	err := s.LoadReference(newDataset([]float64{1, 2}, []float64{3, 4}), "too-short")
	assert.ErrorIs(t, err, reference.ErrInsufficientReference)
	require.NotNil(t, s.Reference())
	assert.Equal(t, "season-2023", s.Reference().Label)

	s.ClearReference()
	assert.Nil(t, s.Reference())
}

func TestSessionOwnModelWinsOverReference(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.LoadReference(referenceDataset(), "season-2023"))
	require.Nil(t, s.Load(newDataset([]float64{10, 12, 15}, []float64{100, 105, 112})))

	f, err := s.PredictNext()
	require.Nil(t, err)
	assert.Equal(t, reconstruct.SourceOwn, f.Source)
	assert.Empty(t, f.Label)
}

func TestSessionMutations(t *testing.T) {
	testData := map[string]struct {
		mutate   func(s *Session) error
		err      error
		expected []float64
	}{
		"malformed index": {
			mutate: func(s *Session) error {
				e := entry(4, 0, 120)
				e.Index = "abc"
				return s.Add(e)
			},
			err:      dataset.ErrMalformedInput,
			expected: []float64{100, 105, 112},
		},
		"empty week": {
			mutate: func(s *Session) error {
				e := entry(4, 18, 120)
				e.Week = " "
				return s.Add(e)
			},
			err:      dataset.ErrMalformedInput,
			expected: []float64{100, 105, 112},
		},
		"edit out of range": {
			mutate: func(s *Session) error {
				return s.Edit(3, entry(4, 18, 120))
			},
			err:      dataset.ErrRowOutOfBounds,
			expected: []float64{100, 105, 112},
		},
		"delete out of range": {
			mutate: func(s *Session) error {
				return s.Delete(-1)
			},
			err:      dataset.ErrRowOutOfBounds,
			expected: []float64{100, 105, 112},
		},
		"add out of order": {
			mutate: func(s *Session) error {
				return s.Add(entry(0, 8, 90))
			},
			expected: []float64{90, 100, 105, 112},
		},
		"edit": {
			mutate: func(s *Session) error {
				return s.Edit(1, entry(2, 12, 106))
			},
			expected: []float64{100, 106, 112},
		},
		"delete": {
			mutate: func(s *Session) error {
				return s.Delete(0)
			},
			expected: []float64{105, 112},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := newTestSession(t)
			require.Nil(t, s.Load(newDataset([]float64{10, 12, 15}, []float64{100, 105, 112})))

			err := td.mutate(s)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.True(t, s.Ready())
			} else {
				require.Nil(t, err)
			}
			assert.Equal(t, td.expected, s.Dataset().Cases())
		})
	}
}

func TestSessionDeleteResetsEstimates(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.Load(newDataset([]float64{10, 12, 15}, []float64{100, 105, 112})))
	require.True(t, s.Ready())

	require.Nil(t, s.Delete(2))
	assert.False(t, s.Ready())
	assert.Equal(t, []float64{0, 0}, s.Dataset().EstimatesWithoutIntercept())
	assert.Equal(t, []float64{0, 0}, s.Dataset().EstimatesWithIntercept())
}

func TestSessionDegenerateFit(t *testing.T) {
	s := newTestSession(t)
	require.Nil(t, s.Load(newDataset([]float64{10, 12, 14, 16}, []float64{100, 105, 107, 112})))
	assert.False(t, s.Ready())
	assert.ErrorIs(t, s.NotReadyReason(), regress.ErrDegenerateFit)
}

func TestSessionLoadSorts(t *testing.T) {
	obs := []dataset.Observation{
		dataset.NewObservation("3", period(3), 15, 112),
		dataset.NewObservation("1", period(1), 10, 100),
		dataset.NewObservation("2", period(2), 12, 105),
	}
	s := newTestSession(t)
	require.Nil(t, s.Load(dataset.New(obs)))

	ds := s.Dataset()
	assert.Equal(t, []float64{100, 105, 112}, ds.Cases())
	lag := ds.LaggedIndex()
	assert.True(t, math.IsNaN(lag[0]))
	assert.Equal(t, []float64{10, 12}, lag[1:])

	assert.ErrorIs(t, s.Load(nil), ErrNilDataset)
}

func TestSessionRowOrderDoesNotChangeReconstruction(t *testing.T) {
	index := []float64{10, 12, 15, 11, 18}
	cases := []float64{100, 105, 112, 109, 120}

	base := newTestSession(t)
	require.Nil(t, base.Load(newDataset(index, cases)))
	require.True(t, base.Ready())
	expected := base.Dataset()
	expectedForecast, err := base.PredictNext()
	require.Nil(t, err)

	testData := map[string]struct {
		order []int
	}{
		"reversed":    {order: []int{4, 3, 2, 1, 0}},
		"interleaved": {order: []int{2, 0, 4, 1, 3}},
		"last first":  {order: []int{4, 0, 1, 2, 3}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			obs := make([]dataset.Observation, 0, len(td.order))
			for _, i := range td.order {
				obs = append(obs, dataset.NewObservation(fmt.Sprintf("%d", i+1), period(i+1), index[i], cases[i]))
			}
			s := newTestSession(t)
			require.Nil(t, s.Load(dataset.New(obs)))

			ds := s.Dataset()
			assert.Equal(t, base.Coefficients(), s.Coefficients())
			assert.Equal(t, expected.EstimatesWithoutIntercept(), ds.EstimatesWithoutIntercept())
			assert.Equal(t, expected.EstimatesWithIntercept(), ds.EstimatesWithIntercept())

			f, err := s.PredictNext()
			require.Nil(t, err)
			assert.Equal(t, expectedForecast, f)
		})
	}
}

func TestSessionSuggest(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, dataset.Suggestion{}, s.Suggest())

	require.Nil(t, s.Add(entry(7, 10, 100)))
	sug := s.Suggest()
	assert.Equal(t, "8", sug.Week)
	require.NotNil(t, sug.Period)
	assert.Equal(t, period(8), *sug.Period)
}

func TestSessionModel(t *testing.T) {
	s := newTestSession(t)
	m, err := s.Model()
	require.Nil(t, err)
	assert.False(t, m.Ready)
	assert.NotEmpty(t, m.Reason)
	assert.Nil(t, m.Scores)

	require.Nil(t, s.Load(newDataset([]float64{10, 12, 15, 11, 18, 0}, []float64{100, 101, 106, 113, 106, 121})))
	m, err = s.Model()
	require.Nil(t, err)
	assert.True(t, m.Ready)
	assert.Empty(t, m.Reason)
	assert.Equal(t, 6, m.Observations)
	assert.Equal(t, 4, m.TrainingPairs)
	assert.InDelta(t, 1.0, m.Coefficients.Alpha, 1e-9)
	assert.InDelta(t, 2.0, m.Coefficients.Beta, 1e-9)
	require.NotNil(t, m.Scores)
}

func TestSessionCorrelation(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Correlation()
	assert.NotNil(t, err)

	require.Nil(t, s.Load(newDataset([]float64{10, 20, 30, 40}, []float64{0, 35, 65, 95})))
	rep, err := s.Correlation()
	require.Nil(t, err)
	assert.InDelta(t, 3.0, rep.Slope, 1e-9)
	assert.InDelta(t, 5.0, rep.Intercept, 1e-9)
}

func TestSessionPlotFit(t *testing.T) {
	s := newTestSession(t)
	var buf bytes.Buffer
	assert.ErrorIs(t, s.PlotFit(&buf), ErrNothingToPlot)

	require.Nil(t, s.Load(newDataset([]float64{10, 20, 30, 40}, []float64{0, 35, 65, 95})))
	require.Nil(t, s.PlotFit(&buf))
	out := buf.String()
	assert.True(t, strings.Contains(out, "Reported Cases"))
	assert.True(t, strings.Contains(out, "Cases vs Lagged Index"))
}
