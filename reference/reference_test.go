package reference

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func week(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n-1) * dataset.DefaultWeekInterval)
}

func newDataset(index, cases []float64) *dataset.Dataset {
	obs := make([]dataset.Observation, 0, len(index))
	for i := range index {
		obs = append(obs, dataset.NewObservation("", week(i+1), index[i], cases[i]))
	}
	return dataset.New(obs)
}

func TestLoad(t *testing.T) {
	testData := map[string]struct {
		ds       *dataset.Dataset
		label    string
		expected *Reference
		err      error
	}{
		"no label": {
			ds:  newDataset([]float64{10, 12, 15}, []float64{100, 105, 112}),
			err: ErrNoLabel,
		},
		"too few rows": {
			ds:    newDataset([]float64{10, 12}, []float64{100, 105}),
			label: "2023.xlsx",
			err:   ErrInsufficientReference,
		},
		"degenerate": {
			ds:    newDataset([]float64{10, 12, 14, 16}, []float64{100, 105, 112, 120}),
			label: "2023.xlsx",
			err:   ErrInsufficientReference,
		},
		"valid": {
			ds:    newDataset([]float64{10, 12, 15, 11, 18, 0}, []float64{100, 101, 106, 113, 106, 121}),
			label: "2023.xlsx",
			expected: &Reference{
				Coefficients:  regress.Coefficients{Alpha: 1, Beta: 2},
				Label:         "2023.xlsx",
				Observations:  6,
				TrainingPairs: 4,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ref, err := Load(td.ds, td.label, regress.MinObservations)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.Nil(t, ref)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected.Alpha, ref.Alpha, 1e-9)
			assert.InDelta(t, td.expected.Beta, ref.Beta, 1e-9)
			assert.Equal(t, td.expected.Label, ref.Label)
			assert.Equal(t, td.expected.Observations, ref.Observations)
			assert.Equal(t, td.expected.TrainingPairs, ref.TrainingPairs)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	ref := &Reference{
		Coefficients:  regress.Coefficients{Alpha: 1.5, Beta: -0.25},
		Label:         "season-2023",
		Observations:  40,
		TrainingPairs: 38,
	}

	var buf bytes.Buffer
	require.Nil(t, ref.Encode(&buf))

	decoded, err := Decode(&buf, "")
	require.Nil(t, err)
	assert.Equal(t, ref, decoded)
}

func TestDecode(t *testing.T) {
	testData := map[string]struct {
		input     string
		label     string
		err       error
		decodeErr bool
	}{
		"not json":        {input: "alpha=1", decodeErr: true},
		"not ready":       {input: `{"ready": false, "coefficients": {"alpha": 1, "beta": 2}}`, label: "x", err: ErrInsufficientReference},
		"no label":        {input: `{"ready": true, "coefficients": {"alpha": 1, "beta": 2}}`, err: ErrNoLabel},
		"label overrides": {input: `{"label": "old", "ready": true, "coefficients": {"alpha": 1, "beta": 2}}`, label: "new"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ref, err := Decode(strings.NewReader(td.input), td.label)
			if td.decodeErr {
				assert.NotNil(t, err)
				return
			}
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, "new", ref.Label)
			assert.Equal(t, 1.0, ref.Alpha)
			assert.Equal(t, 2.0, ref.Beta)
		})
	}
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference-2023.json")
	require.Nil(t, os.WriteFile(path, []byte(`{"ready": true, "coefficients": {"alpha": 1, "beta": 0.5}}`), 0o644))

	ref, err := LoadModel(path)
	require.Nil(t, err)
	assert.Equal(t, "reference-2023.json", ref.Label)
	assert.Equal(t, 0.5, ref.Beta)

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.NotNil(t, err)
}
