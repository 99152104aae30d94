// Package reference loads a previously fitted delta model to stand in for the session's own model
// until the session has enough weeks to fit one.
package reference

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
)

var (
	ErrInsufficientReference = errors.New("insufficient data for reference")
	ErrNoLabel               = errors.New("reference requires a provenance label")
)

// Reference is an alternate (alpha, beta) pair with the name of the dataset it came from.
type Reference struct {
	regress.Coefficients
	Label         string `json:"label"`
	Observations  int    `json:"observations"`
	TrainingPairs int    `json:"training_pairs"`
}

// Load fits the delta model on an independently supplied dataset. The dataset must already be
// normalized the same way as the primary one.
func Load(ds *dataset.Dataset, label string, minObs int) (*Reference, error) {
	if label == "" {
		return nil, ErrNoLabel
	}
	res, err := regress.Fit(ds, minObs)
	if err != nil {
		if regress.NotReady(err) {
			return nil, fmt.Errorf("%s, %w, %w", label, ErrInsufficientReference, err)
		}
		return nil, err
	}
	return &Reference{
		Coefficients:  res.Coefficients,
		Label:         label,
		Observations:  res.Observations,
		TrainingPairs: res.TrainingPairs,
	}, nil
}

// Document is the JSON form of a saved delta model. A saved model summary decodes into it.
type Document struct {
	Label         string               `json:"label,omitempty"`
	Ready         bool                 `json:"ready"`
	Coefficients  regress.Coefficients `json:"coefficients"`
	Observations  int                  `json:"observations"`
	TrainingPairs int                  `json:"training_pairs"`
}

// Decode reads a saved model document. A document whose model was not ready is rejected.
func Decode(r io.Reader, label string) (*Reference, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("unable to decode reference model, %w", err)
	}
	if !doc.Ready {
		return nil, fmt.Errorf("saved model was not ready, %w", ErrInsufficientReference)
	}
	if label == "" {
		label = doc.Label
	}
	if label == "" {
		return nil, ErrNoLabel
	}
	return &Reference{
		Coefficients:  doc.Coefficients,
		Label:         label,
		Observations:  doc.Observations,
		TrainingPairs: doc.TrainingPairs,
	}, nil
}

// LoadModel reads a saved model file labelled by its base name.
func LoadModel(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filepath.Base(path))
}

// Encode writes the reference as a model document.
func (r *Reference) Encode(w io.Writer) error {
	doc := Document{
		Label:         r.Label,
		Ready:         true,
		Coefficients:  r.Coefficients,
		Observations:  r.Observations,
		TrainingPairs: r.TrainingPairs,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
