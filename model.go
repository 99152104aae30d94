package deltacast

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reconstruct"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
	"github.com/goccy/go-json"
)

// Model is a serializeable summary of a session's delta model. A saved ready model can be loaded
// back as a reference with reference.LoadModel.
type Model struct {
	Ready         bool                 `json:"ready"`
	Reason        string               `json:"reason,omitempty"`
	Coefficients  regress.Coefficients `json:"coefficients"`
	Observations  int                  `json:"observations"`
	TrainingPairs int                  `json:"training_pairs"`
	Scores        *ModelScores         `json:"scores,omitempty"`
	Reference     *reference.Reference `json:"reference,omitempty"`
}

// ModelScores are the back-test scores of both reconstructed estimate series.
type ModelScores struct {
	WithoutIntercept reconstruct.Scores `json:"without_intercept"`
	WithIntercept    reconstruct.Scores `json:"with_intercept"`
}

// WriteJSON encodes the model as indented JSON.
func (m Model) WriteJSON(w io.Writer) error {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// Save writes the model as JSON to path.
func (m Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TablePrint prints a human readable summary of the model
func (m Model) TablePrint(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Delta Model:\n"); err != nil {
		return err
	}
	if !m.Ready {
		if _, err := fmt.Fprintf(w, "  Ready: false\n"); err != nil {
			return err
		}
		if m.Reason != "" {
			if _, err := fmt.Fprintf(w, "  Reason: %s\n", m.Reason); err != nil {
				return err
			}
		}
	} else {
		if _, err := fmt.Fprintf(w, "  Ready: true\n  Alpha: %.3f    Beta: %.3f\n",
			m.Coefficients.Alpha, m.Coefficients.Beta); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "  Observations: %d    Training Pairs: %d\n", m.Observations, m.TrainingPairs); err != nil {
		return err
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "  Scores:\n"); err != nil {
			return err
		}
		tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		if _, err := fmt.Fprintf(tbl, "    Estimate\tMAPE\tMSE\tR2\t\n"); err != nil {
			return err
		}
		rows := []struct {
			name   string
			scores reconstruct.Scores
		}{
			{"Without Intercept", m.Scores.WithoutIntercept},
			{"With Intercept", m.Scores.WithIntercept},
		}
		for _, r := range rows {
			if _, err := fmt.Fprintf(tbl, "    %s\t%.3f\t%.3f\t%.3f\t\n",
				r.name, r.scores.MAPE, r.scores.MSE, r.scores.R2); err != nil {
				return err
			}
		}
		if err := tbl.Flush(); err != nil {
			return err
		}
	}

	if m.Reference != nil {
		if _, err := fmt.Fprintf(w, "Reference Model:\n  Label: %s\n  Alpha: %.3f    Beta: %.3f\n",
			m.Reference.Label, m.Reference.Alpha, m.Reference.Beta); err != nil {
			return err
		}
	}
	return nil
}
