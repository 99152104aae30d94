// Package deltacast tracks weekly reported case counts next to a search interest index and projects
// the following week's cases from a regression on week over week changes.
package deltacast

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/correlation"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/delta"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reconstruct"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
)

var ErrNilDataset = errors.New("no dataset provided")

// Session holds one working dataset together with the delta model fit on it and an optional
// reference model. Every change to the dataset refits the model and recomputes the estimate
// columns before it becomes visible. A Session is not safe for concurrent use.
type Session struct {
	opt *Options
	log *slog.Logger

	ds     *dataset.Dataset
	own    reconstruct.Model
	fit    regress.Result
	fitErr error

	ref *reference.Reference
}

// New creates an empty session. If no options are provided a default is used.
func New(opt *Options) (*Session, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options, %w", err)
	}
	s := &Session{
		opt: opt,
		log: opt.Logger,
		ds:  dataset.New(nil),
	}
	if err := s.commit(s.ds); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the working dataset with a copy of ds.
func (s *Session) Load(ds *dataset.Dataset) error {
	if ds == nil {
		return ErrNilDataset
	}
	// rebuild so rows are sorted and the lag is derived even if ds was assembled elsewhere
	return s.commit(dataset.New(ds.Rows()))
}

// Add parses a manual entry and appends it to the dataset. A malformed entry leaves the session
// unchanged.
func (s *Session) Add(e dataset.Entry) error {
	o, err := e.Parse()
	if err != nil {
		return err
	}
	next := s.ds.Copy()
	next.Append(o)
	return s.commit(next)
}

// Edit replaces the row at position i, in the current period order, with a parsed entry.
func (s *Session) Edit(i int, e dataset.Entry) error {
	o, err := e.Parse()
	if err != nil {
		return err
	}
	next := s.ds.Copy()
	if err := next.Replace(i, o); err != nil {
		return err
	}
	return s.commit(next)
}

// Delete removes the row at position i in the current period order.
func (s *Session) Delete(i int) error {
	next := s.ds.Copy()
	if err := next.Remove(i); err != nil {
		return err
	}
	return s.commit(next)
}

// commit fits the delta model on ds, fills in its estimate columns and only then swaps it in as the
// working dataset. A model that cannot be fit is a valid state, not an error.
func (s *Session) commit(ds *dataset.Dataset) error {
	res, err := regress.Fit(ds, s.opt.MinObservations)
	var own reconstruct.Model
	switch {
	case err == nil:
		if err := reconstruct.Apply(ds, res.Coefficients); err != nil {
			return fmt.Errorf("unable to reconstruct estimates, %w", err)
		}
		own = reconstruct.Model{Coefficients: res.Coefficients, Ready: true}
	case regress.NotReady(err):
		// stale estimates from an earlier fit must not survive
		ds.ResetEstimates()
	default:
		return fmt.Errorf("unable to fit delta model, %w", err)
	}

	wasReady := s.own.Ready
	s.ds = ds
	s.own = own
	s.fit = res
	s.fitErr = err

	s.log.Debug("refit delta model",
		"observations", ds.Len(),
		"ready", own.Ready,
		"alpha", own.Alpha,
		"beta", own.Beta,
	)
	switch {
	case own.Ready && !wasReady:
		s.log.Info("delta model ready", "observations", ds.Len(), "training_pairs", res.TrainingPairs)
	case !own.Ready && wasReady:
		s.log.Info("delta model not ready", "observations", ds.Len(), "reason", err)
	}
	return nil
}

// Ready reports whether the session's own model can be used.
func (s *Session) Ready() bool {
	return s.own.Ready
}

// NotReadyReason is the error from the last fit attempt, nil when the model is ready.
func (s *Session) NotReadyReason() error {
	return s.fitErr
}

// Coefficients returns the own model's coefficients. They are only meaningful when Ready is true.
func (s *Session) Coefficients() regress.Coefficients {
	return s.own.Coefficients
}

// Dataset returns a copy of the working dataset including its estimate columns.
func (s *Session) Dataset() *dataset.Dataset {
	return s.ds.Copy()
}

// Suggest proposes the week and period of the next manual entry.
func (s *Session) Suggest() dataset.Suggestion {
	return s.ds.Suggest(s.opt.WeekInterval)
}

// LoadReference fits a reference model on an independently supplied dataset labelled by where it
// came from. On failure any previously loaded reference is kept. The own model is never touched.
func (s *Session) LoadReference(ds *dataset.Dataset, label string) error {
	ref, err := reference.Load(ds, label, s.opt.MinObservations)
	if err != nil {
		return err
	}
	s.SetReference(ref)
	return nil
}

// SetReference installs an already fitted reference, for example one decoded from a saved model.
func (s *Session) SetReference(ref *reference.Reference) {
	if ref == nil {
		s.ClearReference()
		return
	}
	s.ref = ref
	s.log.Info("reference model loaded",
		"label", ref.Label,
		"alpha", ref.Alpha,
		"beta", ref.Beta,
	)
}

func (s *Session) ClearReference() {
	if s.ref != nil {
		s.log.Info("reference model cleared", "label", s.ref.Label)
	}
	s.ref = nil
}

// Reference returns the loaded reference model or nil.
func (s *Session) Reference() *reference.Reference {
	if s.ref == nil {
		return nil
	}
	ref := *s.ref
	return &ref
}

// PredictNext projects the week after the latest observation using the own model when ready and the
// reference otherwise.
func (s *Session) PredictNext() (reconstruct.Forecast, error) {
	f, err := reconstruct.PredictNext(s.ds, s.own, s.ref, s.opt.WeekInterval)
	if err != nil {
		return reconstruct.Forecast{}, err
	}
	s.log.Debug("forecast next week",
		"source", f.Source,
		"week", f.NextWeek,
		"without_intercept", f.WithoutIntercept,
		"with_intercept", f.WithIntercept,
	)
	return f, nil
}

// Correlation fits the static level model on the working dataset.
func (s *Session) Correlation() (*correlation.Report, error) {
	return correlation.Analyze(s.ds)
}

// Model summarizes the own model, its back-test scores and the loaded reference.
func (s *Session) Model() (Model, error) {
	m := Model{
		Ready:         s.own.Ready,
		Coefficients:  s.own.Coefficients,
		Observations:  s.ds.Len(),
		TrainingPairs: len(delta.TrainingPairs(s.ds)),
		Reference:     s.Reference(),
	}
	if !s.own.Ready {
		if s.fitErr != nil {
			m.Reason = s.fitErr.Error()
		}
		return m, nil
	}

	without, with, err := reconstruct.Backtest(s.ds)
	if err != nil {
		return Model{}, fmt.Errorf("unable to score estimates, %w", err)
	}
	if without != nil && with != nil {
		m.Scores = &ModelScores{
			WithoutIntercept: *without,
			WithIntercept:    *with,
		}
	}
	return m, nil
}
