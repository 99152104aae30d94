package deltacast

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
)

var (
	ErrMinObservations = errors.New("minimum observations below the fit threshold")
	ErrWeekInterval    = errors.New("week interval must be positive")
)

// Options configures a Session.
type Options struct {
	// MinObservations is the row count a dataset needs before the delta model is fit. It can be
	// raised but never set below regress.MinObservations.
	MinObservations int

	// WeekInterval is added to the last period when suggesting the next entry.
	WeekInterval time.Duration

	Logger *slog.Logger
}

func NewDefaultOptions() *Options {
	return &Options{
		MinObservations: regress.MinObservations,
		WeekInterval:    dataset.DefaultWeekInterval,
		Logger:          slog.Default(),
	}
}

// Validate fills unset fields with defaults and rejects invalid ones.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	out := *o
	if out.MinObservations == 0 {
		out.MinObservations = regress.MinObservations
	}
	if out.MinObservations < regress.MinObservations {
		return nil, fmt.Errorf("got %d, need at least %d, %w", out.MinObservations, regress.MinObservations, ErrMinObservations)
	}
	if out.WeekInterval == 0 {
		out.WeekInterval = dataset.DefaultWeekInterval
	}
	if out.WeekInterval < 0 {
		return nil, fmt.Errorf("got %s, %w", out.WeekInterval, ErrWeekInterval)
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out, nil
}
