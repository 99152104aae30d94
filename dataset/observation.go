package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedInput = errors.New("malformed observation input")
	ErrEmptyWeek      = errors.New("week identifier is empty")
	ErrNoPeriod       = errors.New("observation has no period")
)

// Observation is one weekly record. Undefined numeric values are NaN.
type Observation struct {
	Week         string    `json:"week"`
	Period       time.Time `json:"period"`
	IndexT       float64   `json:"index_t"`
	IndexTMinus1 float64   `json:"index_t_minus_1"`
	CasesT       float64   `json:"cases_t"`

	// derived by the reconstruction, never persisted
	EstWithoutIntercept float64 `json:"est_without_intercept"`
	EstWithIntercept    float64 `json:"est_with_intercept"`
}

// NewObservation returns an observation whose lagged index is undefined until the dataset is sorted.
func NewObservation(week string, period time.Time, index, cases float64) Observation {
	return Observation{
		Week:         week,
		Period:       period,
		IndexT:       index,
		IndexTMinus1: math.NaN(),
		CasesT:       cases,
	}
}

// WeekNumber reports the week as an integer when it is a non-negative whole number in text form.
func (o Observation) WeekNumber() (int, bool) {
	w := strings.TrimSpace(o.Week)
	if w == "" {
		return 0, false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Record is the persisted shape of an observation. It carries the five canonical columns only.
type Record struct {
	Week         string    `json:"week"`
	Period       time.Time `json:"period"`
	IndexT       float64   `json:"index_t"`
	IndexTMinus1 float64   `json:"index_t_minus_1"`
	CasesT       float64   `json:"cases_t"`
}

// Record drops the derived estimate columns.
func (o Observation) Record() Record {
	return Record{
		Week:         o.Week,
		Period:       o.Period,
		IndexT:       o.IndexT,
		IndexTMinus1: o.IndexTMinus1,
		CasesT:       o.CasesT,
	}
}

// Observation converts a persisted record back into an observation with zeroed estimates.
func (r Record) Observation() Observation {
	return Observation{
		Week:         r.Week,
		Period:       r.Period,
		IndexT:       r.IndexT,
		IndexTMinus1: r.IndexTMinus1,
		CasesT:       r.CasesT,
	}
}

// Entry is a manually typed observation as it arrives from a form.
type Entry struct {
	Week   string `json:"week"`
	Period string `json:"period"`
	Index  string `json:"index"`
	Cases  string `json:"cases"`
}

// DateLayout is the layout accepted for Entry periods.
const DateLayout = "2006-01-02"

// Parse validates the entry. Nothing is mutated when an error is returned.
func (e Entry) Parse() (Observation, error) {
	week := strings.TrimSpace(e.Week)
	if week == "" {
		return Observation{}, fmt.Errorf("%w, %w", ErrEmptyWeek, ErrMalformedInput)
	}

	periodStr := strings.TrimSpace(e.Period)
	if periodStr == "" {
		return Observation{}, fmt.Errorf("%w, %w", ErrNoPeriod, ErrMalformedInput)
	}
	period, err := time.Parse(DateLayout, periodStr)
	if err != nil {
		return Observation{}, fmt.Errorf("period %q, %w", e.Period, ErrMalformedInput)
	}

	index, err := parseNumber(e.Index)
	if err != nil {
		return Observation{}, fmt.Errorf("index %q, %w", e.Index, ErrMalformedInput)
	}
	cases, err := parseNumber(e.Cases)
	if err != nil {
		return Observation{}, fmt.Errorf("cases %q, %w", e.Cases, ErrMalformedInput)
	}

	return NewObservation(week, period, index, cases), nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
