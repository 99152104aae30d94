// Package dataset holds the ordered set of weekly observations the delta model is fit on. Rows are
// always kept in ascending period order with the lagged index derived from the previous row.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrRowOutOfBounds      = errors.New("row is out of bounds")
	ErrEstimateLenMismatch = errors.New("estimate series has a different length than observations")
)

// DefaultWeekInterval is the spacing between consecutive epidemiological weeks.
const DefaultWeekInterval = 7 * 24 * time.Hour

// Dataset is an ordered sequence of weekly observations. The zero value and a nil pointer are both
// empty datasets.
type Dataset struct {
	rows []Observation
}

// New copies the observations, sorts them by period and derives the lagged index.
func New(obs []Observation) *Dataset {
	rows := make([]Observation, len(obs))
	copy(rows, obs)
	d := &Dataset{rows: rows}
	d.normalize()
	return d
}

// FromRecords builds a dataset from persisted records.
func FromRecords(records []Record) *Dataset {
	obs := make([]Observation, 0, len(records))
	for _, r := range records {
		obs = append(obs, r.Observation())
	}
	return New(obs)
}

// normalize stable sorts by period, placing rows without a period last, then rederives the lag.
func (d *Dataset) normalize() {
	sort.SliceStable(d.rows, func(i, j int) bool {
		pi, pj := d.rows[i].Period, d.rows[j].Period
		if pi.IsZero() || pj.IsZero() {
			return !pi.IsZero() && pj.IsZero()
		}
		return pi.Before(pj)
	})

	for i := range d.rows {
		if i == 0 {
			d.rows[i].IndexTMinus1 = math.NaN()
			continue
		}
		d.rows[i].IndexTMinus1 = d.rows[i-1].IndexT
	}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Empty reports whether there are no observations.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// Rows returns a copy of the observations in period order.
func (d *Dataset) Rows() []Observation {
	rows := make([]Observation, d.Len())
	if d != nil {
		copy(rows, d.rows)
	}
	return rows
}

func (d *Dataset) At(i int) (Observation, error) {
	if i < 0 || i >= d.Len() {
		return Observation{}, fmt.Errorf("row %d of %d, %w", i, d.Len(), ErrRowOutOfBounds)
	}
	return d.rows[i], nil
}

// Last returns the most recent observation.
func (d *Dataset) Last() (Observation, bool) {
	if d.Empty() {
		return Observation{}, false
	}
	return d.rows[len(d.rows)-1], true
}

// Copy returns a deep copy of the dataset.
func (d *Dataset) Copy() *Dataset {
	return &Dataset{rows: d.Rows()}
}

// Append adds an observation and reorders the dataset.
func (d *Dataset) Append(o Observation) {
	d.rows = append(d.rows, o)
	d.normalize()
}

// Replace overwrites the observation at position i and reorders the dataset.
func (d *Dataset) Replace(i int, o Observation) error {
	if i < 0 || i >= d.Len() {
		return fmt.Errorf("row %d of %d, %w", i, d.Len(), ErrRowOutOfBounds)
	}
	d.rows[i] = o
	d.normalize()
	return nil
}

// Remove deletes the observation at position i.
func (d *Dataset) Remove(i int) error {
	if i < 0 || i >= d.Len() {
		return fmt.Errorf("row %d of %d, %w", i, d.Len(), ErrRowOutOfBounds)
	}
	d.rows = append(d.rows[:i], d.rows[i+1:]...)
	d.normalize()
	return nil
}

func (d *Dataset) Periods() []time.Time {
	t := make([]time.Time, 0, d.Len())
	for _, r := range d.Rows() {
		t = append(t, r.Period)
	}
	return t
}

func (d *Dataset) Index() []float64 {
	return d.column(func(o Observation) float64 { return o.IndexT })
}

func (d *Dataset) LaggedIndex() []float64 {
	return d.column(func(o Observation) float64 { return o.IndexTMinus1 })
}

func (d *Dataset) Cases() []float64 {
	return d.column(func(o Observation) float64 { return o.CasesT })
}

func (d *Dataset) EstimatesWithoutIntercept() []float64 {
	return d.column(func(o Observation) float64 { return o.EstWithoutIntercept })
}

func (d *Dataset) EstimatesWithIntercept() []float64 {
	return d.column(func(o Observation) float64 { return o.EstWithIntercept })
}

func (d *Dataset) column(f func(Observation) float64) []float64 {
	col := make([]float64, 0, d.Len())
	for _, r := range d.Rows() {
		col = append(col, f(r))
	}
	return col
}

// SetEstimates overwrites both estimate columns.
func (d *Dataset) SetEstimates(without, with []float64) error {
	if len(without) != d.Len() || len(with) != d.Len() {
		return fmt.Errorf(
			"estimates have lengths %d and %d, but dataset has %d rows, %w",
			len(without), len(with), d.Len(), ErrEstimateLenMismatch,
		)
	}
	for i := range d.rows {
		d.rows[i].EstWithoutIntercept = without[i]
		d.rows[i].EstWithIntercept = with[i]
	}
	return nil
}

// ResetEstimates zeroes both estimate columns.
func (d *Dataset) ResetEstimates() {
	if d == nil {
		return
	}
	for i := range d.rows {
		d.rows[i].EstWithoutIntercept = 0
		d.rows[i].EstWithIntercept = 0
	}
}

// Records returns the persisted form of every row.
func (d *Dataset) Records() []Record {
	records := make([]Record, 0, d.Len())
	for _, r := range d.Rows() {
		records = append(records, r.Record())
	}
	return records
}

// Suggestion holds the prefilled values for the next manual entry.
type Suggestion struct {
	Week      string     `json:"week,omitempty"`
	Period    *time.Time `json:"period,omitempty"`
	HasWeek   bool       `json:"has_week"`
	HasPeriod bool       `json:"has_period"`
}

// Suggest proposes the next week number and period from the latest observation. A non-numeric week
// skips the week suggestion and a missing period skips the period suggestion.
func (d *Dataset) Suggest(interval time.Duration) Suggestion {
	var s Suggestion
	last, ok := d.Last()
	if !ok {
		return s
	}
	if interval <= 0 {
		interval = DefaultWeekInterval
	}
	if n, ok := last.WeekNumber(); ok {
		s.Week = fmt.Sprintf("%d", n+1)
		s.HasWeek = true
	}
	if !last.Period.IsZero() {
		next := last.Period.Add(interval)
		s.Period = &next
		s.HasPeriod = true
	}
	return s
}
