package api

import (
	"math"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/correlation"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Row is an observation as returned by the API. Undefined values are null.
type Row struct {
	Position            int      `json:"position"`
	Week                string   `json:"week"`
	Period              string   `json:"period,omitempty"`
	IndexT              *float64 `json:"index_t"`
	IndexTMinus1        *float64 `json:"index_t_minus_1"`
	CasesT              *float64 `json:"cases_t"`
	EstWithoutIntercept *float64 `json:"est_without_intercept"`
	EstWithIntercept    *float64 `json:"est_with_intercept"`
}

// ObservationsResponse lists the working dataset in period order.
type ObservationsResponse struct {
	Rows       []Row              `json:"rows"`
	Ready      bool               `json:"ready"`
	Suggestion dataset.Suggestion `json:"suggestion"`
}

// CorrelationResponse is the level model report.
type CorrelationResponse struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	R2        float64 `json:"r_squared"`
	Weak      bool    `json:"weak"`
	Rows      []Row   `json:"rows"`
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newRow(i int, o dataset.Observation) Row {
	r := Row{
		Position:            i,
		Week:                o.Week,
		IndexT:              optional(o.IndexT),
		IndexTMinus1:        optional(o.IndexTMinus1),
		CasesT:              optional(o.CasesT),
		EstWithoutIntercept: optional(o.EstWithoutIntercept),
		EstWithIntercept:    optional(o.EstWithIntercept),
	}
	if !o.Period.IsZero() {
		r.Period = o.Period.Format(dataset.DateLayout)
	}
	return r
}

func newRows(obs []dataset.Observation) []Row {
	rows := make([]Row, 0, len(obs))
	for i, o := range obs {
		rows = append(rows, newRow(i, o))
	}
	return rows
}

func newCorrelationResponse(rep *correlation.Report) CorrelationResponse {
	return CorrelationResponse{
		Slope:     rep.Slope,
		Intercept: rep.Intercept,
		R:         rep.R,
		R2:        rep.R2,
		Weak:      rep.Weak,
		Rows:      newRows(rep.Rows),
	}
}
