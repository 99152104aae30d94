package sheet

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// Column is a canonical logical column.
type Column int

const (
	ColumnUnknown Column = iota
	ColumnWeek
	ColumnPeriod
	ColumnIndex
	ColumnLaggedIndex
	ColumnCases
)

// PersistedHeader is written on save. Estimate columns are never persisted.
var PersistedHeader = []string{
	"Numero de Semana Epidemiologica",
	"Periodo",
	"Indice",
	"Indice t-1",
	"Casos Reportados",
}

// TemplateHeader is the header of a blank data entry sheet.
var TemplateHeader = []string{
	"Numero de Semana Epidemiologica",
	"Periodo",
	"Indice",
	"Casos Reportados",
}

var aliases = map[string]Column{
	"numero de semana epidemiologica": ColumnWeek,
	"no. semana":                      ColumnWeek,
	"semana":                          ColumnWeek,
	"week":                            ColumnWeek,
	"periodo":                         ColumnPeriod,
	"period":                          ColumnPeriod,
	"indice":                          ColumnIndex,
	"indice_t":                        ColumnIndex,
	"index_t":                         ColumnIndex,
	"indice t-1":                      ColumnLaggedIndex,
	"indice_t_1":                      ColumnLaggedIndex,
	"index_t_minus_1":                 ColumnLaggedIndex,
	"casos reportados":                ColumnCases,
	"casos":                           ColumnCases,
	"casos_t":                         ColumnCases,
	"cases_t":                         ColumnCases,
}

// LookupColumn maps a header cell to its canonical column, ignoring surrounding whitespace and case.
func LookupColumn(header string) Column {
	return aliases[strings.ToLower(strings.TrimSpace(header))]
}

// layout maps each canonical column to its position in a header row. The first matching header
// wins. Missing columns are absent from the map.
type layout map[Column]int

func newLayout(header []string) layout {
	l := make(layout)
	for i, h := range header {
		c := LookupColumn(h)
		if c == ColumnUnknown {
			continue
		}
		if _, exists := l[c]; !exists {
			l[c] = i
		}
	}
	return l
}

func (l layout) cell(row []string, c Column) string {
	i, exists := l[c]
	if !exists || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (l layout) record(row []string) dataset.Record {
	return dataset.Record{
		Week:         NormalizeWeek(l.cell(row, ColumnWeek)),
		Period:       ParsePeriod(l.cell(row, ColumnPeriod)),
		IndexT:       ParseNumber(l.cell(row, ColumnIndex)),
		IndexTMinus1: ParseNumber(l.cell(row, ColumnLaggedIndex)),
		CasesT:       ParseNumber(l.cell(row, ColumnCases)),
	}
}

// NormalizeWeek rewrites whole number weeks stored as decimals, such as 12.0, as integers. Other
// values are returned trimmed.
func NormalizeWeek(s string) string {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}

// ParseNumber coerces a cell to a float. Empty and non-numeric cells are undefined.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// maxExcelSerial is 9999-12-31, the last date a spreadsheet can hold. Larger numbers such as
// 20240107 are left to the date parser.
const maxExcelSerial = 2958465

// ParsePeriod coerces a cell to a date. Plain numbers are read as spreadsheet serial dates and
// anything else goes through loose date parsing. Unparseable values return the zero time.
func ParsePeriod(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPeriod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dataset.DateLayout)
}

// xlsxWeek stores numeric weeks as numbers so spreadsheet sorting and filters keep working.
func xlsxWeek(week string) interface{} {
	if n, err := strconv.Atoi(week); err == nil {
		return n
	}
	return week
}

func xlsxNumber(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func xlsxValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
