// Package sheet reads and writes weekly observation sheets as csv or xlsx. Header names are
// normalized to the canonical columns on load and only the persisted columns are written back.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported sheet format")
	ErrNoHeader          = errors.New("sheet has no header row")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

// Format is a sheet file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%q, %w", filepath.Ext(path), ErrUnsupportedFormat)
	}
}

// ReadFile loads a dataset from a csv or xlsx file.
func ReadFile(path string) (*dataset.Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	return ds, nil
}

// Read loads a dataset in the given format.
func Read(r io.Reader, format Format) (*dataset.Dataset, error) {
	var rows [][]string
	var err error
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%q, %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

// FromRows builds a dataset from a header row followed by data rows. Rows with every cell blank are
// skipped. Columns missing from the header are undefined on every row.
func FromRows(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	l := newLayout(rows[0])

	records := make([]dataset.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		records = append(records, l.record(row))
	}
	return dataset.FromRecords(records), nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse csv, %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		// spreadsheet exports often lead with a byte order mark
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook, %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s, %w", name, err)
	}
	return rows, nil
}

// WriteFile saves the persisted columns of ds as csv or xlsx.
func WriteFile(path string, ds *dataset.Dataset) error {
	return WriteRecordsFile(path, ds.Records())
}

// WriteRecordsFile saves records as csv or xlsx, picking the format from the extension. Records are
// written in the order given and keep their lagged index as is.
func WriteRecordsFile(path string, records []dataset.Record) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRecords(f, records, format); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return f.Close()
}

// Write encodes the persisted columns of ds in the given format.
func Write(w io.Writer, ds *dataset.Dataset, format Format) error {
	return WriteRecords(w, ds.Records(), format)
}

// WriteRecords encodes records in the given format.
func WriteRecords(w io.Writer, records []dataset.Record, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatXLSX:
		return writeXLSX(w, records)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnsupportedFormat)
	}
}

func writeCSV(w io.Writer, records []dataset.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PersistedHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Week,
			formatPeriod(r.Period),
			formatNumber(r.IndexT),
			formatNumber(r.IndexTMinus1),
			formatNumber(r.CasesT),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, records []dataset.Record) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := setRow(f, sheet, 1, toCells(PersistedHeader)); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{
			xlsxWeek(r.Week),
			xlsxValue(r.Period),
			xlsxNumber(r.IndexT),
			xlsxNumber(r.IndexTMinus1),
			xlsxNumber(r.CasesT),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// WriteTemplate saves a blank sheet holding only the entry header.
func WriteTemplate(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeTemplate(out, format); err != nil {
		out.Close()
		return fmt.Errorf("unable to write template %s, %w", path, err)
	}
	return out.Close()
}

func writeTemplate(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(TemplateHeader); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	case FormatXLSX:
		f := excelize.NewFile()
		defer f.Close()
		if err := setRow(f, f.GetSheetName(0), 1, toCells(TemplateHeader)); err != nil {
			return err
		}
		return f.Write(w)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnsupportedFormat)
	}
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(header []string) []interface{} {
	cells := make([]interface{}, 0, len(header))
	for _, h := range header {
		cells = append(cells, h)
	}
	return cells
}
