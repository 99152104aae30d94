// Package store persists named datasets in an embedded SQLite database. Only the canonical columns
// are stored. Estimates are recomputed whenever a dataset is loaded into a session.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("dataset not found")
	ErrEmptyName = errors.New("dataset name is empty")
)

const timeLayout = time.RFC3339Nano

// Summary describes a stored dataset.
type Summary struct {
	Name    string    `json:"name"`
	Rows    int       `json:"rows"`
	SavedAt time.Time `json:"saved_at"`
}

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens or creates the database at path and initializes the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps writes serialized and in-memory databases shared
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS observations (
		dataset TEXT NOT NULL,
		position INTEGER NOT NULL,
		week TEXT NOT NULL DEFAULT '',
		period TEXT,
		index_t REAL,
		index_t_minus_1 REAL,
		cases_t REAL,
		PRIMARY KEY (dataset, position)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save replaces the stored dataset called name with ds.
func (db *DB) Save(ctx context.Context, name string, ds *dataset.Dataset) error {
	if name == "" {
		return ErrEmptyName
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE dataset = ?`, name); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
	INSERT INTO datasets (name, saved_at) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at
	`, name, db.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO observations (dataset, position, week, period, index_t, index_t_minus_1, cases_t)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records() {
		_, err := stmt.ExecContext(ctx,
			name, i, r.Week,
			nullTime(r.Period),
			nullFloat(r.IndexT),
			nullFloat(r.IndexTMinus1),
			nullFloat(r.CasesT),
		)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load reads the stored dataset called name.
func (db *DB) Load(ctx context.Context, name string) (*dataset.Dataset, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM datasets WHERE name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT week, period, index_t, index_t_minus_1, cases_t
	FROM observations WHERE dataset = ? ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var records []dataset.Record
	for rows.Next() {
		var (
			r                 dataset.Record
			period            sql.NullString
			index, lag, cases sql.NullFloat64
		)
		if err := rows.Scan(&r.Week, &period, &index, &lag, &cases); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if period.Valid {
			r.Period, err = time.Parse(timeLayout, period.String)
			if err != nil {
				return nil, fmt.Errorf("parse period %q: %w", period.String, err)
			}
		}
		r.IndexT = floatOrNaN(index)
		r.IndexTMinus1 = floatOrNaN(lag)
		r.CasesT = floatOrNaN(cases)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.FromRecords(records), nil
}

// List returns every stored dataset ordered by name.
func (db *DB) List(ctx context.Context) ([]Summary, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT d.name, d.saved_at, COUNT(o.position)
	FROM datasets d LEFT JOIN observations o ON o.dataset = d.name
	GROUP BY d.name, d.saved_at
	ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var savedAt string
		if err := rows.Scan(&s.Name, &savedAt, &s.Rows); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		s.SavedAt, err = time.Parse(timeLayout, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the stored dataset called name.
func (db *DB) Delete(ctx context.Context, name string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE dataset = ?`, name); err != nil {
		return fmt.Errorf("delete observations: %w", err)
	}
	return tx.Commit()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
