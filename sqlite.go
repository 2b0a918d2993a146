package main

import (
	"context"
	"database/sql"
	"math"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS indicators (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS observations (
	country   TEXT    NOT NULL,
	year      INTEGER NOT NULL,
	indicator TEXT    NOT NULL,
	value     REAL,
	PRIMARY KEY (country, year, indicator)
);`

// SQLiteStore keeps the flat table in long format: one row per
// (country, year, indicator). Missing values are stored as NULL.
type SQLiteStore struct {
	Path string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{Path: path}
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, newErrorCause(CodeStorage, err, "open sqlite %s", s.Path)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, newErrorCause(CodeStorage, err, "create schema in %s", s.Path)
	}
	return db, nil
}

// Save replaces the stored table inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return newErrorCause(CodeStorage, err, "begin transaction")
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM observations`, `DELETE FROM indicators`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return newErrorCause(CodeStorage, err, "clear tables")
		}
	}
	for i, name := range t.Indicators {
		if _, err := tx.ExecContext(ctx, `INSERT INTO indicators (position, name) VALUES (?, ?)`, i, name); err != nil {
			return newErrorCause(CodeStorage, err, "insert indicator %q", name)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (country, year, indicator, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return newErrorCause(CodeStorage, err, "prepare insert")
	}
	defer stmt.Close()

	for _, r := range t.Rows {
		for i, v := range r.Values {
			var value sql.NullFloat64
			if !math.IsNaN(v) {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, r.Country, r.Year, t.Indicators[i], value); err != nil {
				return newErrorCause(CodeStorage, err, "insert %s/%d", r.Country, r.Year)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return newErrorCause(CodeStorage, err, "commit")
	}
	log.Info().Str("path", s.Path).Int("rows", t.Len()).Msg("sqlite mirror saved")
	return nil
}

// Load rebuilds the flat table and drops rows with any missing value.
func (s *SQLiteStore) Load(ctx context.Context) (*Table, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name FROM indicators ORDER BY position`)
	if err != nil {
		return nil, newErrorCause(CodeStorage, err, "query indicators")
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, newErrorCause(CodeStorage, err, "scan indicator")
		}
		names = append(names, name)
	}
	rows.Close()
	if len(names) == 0 {
		return nil, newError(CodeNotFound, "no data in %s, run refresh first", s.Path)
	}

	t := NewTable(names)
	col := make(map[string]int, len(names))
	for i, n := range names {
		col[n] = i
	}

	obs, err := db.QueryContext(ctx, `SELECT country, year, indicator, value FROM observations ORDER BY country, year`)
	if err != nil {
		return nil, newErrorCause(CodeStorage, err, "query observations")
	}
	defer obs.Close()

	index := make(map[rowKey]int)
	for obs.Next() {
		var (
			country   string
			year      int
			indicator string
			value     sql.NullFloat64
		)
		if err := obs.Scan(&country, &year, &indicator, &value); err != nil {
			return nil, newErrorCause(CodeStorage, err, "scan observation")
		}
		c, ok := col[indicator]
		if !ok {
			return nil, newError(CodeInvalidInput, "observation for unknown indicator %q", indicator)
		}
		k := rowKey{country, year}
		pos, ok := index[k]
		if !ok {
			values := make([]float64, len(names))
			for i := range values {
				values[i] = math.NaN()
			}
			t.Rows = append(t.Rows, Row{Country: country, Year: year, Values: values})
			pos = len(t.Rows) - 1
			index[k] = pos
		}
		if value.Valid {
			t.Rows[pos].Values[c] = value.Float64
		}
	}
	if err := obs.Err(); err != nil {
		return nil, newErrorCause(CodeStorage, err, "read observations")
	}

	return t.DropMissing(), nil
}
