package main

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// Store persists the flat table.
type Store interface {
	Save(ctx context.Context, t *Table) error
	Load(ctx context.Context) (*Table, error)
}

// legacyColumns maps the column names written by older exports.
var legacyColumns = map[string]string{
	"country": colCountry,
	"date":    colYear,
}

var missingTokens = map[string]bool{
	"":    true,
	"NaN": true,
	"nan": true,
	"NA":  true,
	"N/A": true,
}

const lockRetry = 100 * time.Millisecond

// CSVStore keeps the table in a comma-separated file with a Country,Year header.
type CSVStore struct {
	Path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

// Save overwrites the file. The write holds <path>.lock and lands through a
// rename so a concurrent reader sees either the old file or the new one.
func (s *CSVStore) Save(ctx context.Context, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return newErrorCause(CodeStorage, err, "failed to create %s", dir)
		}
	}

	lock := flock.New(s.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return newErrorCause(CodeStorage, err, "failed to lock %s", s.Path)
	}
	if !locked {
		return newError(CodeStorage, "could not acquire lock on %s", s.Path)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return newErrorCause(CodeStorage, err, "failed to create temp file for %s", s.Path)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	header := append([]string{colCountry, colYear}, t.Indicators...)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return newErrorCause(CodeStorage, err, "failed to write header")
	}
	record := make([]string, len(header))
	for _, r := range t.Rows {
		record[0] = r.Country
		record[1] = strconv.Itoa(r.Year)
		for i, v := range r.Values {
			record[i+2] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return newErrorCause(CodeStorage, err, "failed to write row %s/%d", r.Country, r.Year)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return newErrorCause(CodeStorage, err, "failed to flush %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return newErrorCause(CodeStorage, err, "failed to close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return newErrorCause(CodeStorage, err, "failed to replace %s", s.Path)
	}

	log.Info().Str("path", s.Path).Int("rows", t.Len()).Msg("data saved")
	return nil
}

// Load reads the file, renames legacy columns and drops any row with a
// missing value.
func (s *CSVStore) Load(ctx context.Context) (*Table, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErrorCause(CodeNotFound, err, "data file %s not found, run refresh first", s.Path)
		}
		return nil, newErrorCause(CodeStorage, err, "failed to open %s", s.Path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, newErrorCause(CodeInvalidInput, err, "failed to read %s", s.Path)
	}
	if len(records) == 0 {
		return nil, newError(CodeInvalidInput, "%s is empty", s.Path)
	}

	t, err := tableFromRecords(records)
	if err != nil {
		return nil, wrapError(err, CodeInvalidInput, "failed to parse %s", s.Path)
	}

	total := t.Len()
	t = t.DropMissing()
	log.Info().Str("path", s.Path).Int("rows", t.Len()).Int("dropped", total-t.Len()).Msg("data loaded")
	return t, nil
}

func tableFromRecords(records [][]string) (*Table, error) {
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if renamed, ok := legacyColumns[h]; ok {
			h = renamed
		}
		header[i] = h
	}

	countryCol, yearCol := -1, -1
	var indicators []string
	var valueCols []int
	for i, h := range header {
		switch h {
		case colCountry:
			countryCol = i
		case colYear:
			yearCol = i
		default:
			indicators = append(indicators, h)
			valueCols = append(valueCols, i)
		}
	}
	if countryCol < 0 || yearCol < 0 {
		return nil, newError(CodeInvalidInput, "header must contain %s and %s columns, got %v", colCountry, colYear, header)
	}

	t := NewTable(indicators)
	for line, rec := range records[1:] {
		year, err := parseYear(rec[yearCol])
		if err != nil {
			return nil, wrapError(err, CodeInvalidInput, "line %d", line+2)
		}
		values := make([]float64, len(valueCols))
		for i, c := range valueCols {
			v, err := parseValue(rec[c])
			if err != nil {
				return nil, newErrorCause(CodeInvalidInput, err, "line %d column %q", line+2, header[c])
			}
			values[i] = v
		}
		t.Rows = append(t.Rows, Row{Country: rec[countryCol], Year: year, Values: values})
	}
	return t, nil
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if missingTokens[s] {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
