package main

import (
	"fmt"
	"math"
	"sort"
)

const (
	colCountry = "Country"
	colYear    = "Year"
)

// Row is one (Country, Year) observation. Values line up with Table.Indicators
// and NaN marks a missing value.
type Row struct {
	Country string
	Year    int
	Values  []float64
}

// Table is the flat layout: one row per (Country, Year), one column per indicator.
// Operations never mutate a Table in place; they return a new one.
type Table struct {
	Indicators []string
	Rows       []Row
}

type rowKey struct {
	country string
	year    int
}

func NewTable(indicators []string) *Table {
	return &Table{Indicators: append([]string(nil), indicators...)}
}

// Append adds a row; values must match the indicator count.
func (t *Table) Append(country string, year int, values ...float64) {
	if len(values) != len(t.Indicators) {
		panic(fmt.Sprintf("table: %d values for %d indicators", len(values), len(t.Indicators)))
	}
	t.Rows = append(t.Rows, Row{Country: country, Year: year, Values: append([]float64(nil), values...)})
}

func (t *Table) Len() int { return len(t.Rows) }

// Column returns the position of an indicator, or -1.
func (t *Table) Column(name string) int {
	for i, n := range t.Indicators {
		if n == name {
			return i
		}
	}
	return -1
}

func (t *Table) mustColumns(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.Column(name)
		if idx[i] < 0 {
			return nil, newError(CodeInvalidInput, "unknown indicator column %q", name)
		}
	}
	return idx, nil
}

// Validate reports the first duplicated (Country, Year) key.
func (t *Table) Validate() error {
	seen := make(map[rowKey]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		k := rowKey{r.Country, r.Year}
		if _, ok := seen[k]; ok {
			return newError(CodeDuplicateKey, "duplicate observation for %s/%d", r.Country, r.Year)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// DropMissing returns the rows that have a value for every indicator.
func (t *Table) DropMissing() *Table {
	out := NewTable(t.Indicators)
	for _, r := range t.Rows {
		complete := true
		for _, v := range r.Values {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Select projects the table onto the given indicators, in that order.
func (t *Table) Select(indicators []string) (*Table, error) {
	idx, err := t.mustColumns(indicators)
	if err != nil {
		return nil, err
	}
	out := NewTable(indicators)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		values := make([]float64, len(idx))
		for j, c := range idx {
			values[j] = r.Values[c]
		}
		out.Rows[i] = Row{Country: r.Country, Year: r.Year, Values: values}
	}
	return out, nil
}

// FilterCountries keeps rows whose Country is in countries, preserving order.
func (t *Table) FilterCountries(countries []string) *Table {
	want := make(map[string]bool, len(countries))
	for _, c := range countries {
		want[c] = true
	}
	out := NewTable(t.Indicators)
	for _, r := range t.Rows {
		if want[r.Country] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Series returns the (Year, value) points of one country for one indicator,
// sorted by year, skipping missing values.
func (t *Table) Series(country, indicator string) ([]int, []float64, error) {
	c := t.Column(indicator)
	if c < 0 {
		return nil, nil, newError(CodeInvalidInput, "unknown indicator column %q", indicator)
	}
	var rows []Row
	for _, r := range t.Rows {
		if r.Country == country && !math.IsNaN(r.Values[c]) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })

	years := make([]int, len(rows))
	values := make([]float64, len(rows))
	for i, r := range rows {
		years[i] = r.Year
		values[i] = r.Values[c]
	}
	return years, values, nil
}

// Countries returns the distinct country names, sorted.
func (t *Table) Countries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Country] {
			seen[r.Country] = true
			out = append(out, r.Country)
		}
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct years, ascending.
func (t *Table) Years() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range t.Rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	sort.Ints(out)
	return out
}

func (t *Table) sortRows() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		if t.Rows[i].Country != t.Rows[j].Country {
			return t.Rows[i].Country < t.Rows[j].Country
		}
		return t.Rows[i].Year < t.Rows[j].Year
	})
}
