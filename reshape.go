package main

import (
	"math"
	"strconv"
)

// Wide is a pivoted view of one indicator. Cells[i][j] belongs to
// RowKeys[i] and ColKeys[j]; absent cells are NaN.
type Wide struct {
	Indicator string
	RowLabel  string
	ColLabel  string
	RowKeys   []string
	ColKeys   []string
	Cells     [][]float64
}

func (w *Wide) At(row, col string) (float64, bool) {
	i := indexOf(w.RowKeys, row)
	j := indexOf(w.ColKeys, col)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return w.Cells[i][j], true
}

// Transpose swaps rows and columns.
func (w *Wide) Transpose() *Wide {
	out := &Wide{
		Indicator: w.Indicator,
		RowLabel:  w.ColLabel,
		ColLabel:  w.RowLabel,
		RowKeys:   append([]string(nil), w.ColKeys...),
		ColKeys:   append([]string(nil), w.RowKeys...),
		Cells:     make([][]float64, len(w.ColKeys)),
	}
	for j := range w.ColKeys {
		out.Cells[j] = make([]float64, len(w.RowKeys))
		for i := range w.RowKeys {
			out.Cells[j][i] = w.Cells[i][j]
		}
	}
	return out
}

// PivotByCountry lays one indicator out with a row per country and a column
// per year. A repeated (Country, Year) is an error, never an aggregate.
func PivotByCountry(t *Table, indicator string) (*Wide, error) {
	c := t.Column(indicator)
	if c < 0 {
		return nil, newError(CodeInvalidInput, "unknown indicator column %q", indicator)
	}
	if err := t.Validate(); err != nil {
		return nil, wrapError(err, CodeDuplicateKey, "cannot pivot %q", indicator)
	}

	countries := t.Countries()
	years := t.Years()
	yearKeys := make([]string, len(years))
	yearPos := make(map[int]int, len(years))
	for j, y := range years {
		yearKeys[j] = strconv.Itoa(y)
		yearPos[y] = j
	}
	countryPos := make(map[string]int, len(countries))
	for i, name := range countries {
		countryPos[name] = i
	}

	cells := make([][]float64, len(countries))
	for i := range cells {
		cells[i] = make([]float64, len(years))
		for j := range cells[i] {
			cells[i][j] = math.NaN()
		}
	}
	for _, r := range t.Rows {
		cells[countryPos[r.Country]][yearPos[r.Year]] = r.Values[c]
	}

	return &Wide{
		Indicator: indicator,
		RowLabel:  colCountry,
		ColLabel:  colYear,
		RowKeys:   countries,
		ColKeys:   yearKeys,
		Cells:     cells,
	}, nil
}

// PivotByYear lays one indicator out with a row per year and a column per country.
func PivotByYear(t *Table, indicator string) (*Wide, error) {
	w, err := PivotByCountry(t, indicator)
	if err != nil {
		return nil, err
	}
	return w.Transpose(), nil
}

// Reshape returns both pivots of one indicator.
func Reshape(t *Table, indicator string) (byCountry, byYear *Wide, err error) {
	byCountry, err = PivotByCountry(t, indicator)
	if err != nil {
		return nil, nil, err
	}
	return byCountry, byCountry.Transpose(), nil
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
