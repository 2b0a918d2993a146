package main

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Correlation is a symmetric Pearson matrix over Names.
type Correlation struct {
	Names   []string
	Matrix  *mat.SymDense
	Samples int
}

func (c *Correlation) At(a, b string) float64 {
	i, j := indexOf(c.Names, a), indexOf(c.Names, b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return c.Matrix.At(i, j)
}

// Correlate computes pairwise Pearson coefficients. Rows missing any of the
// chosen indicators are skipped. A column with fewer than two samples or no
// variance correlates as NaN, including with itself.
func Correlate(t *Table, indicators []string) (*Correlation, error) {
	if len(indicators) == 0 {
		return nil, newError(CodeInvalidInput, "no indicators to correlate")
	}
	projected, err := t.Select(indicators)
	if err != nil {
		return nil, err
	}
	complete := projected.DropMissing()

	n := len(indicators)
	cols := make([][]float64, n)
	for i := range cols {
		cols[i] = make([]float64, complete.Len())
	}
	for r, row := range complete.Rows {
		for i, v := range row.Values {
			cols[i][r] = v
		}
	}

	degenerate := make([]bool, n)
	for i, col := range cols {
		degenerate[i] = len(col) < 2 || stat.Variance(col, nil) == 0
	}

	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			switch {
			case degenerate[i] || degenerate[j]:
				m.SetSym(i, j, math.NaN())
			case i == j:
				m.SetSym(i, j, 1)
			default:
				r := stat.Correlation(cols[i], cols[j], nil)
				m.SetSym(i, j, clamp(r, -1, 1))
			}
		}
	}

	return &Correlation{
		Names:   append([]string(nil), indicators...),
		Matrix:  m,
		Samples: complete.Len(),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(lo, math.Min(v, hi))
}
