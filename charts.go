package main

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
}

// PlotTimeSeries draws one line per country for indicator over Year and saves
// the chart as a PNG at path.
func PlotTimeSeries(t *Table, indicator string, countries []string, opts ChartOptions, path string) error {
	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Legend.Top = true
	p.Legend.Left = true

	for i, country := range countries {
		years, values, err := t.Series(country, indicator)
		if err != nil {
			return err
		}
		if len(years) == 0 {
			continue
		}

		points := make(plotter.XYs, len(years))
		for k := range years {
			points[k].X = float64(years[k])
			points[k].Y = values[k]
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return newErrorCause(CodeRender, err, "line for %s", country)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)

		p.Add(line)
		p.Legend.Add(country, line)
	}

	p.Add(plotter.NewGrid())

	return savePlot(p, 8*vg.Inch, 6*vg.Inch, path)
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type corrGrid struct {
	c *Correlation
}

func (g corrGrid) Dims() (c, r int) {
	n := len(g.c.Names)
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	n := len(g.c.Names)
	return g.c.Matrix.At(n-1-r, c)
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

// Min and Max pin the color scale to the full correlation range.
func (g corrGrid) Min() float64 { return -1 }
func (g corrGrid) Max() float64 { return 1 }

// PlotHeatmap renders the matrix with a YlGnBu scale and the coefficient
// printed in every cell.
func PlotHeatmap(c *Correlation, title, path string) error {
	n := len(c.Names)
	if n == 0 {
		return newError(CodeRender, "empty correlation matrix")
	}

	pal, err := brewer.GetPalette(brewer.TypeSequential, "YlGnBu", 9)
	if err != nil {
		return newErrorCause(CodeRender, err, "palette")
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)

	grid := corrGrid{c: c}
	heat := plotter.NewHeatMap(grid, pal)
	heat.NaN = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	p.Add(heat)

	points := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for col := 0; col < n; col++ {
		for row := 0; row < n; row++ {
			points = append(points, plotter.XY{X: float64(col), Y: float64(row)})
			labels = append(labels, formatCoefficient(grid.Z(col, row)))
		}
	}
	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: labels})
	if err != nil {
		return newErrorCause(CodeRender, err, "annotations")
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = draw.XCenter
		annotations.TextStyle[i].YAlign = draw.YCenter
		if v := grid.Z(i/n, i%n); !math.IsNaN(v) && v > 0.5 {
			annotations.TextStyle[i].Color = color.White
		}
	}
	p.Add(annotations)

	xNames := make([]string, n)
	yNames := make([]string, n)
	for i, name := range c.Names {
		xNames[i] = shortIndicatorName(name)
		yNames[n-1-i] = shortIndicatorName(name)
	}
	p.NominalX(xNames...)
	p.NominalY(yNames...)
	p.X.Tick.Label.Rotation = math.Pi / 8
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return savePlot(p, 8*vg.Inch, 6*vg.Inch, path)
}

func savePlot(p *plot.Plot, w, h vg.Length, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return newErrorCause(CodeRender, err, "create %s", dir)
		}
	}
	if err := p.Save(w, h, path); err != nil {
		return newErrorCause(CodeRender, err, "save %s", path)
	}
	return nil
}

func formatCoefficient(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

// shortIndicatorName drops the unit suffix, "GDP (current US$)" -> "GDP".
func shortIndicatorName(name string) string {
	for i, r := range name {
		if r == '(' && i > 0 {
			return trimRightSpace(name[:i])
		}
	}
	return name
}

func trimRightSpace(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == ',') {
		s = s[:len(s)-1]
	}
	return s
}
