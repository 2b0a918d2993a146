package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// PrintSummary writes the transposed statistics table, one row per
// (indicator, statistic) and one column per country.
func PrintSummary(w io.Writer, s *Summary) {
	headingColor.Fprintln(w, "\n📊 Summary statistics")

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Indicator", "Statistic"}, s.Countries...))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAutoMergeCellsByColumnIndex([]int{0})
	table.SetRowLine(true)

	align := []int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT}
	for range s.Countries {
		align = append(align, tablewriter.ALIGN_RIGHT)
	}
	table.SetColumnAlignment(align)

	for _, r := range s.Rows() {
		row := []string{r.Indicator, r.Statistic}
		for _, v := range r.Values {
			if r.Statistic == "count" {
				row = append(row, strconv.Itoa(int(v)))
			} else {
				row = append(row, formatStat(v))
			}
		}
		table.Append(row)
	}
	table.Render()
}

// PrintCorrelation writes the matrix with short indicator names.
func PrintCorrelation(w io.Writer, c *Correlation) {
	headingColor.Fprintf(w, "\n📈 Correlations (%d observations)\n", c.Samples)

	names := make([]string, len(c.Names))
	for i, n := range c.Names {
		names[i] = shortIndicatorName(n)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{""}, names...))
	table.SetAutoFormatHeaders(false)
	for i, n := range names {
		row := []string{n}
		for j := range names {
			row = append(row, formatCoefficient(c.Matrix.At(i, j)))
		}
		table.Append(row)
	}
	table.Render()
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func printDone(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✅ "+format+"\n", args...)
}

func printWarn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠️  "+format+"\n", args...)
}

func printStep(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
