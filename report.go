package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// WriteReport writes a markdown summary of the run to path and its HTML
// rendering next to it.
func WriteReport(path string, a *Analysis) error {
	md := buildReport(a)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return newErrorCause(CodeStorage, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(md), 0644); err != nil {
		return newErrorCause(CodeStorage, err, "write report %s", path)
	}

	htmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	if err := os.WriteFile(htmlPath, renderHTML(md, "World Bank Indicators Report"), 0644); err != nil {
		return newErrorCause(CodeStorage, err, "write report %s", htmlPath)
	}
	return nil
}

func renderHTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Title: title,
	})
	return markdown.ToHTML([]byte(md), p, r)
}

func buildReport(a *Analysis) string {
	var b strings.Builder

	b.WriteString("# World Bank Development Indicators\n\n")
	b.WriteString("### 📊 Run\n\n")
	fmt.Fprintf(&b, "- **Run ID**: %s\n", a.RunID)
	fmt.Fprintf(&b, "- **Generated**: %s\n", a.GeneratedAt.Format("2 January 2006 15:04"))
	fmt.Fprintf(&b, "- **Source**: %s\n", a.Source)
	fmt.Fprintf(&b, "- **Countries requested**: %s\n", strings.Join(a.Countries, ", "))
	fmt.Fprintf(&b, "- **Countries with data**: %s\n", strings.Join(a.Summary.Countries, ", "))
	fmt.Fprintf(&b, "- **Observations analysed**: %d\n", a.Selected.Len())
	if years := a.Selected.Years(); len(years) > 0 {
		fmt.Fprintf(&b, "- **Years**: %d-%d\n", years[0], years[len(years)-1])
	}

	b.WriteString("\n### 📋 Summary statistics\n\n")
	b.WriteString("| Indicator | Statistic |")
	for _, c := range a.Summary.Countries {
		fmt.Fprintf(&b, " %s |", c)
	}
	b.WriteString("\n|---|---|")
	for range a.Summary.Countries {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range a.Summary.Rows() {
		fmt.Fprintf(&b, "| %s | %s |", escapeCell(r.Indicator), r.Statistic)
		for _, v := range r.Values {
			if r.Statistic == "count" {
				fmt.Fprintf(&b, " %.0f |", v)
			} else {
				fmt.Fprintf(&b, " %s |", formatNumber(v))
			}
		}
		b.WriteString("\n")
	}

	c := a.Correlation
	fmt.Fprintf(&b, "\n### 📈 Correlations (%d complete observations)\n\n", c.Samples)
	b.WriteString("| |")
	for _, n := range c.Names {
		fmt.Fprintf(&b, " %s |", escapeCell(shortIndicatorName(n)))
	}
	b.WriteString("\n|---|")
	for range c.Names {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, n := range c.Names {
		fmt.Fprintf(&b, "| %s |", escapeCell(shortIndicatorName(n)))
		for j := range c.Names {
			fmt.Fprintf(&b, " %s |", formatCoefficient(c.Matrix.At(i, j)))
		}
		b.WriteString("\n")
	}

	if len(a.Charts) > 0 {
		b.WriteString("\n### 🖼️ Charts\n\n")
		for _, chart := range a.Charts {
			fmt.Fprintf(&b, "- ![%s](%s)\n", filepath.Base(chart), filepath.Base(chart))
		}
	}

	b.WriteString("\n---\n*Generated by wbexplore*\n")
	return b.String()
}

// formatNumber abbreviates large magnitudes, 1.2e12 -> "1.20T".
func formatNumber(num float64) string {
	abs := math.Abs(num)
	switch {
	case math.IsNaN(num):
		return "NaN"
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", num/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", num/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", num/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", num/1e3)
	case abs >= 1:
		return fmt.Sprintf("%.2f", num)
	default:
		return fmt.Sprintf("%.4f", num)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
