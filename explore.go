package main

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Description holds the describe() statistics of one country/indicator group.
type Description struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// StatisticNames is the row order of the transposed summary.
var StatisticNames = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func (d Description) Values() []float64 {
	return []float64{float64(d.Count), d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max}
}

// Summary is the grouped statistics table. Stats[i][j] describes
// Indicators[i] for Countries[j].
type Summary struct {
	Countries  []string
	Indicators []string
	Stats      [][]Description
}

// SummaryRow is one line of the transposed presentation.
type SummaryRow struct {
	Indicator string
	Statistic string
	Values    []float64
}

// Rows flattens the summary into (indicator, statistic) rows with one value per country.
func (s *Summary) Rows() []SummaryRow {
	var out []SummaryRow
	for i, ind := range s.Indicators {
		perCountry := make([][]float64, len(s.Countries))
		for j := range s.Countries {
			perCountry[j] = s.Stats[i][j].Values()
		}
		for k, stat := range StatisticNames {
			values := make([]float64, len(s.Countries))
			for j := range s.Countries {
				values[j] = perCountry[j][k]
			}
			out = append(out, SummaryRow{Indicator: ind, Statistic: stat, Values: values})
		}
	}
	return out
}

// Lookup returns the description of one indicator for one country.
func (s *Summary) Lookup(indicator, country string) (Description, bool) {
	i := indexOf(s.Indicators, indicator)
	j := indexOf(s.Countries, country)
	if i < 0 || j < 0 {
		return Description{}, false
	}
	return s.Stats[i][j], true
}

// Explore filters the table to countries, projects it to indicators and
// describes every indicator per country.
func Explore(t *Table, countries, indicators []string) (*Table, *Summary, error) {
	selected, err := t.FilterCountries(countries).Select(indicators)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]Row)
	for _, r := range selected.Rows {
		groups[r.Country] = append(groups[r.Country], r)
	}
	present := make([]string, 0, len(groups))
	for name := range groups {
		present = append(present, name)
	}
	sort.Strings(present)

	summary := &Summary{
		Countries:  present,
		Indicators: append([]string(nil), indicators...),
		Stats:      make([][]Description, len(indicators)),
	}
	for i := range indicators {
		summary.Stats[i] = make([]Description, len(present))
		for j, country := range present {
			rows := groups[country]
			data := make(stats.Float64Data, 0, len(rows))
			for _, r := range rows {
				if !math.IsNaN(r.Values[i]) {
					data = append(data, r.Values[i])
				}
			}
			summary.Stats[i][j] = describe(data)
		}
	}
	return selected, summary, nil
}

var quartiles = []float64{25, 50, 75}

func describe(data stats.Float64Data) Description {
	nan := math.NaN()
	if len(data) == 0 {
		return Description{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}

	d, err := stats.DescribePercentileFunc(data, false, &quartiles, percentileLinear)
	if err != nil {
		return Description{Count: len(data), Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}

	out := Description{Count: d.Count, Mean: d.Mean, Min: d.Min, Max: d.Max, Std: nan}
	// stats.Describe reports the population deviation; the summary uses the sample one.
	if d.Count > 1 {
		out.Std, _ = stats.StandardDeviationSample(data)
	}
	out.Q25, out.Q50, out.Q75 = nan, nan, nan
	for _, p := range d.DescriptionPercentiles {
		switch p.Percentile {
		case 25:
			out.Q25 = p.Value
		case 50:
			out.Q50 = p.Value
		case 75:
			out.Q75 = p.Value
		}
	}
	return out
}

// percentileLinear interpolates between the two closest ranks at (n-1)*p.
// stats.Percentile averages neighbours instead, which disagrees with the
// usual describe() quartiles on small samples.
func percentileLinear(input stats.Float64Data, percent float64) (float64, error) {
	if input.Len() == 0 {
		return math.NaN(), stats.ErrEmptyInput
	}
	if percent < 0 || percent > 100 {
		return math.NaN(), stats.ErrBounds
	}
	sorted := append(stats.Float64Data(nil), input...)
	sort.Sort(sorted)
	pos := (percent / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}
