package main

import (
	"math"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplore_FiltersAndProjects(t *testing.T) {
	selected, summary, err := Explore(sampleTable(), []string{"United States", "India"}, []string{testGDP})
	require.NoError(t, err)

	assert.Equal(t, []string{testGDP}, selected.Indicators)
	require.Equal(t, 3, selected.Len())
	for _, r := range selected.Rows {
		assert.Equal(t, "United States", r.Country)
	}

	// India has no rows and is left out of the summary
	assert.Equal(t, []string{"United States"}, summary.Countries)

	d, ok := summary.Lookup(testGDP, "United States")
	require.True(t, ok)
	assert.Equal(t, 3, d.Count)
	assert.InDelta(t, 11, d.Mean, 1e-12)
	assert.InDelta(t, 1, d.Std, 1e-12)
	assert.Equal(t, 10.0, d.Min)
	assert.InDelta(t, 10.5, d.Q25, 1e-12)
	assert.InDelta(t, 11, d.Q50, 1e-12)
	assert.InDelta(t, 11.5, d.Q75, 1e-12)
	assert.Equal(t, 12.0, d.Max)
}

func TestExplore_SkipsMissingValuesPerIndicator(t *testing.T) {
	_, summary, err := Explore(sampleTable(), []string{"China"}, []string{testCO2, testGDP})
	require.NoError(t, err)

	co2, _ := summary.Lookup(testCO2, "China")
	gdp, _ := summary.Lookup(testGDP, "China")
	assert.Equal(t, 3, co2.Count)
	assert.Equal(t, 2, gdp.Count)
}

func TestExplore_UnknownIndicator(t *testing.T) {
	_, _, err := Explore(sampleTable(), []string{"China"}, []string{"Rainfall"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDescribe_SingleValue(t *testing.T) {
	d := describe(stats.Float64Data{42})
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, 42.0, d.Mean)
	assert.True(t, math.IsNaN(d.Std))
	assert.Equal(t, 42.0, d.Q25)
	assert.Equal(t, 42.0, d.Max)
}

func TestDescribe_Empty(t *testing.T) {
	d := describe(nil)
	assert.Equal(t, 0, d.Count)
	assert.True(t, math.IsNaN(d.Mean))
	assert.True(t, math.IsNaN(d.Max))
}

func TestPercentileLinear(t *testing.T) {
	data := stats.Float64Data{4, 1, 3, 2}

	tests := []struct {
		percent float64
		want    float64
	}{
		{0, 1},
		{25, 1.75},
		{50, 2.5},
		{75, 3.25},
		{100, 4},
	}
	for _, tt := range tests {
		got, err := percentileLinear(data, tt.percent)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12, "p%v", tt.percent)
	}
	assert.Equal(t, stats.Float64Data{4, 1, 3, 2}, data, "input must stay unsorted")

	_, err := percentileLinear(data, 101)
	assert.ErrorIs(t, err, stats.ErrBounds)
}

func TestSummary_RowsAreTransposed(t *testing.T) {
	_, summary, err := Explore(sampleTable(), []string{"China", "United States"}, []string{testCO2, testGDP})
	require.NoError(t, err)

	rows := summary.Rows()
	require.Len(t, rows, 2*len(StatisticNames))
	assert.Equal(t, SummaryRow{Indicator: testCO2, Statistic: "count", Values: []float64{3, 3}}, rows[0])
	assert.Equal(t, testGDP, rows[len(StatisticNames)].Indicator)
	assert.Equal(t, "max", rows[len(rows)-1].Statistic)
	assert.Equal(t, []float64{6, 12}, rows[len(rows)-1].Values)
}
