package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintSummary(t *testing.T) {
	_, summary, err := Explore(sampleTable(), []string{"China", "United States"}, []string{testGDP})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "Summary statistics")
	assert.Contains(t, out, "Statistic")
	assert.Contains(t, out, "United States")
	for _, stat := range StatisticNames {
		assert.Contains(t, out, stat)
	}
	// sample std of 10, 11, 12
	assert.Contains(t, out, " 1 ")
}

func TestPrintCorrelation(t *testing.T) {
	c, err := Correlate(sampleTable(), []string{testCO2, testGDP})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintCorrelation(&buf, c)

	out := buf.String()
	assert.Contains(t, out, "5 observations")
	assert.Contains(t, out, "1.00")
}
