package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliConfig = `
indicators:
  - {code: CO2, name: CO2}
  - {code: GDP, name: GDP}
analysis:
  countries: [China, United States]
  explore: [CO2, GDP]
  correlate: [CO2, GDP]
  pivot_indicator: CO2
  charts:
    - {indicator: GDP, title: GDP, xlabel: Year, ylabel: GDP, file: gdp.png}
`

func TestCLI_Analyze(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	out := filepath.Join(dir, "out")
	require.NoError(t, NewCSVStore(data).Save(context.Background(), sampleTable()))
	config := writeFile(t, "wbexplore.yaml", cliConfig)

	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"analyze", "--config", config, "--data", data, "--out", out, "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, stdout.String(), "ANALYSIS COMPLETE")
	assert.Equal(t, data, cfg.Store.DataFile)
	assert.Equal(t, out, cfg.Output.Dir)
	for _, name := range []string{"gdp.png", "correlation_heatmap.png", "worldbank_analysis.xlsx", "worldbank_report.md"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestSetupLogging(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	setupLogging(&buf, "WARN")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	setupLogging(&buf, "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
