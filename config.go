package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Indicator maps a World Bank series code to the column name used everywhere else.
type Indicator struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// ChartSpec describes one time-series chart.
type ChartSpec struct {
	Indicator string `yaml:"indicator"`
	Title     string `yaml:"title"`
	XLabel    string `yaml:"xlabel"`
	YLabel    string `yaml:"ylabel"`
	File      string `yaml:"file"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Countries string        `yaml:"countries"`
	DateRange string        `yaml:"date_range"`
	PerPage   int           `yaml:"per_page"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
}

type StoreConfig struct {
	DataFile   string `yaml:"data_file"`
	SQLitePath string `yaml:"sqlite_path"`
}

type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Workbook     string `yaml:"workbook"`
	Report       string `yaml:"report"`
	HeatmapTitle string `yaml:"heatmap_title"`
	HeatmapFile  string `yaml:"heatmap_file"`
}

// AnalysisConfig selects what the analyze run looks at.
type AnalysisConfig struct {
	Countries      []string    `yaml:"countries"`
	Explore        []string    `yaml:"explore"`
	Correlate      []string    `yaml:"correlate"`
	PivotIndicator string      `yaml:"pivot_indicator"`
	Charts         []ChartSpec `yaml:"charts"`
}

type Config struct {
	LogLevel   string         `yaml:"log_level"`
	API        APIConfig      `yaml:"api"`
	Store      StoreConfig    `yaml:"store"`
	Output     OutputConfig   `yaml:"output"`
	Indicators []Indicator    `yaml:"indicators"`
	Analysis   AnalysisConfig `yaml:"analysis"`
}

const (
	indCO2        = "CO2 emissions (kt)"
	indEnergy     = "Energy use per capita (kg of oil equivalent)"
	indGDP        = "GDP (current US$)"
	indPopulation = "Population, total"
	indPopGrowth  = "Population growth (annual %)"
	indArable     = "Arable land (hectares per person)"
	indForest     = "Forest area (sq. km)"
)

// DefaultConfig is the stock indicator set with US, China and India and
// one chart per indicator of interest.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		API: APIConfig{
			BaseURL:   "https://api.worldbank.org/v2",
			Countries: "all",
			PerPage:   20000,
			Timeout:   60 * time.Second,
			Workers:   4,
		},
		Store: StoreConfig{
			DataFile: "worldbank_data.csv",
		},
		Output: OutputConfig{
			Dir:          "output",
			Workbook:     "worldbank_analysis.xlsx",
			Report:       "worldbank_report.md",
			HeatmapTitle: "Correlation Heatmap",
			HeatmapFile:  "correlation_heatmap.png",
		},
		Indicators: []Indicator{
			{Code: "EN.ATM.CO2E.KT", Name: indCO2},
			{Code: "EG.USE.PCAP.KG.OE", Name: indEnergy},
			{Code: "NY.GDP.MKTP.CD", Name: indGDP},
			{Code: "SP.POP.TOTL", Name: indPopulation},
			{Code: "SP.POP.GROW", Name: indPopGrowth},
			{Code: "AG.LND.ARBL.HA.PC", Name: indArable},
			{Code: "AG.LND.FRST.K2", Name: indForest},
		},
		Analysis: AnalysisConfig{
			Countries:      []string{"United States", "China", "India"},
			Explore:        []string{indCO2, indGDP, indPopulation, indEnergy, indArable, indForest, indPopGrowth},
			Correlate:      []string{indCO2, indEnergy, indGDP, indPopulation},
			PivotIndicator: indCO2,
			Charts: []ChartSpec{
				{Indicator: indCO2, Title: "CO2 Emissions Over Time", XLabel: "Year", YLabel: indCO2, File: "co2_emissions.png"},
				{Indicator: indGDP, Title: "GDP Over Time", XLabel: "Year", YLabel: indGDP, File: "gdp.png"},
				{Indicator: indPopGrowth, Title: "Population Growth Over Time", XLabel: "Year", YLabel: indPopGrowth, File: "population_growth.png"},
				{Indicator: indEnergy, Title: "Energy Use per Capita Over Time", XLabel: "Year", YLabel: indEnergy, File: "energy_use.png"},
				{Indicator: indArable, Title: "Arable Land per Person Over Time", XLabel: "Year", YLabel: indArable, File: "arable_land.png"},
				{Indicator: indForest, Title: "Forest Area Over Time", XLabel: "Year", YLabel: indForest, File: "forest_area.png"},
			},
		},
	}
}

// LoadConfig layers defaults, an optional YAML file and environment overrides.
// An empty path falls back to WBEXPLORE_CONFIG; no file at all is fine.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("WBEXPLORE_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newError(CodeNotFound, "config file %s not found", path)
		}
		return wrapError(err, CodeConfigInvalid, "failed to read config file %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return wrapError(err, CodeConfigInvalid, "failed to parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Store.DataFile = getEnvOrDefault("WBEXPLORE_DATA_FILE", c.Store.DataFile)
	c.Store.SQLitePath = getEnvOrDefault("WBEXPLORE_SQLITE_PATH", c.Store.SQLitePath)
	c.Output.Dir = getEnvOrDefault("WBEXPLORE_OUTPUT_DIR", c.Output.Dir)
	c.API.BaseURL = getEnvOrDefault("WBEXPLORE_API_URL", c.API.BaseURL)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("WBEXPLORE_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return wrapError(err, CodeConfigInvalid, "invalid WBEXPLORE_API_TIMEOUT %q", v)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("WBEXPLORE_FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return wrapError(err, CodeConfigInvalid, "invalid WBEXPLORE_FETCH_WORKERS %q", v)
		}
		c.API.Workers = n
	}
	return nil
}

// Validate checks that every indicator referenced by the analysis is configured.
func (c *Config) Validate() error {
	if len(c.Indicators) == 0 {
		return newError(CodeConfigInvalid, "at least one indicator is required")
	}

	names := make(map[string]bool, len(c.Indicators))
	codes := make(map[string]bool, len(c.Indicators))
	for _, ind := range c.Indicators {
		if ind.Code == "" || ind.Name == "" {
			return newError(CodeConfigInvalid, "indicator code and name are required (got %q/%q)", ind.Code, ind.Name)
		}
		if ind.Name == colCountry || ind.Name == colYear {
			return newError(CodeConfigInvalid, "indicator name %q is reserved", ind.Name)
		}
		if names[ind.Name] {
			return newError(CodeConfigInvalid, "duplicate indicator name %q", ind.Name)
		}
		if codes[ind.Code] {
			return newError(CodeConfigInvalid, "duplicate indicator code %q", ind.Code)
		}
		names[ind.Name] = true
		codes[ind.Code] = true
	}

	check := func(field, name string) error {
		if !names[name] {
			return newError(CodeConfigInvalid, "%s references unknown indicator %q", field, name)
		}
		return nil
	}
	for _, name := range c.Analysis.Explore {
		if err := check("analysis.explore", name); err != nil {
			return err
		}
	}
	for _, name := range c.Analysis.Correlate {
		if err := check("analysis.correlate", name); err != nil {
			return err
		}
	}
	if c.Analysis.PivotIndicator != "" {
		if err := check("analysis.pivot_indicator", c.Analysis.PivotIndicator); err != nil {
			return err
		}
	}
	for _, chart := range c.Analysis.Charts {
		if err := check("analysis.charts", chart.Indicator); err != nil {
			return err
		}
		if chart.File == "" {
			return newError(CodeConfigInvalid, "chart for %q has no file name", chart.Indicator)
		}
	}

	if len(c.Analysis.Countries) == 0 {
		return newError(CodeConfigInvalid, "at least one country is required")
	}
	if c.Store.DataFile == "" {
		return newError(CodeConfigInvalid, "store.data_file is required")
	}
	if c.API.PerPage <= 0 {
		return newError(CodeConfigInvalid, "api.per_page must be positive")
	}
	if c.API.Timeout <= 0 {
		return newError(CodeConfigInvalid, "api.timeout must be positive")
	}
	if c.API.Workers <= 0 {
		return newError(CodeConfigInvalid, "api.workers must be positive")
	}
	return nil
}

// IndicatorNames returns the configured column names in order.
func (c *Config) IndicatorNames() []string {
	out := make([]string, len(c.Indicators))
	for i, ind := range c.Indicators {
		out[i] = ind.Name
	}
	return out
}

func (c *Config) String() string {
	return fmt.Sprintf("data=%s out=%s indicators=%d countries=%v",
		c.Store.DataFile, c.Output.Dir, len(c.Indicators), c.Analysis.Countries)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
