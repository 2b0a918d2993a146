package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Analysis is everything derived from one flat table in a single run.
type Analysis struct {
	RunID       string
	GeneratedAt time.Time
	Source      string
	Countries   []string
	Selected    *Table
	Summary     *Summary
	Correlation *Correlation
	ByCountry   *Wide
	ByYear      *Wide
	Charts      []string
}

// Pipeline wires the configured stores, fetcher and outputs together.
type Pipeline struct {
	cfg     *Config
	runID   string
	fetcher *Fetcher
}

func NewPipeline(cfg *Config) *Pipeline {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Pipeline{
		cfg:     cfg,
		runID:   id.String(),
		fetcher: NewFetcher(cfg.API),
	}
}

func (p *Pipeline) RunID() string { return p.runID }

// stores returns the stores a refresh writes to; the CSV file always comes first.
func (p *Pipeline) stores() []Store {
	out := []Store{NewCSVStore(p.cfg.Store.DataFile)}
	if p.cfg.Store.SQLitePath != "" {
		out = append(out, NewSQLiteStore(p.cfg.Store.SQLitePath))
	}
	return out
}

func (p *Pipeline) source(kind string) (Store, string, error) {
	switch kind {
	case "", "csv":
		return NewCSVStore(p.cfg.Store.DataFile), p.cfg.Store.DataFile, nil
	case "sqlite":
		if p.cfg.Store.SQLitePath == "" {
			return nil, "", newError(CodeConfigInvalid, "--store sqlite needs store.sqlite_path")
		}
		return NewSQLiteStore(p.cfg.Store.SQLitePath), p.cfg.Store.SQLitePath, nil
	default:
		return nil, "", newError(CodeConfigInvalid, "unknown store %q (want csv or sqlite)", kind)
	}
}

// Refresh downloads every configured indicator and overwrites the stores.
func (p *Pipeline) Refresh(ctx context.Context) (*Table, error) {
	logger := log.With().Str("run_id", p.runID).Logger()
	logger.Info().Int("indicators", len(p.cfg.Indicators)).Str("api", p.cfg.API.BaseURL).Msg("refresh started")

	t, err := p.fetcher.Fetch(ctx, p.cfg.Indicators)
	if err != nil {
		return nil, wrapError(err, CodeExternalService, "fetch indicators")
	}
	for _, s := range p.stores() {
		if err := s.Save(ctx, t); err != nil {
			return nil, err
		}
	}
	logger.Info().Int("rows", t.Len()).Msg("refresh finished")
	return t, nil
}

// Analyze loads the stored table and computes every derived view. It never
// touches the network.
func (p *Pipeline) Analyze(ctx context.Context, storeKind string) (*Analysis, error) {
	logger := log.With().Str("run_id", p.runID).Logger()

	store, source, err := p.source(storeKind)
	if err != nil {
		return nil, err
	}
	t, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		RunID:       p.runID,
		GeneratedAt: time.Now(),
		Source:      source,
		Countries:   p.cfg.Analysis.Countries,
	}

	if ind := p.cfg.Analysis.PivotIndicator; ind != "" {
		a.ByCountry, a.ByYear, err = Reshape(t, ind)
		if err != nil {
			return nil, err
		}
		logger.Debug().Int("countries", len(a.ByCountry.RowKeys)).Int("years", len(a.ByCountry.ColKeys)).Msg("pivoted")
	}

	a.Selected, a.Summary, err = Explore(t, p.cfg.Analysis.Countries, p.cfg.Analysis.Explore)
	if err != nil {
		return nil, err
	}
	if missing := missingCountries(p.cfg.Analysis.Countries, a.Summary.Countries); len(missing) > 0 {
		logger.Warn().Strs("countries", missing).Msg("countries not present in data")
	}

	a.Correlation, err = Correlate(a.Selected, p.cfg.Analysis.Correlate)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("rows", a.Selected.Len()).Int("samples", a.Correlation.Samples).Msg("analysis computed")
	return a, nil
}

// Render writes charts, the workbook and the report into the output directory.
func (p *Pipeline) Render(a *Analysis) error {
	out := p.cfg.Output
	for _, chart := range p.cfg.Analysis.Charts {
		path := filepath.Join(out.Dir, chart.File)
		opts := ChartOptions{Title: chart.Title, XLabel: chart.XLabel, YLabel: chart.YLabel}
		if err := PlotTimeSeries(a.Selected, chart.Indicator, a.Countries, opts, path); err != nil {
			return wrapError(err, CodeRender, "chart %q", chart.Title)
		}
		a.Charts = append(a.Charts, path)
	}

	heatmap := filepath.Join(out.Dir, out.HeatmapFile)
	if err := PlotHeatmap(a.Correlation, out.HeatmapTitle, heatmap); err != nil {
		return wrapError(err, CodeRender, "heatmap")
	}
	a.Charts = append(a.Charts, heatmap)

	if out.Workbook != "" {
		if err := WriteWorkbook(filepath.Join(out.Dir, out.Workbook), a); err != nil {
			return err
		}
	}
	if out.Report != "" {
		if err := WriteReport(filepath.Join(out.Dir, out.Report), a); err != nil {
			return err
		}
	}
	log.Info().Str("run_id", p.runID).Str("dir", out.Dir).Int("charts", len(a.Charts)).Msg("outputs written")
	return nil
}

func missingCountries(want, have []string) []string {
	present := make(map[string]bool, len(have))
	for _, h := range have {
		present[h] = true
	}
	var out []string
	for _, w := range want {
		if !present[w] {
			out = append(out, w)
		}
	}
	return out
}

func (a *Analysis) String() string {
	return fmt.Sprintf("run %s: %d rows, %d countries, %d charts", a.RunID, a.Selected.Len(), len(a.Summary.Countries), len(a.Charts))
}
