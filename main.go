package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dataFile   string
	outDir     string
	logLevel   string

	storeKind    string
	refreshFirst bool

	cfg *Config
)

var rootCmd = &cobra.Command{
	Use:   "wbexplore",
	Short: "World Bank development indicators: fetch, explore, correlate, chart",
	Long: `wbexplore downloads development indicators from the World Bank API,
keeps them in a flat CSV file and analyses a configured set of countries.

Examples:
  # Download every configured indicator into worldbank_data.csv
  wbexplore refresh

  # Analyse the stored data and write charts, workbook and report to ./output
  wbexplore analyze

  # Refresh first, analyse from the SQLite copy
  wbexplore analyze --refresh --store sqlite`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runAnalyze,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every configured indicator and overwrite the stored data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := NewPipeline(cfg)
		return refresh(cmd.Context(), cmd.OutOrStdout(), p)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse stored data and write charts, workbook and report",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $WBEXPLORE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "CSV data file (overrides store.data_file)")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Output directory (overrides output.dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")

	for _, cmd := range []*cobra.Command{rootCmd, analyzeCmd} {
		cmd.Flags().StringVar(&storeKind, "store", "csv", "Store to analyse from: csv|sqlite")
		cmd.Flags().BoolVar(&refreshFirst, "refresh", false, "Fetch fresh data before analysing")
	}

	rootCmd.AddCommand(refreshCmd, analyzeCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	c, err := LoadConfig(configPath)
	if err != nil {
		setupLogging(os.Stderr, logLevel)
		return err
	}
	if dataFile != "" {
		c.Store.DataFile = dataFile
	}
	if outDir != "" {
		c.Output.Dir = outDir
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	setupLogging(os.Stderr, c.LogLevel)
	log.Debug().Str("config", c.String()).Msg("configuration loaded")

	cfg = c
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	p := NewPipeline(cfg)

	headingColor.Fprintln(w, "🌍 WORLD BANK DEVELOPMENT INDICATORS")

	if refreshFirst {
		if err := refresh(ctx, w, p); err != nil {
			return err
		}
	}

	printStep(w, "Loading %s data...", storeKind)
	a, err := p.Analyze(ctx, storeKind)
	if err != nil {
		if errorCode(err) == CodeNotFound {
			printWarn(w, "No stored data yet, run `wbexplore refresh` first")
		}
		return err
	}
	PrintSummary(w, a.Summary)
	PrintCorrelation(w, a.Correlation)

	if err := p.Render(a); err != nil {
		return err
	}

	fmt.Fprintln(w)
	printDone(w, "ANALYSIS COMPLETE")
	printOutputs(w, cfg, a)
	return nil
}

func refresh(ctx context.Context, w io.Writer, p *Pipeline) error {
	printStep(w, "⬇️  Fetching %d indicators from %s...", len(cfg.Indicators), cfg.API.BaseURL)
	t, err := p.Refresh(ctx)
	if err != nil {
		return err
	}
	printDone(w, "Saved %d rows to %s", t.Len(), cfg.Store.DataFile)
	if cfg.Store.SQLitePath != "" {
		printDone(w, "Saved %d rows to %s", t.Len(), cfg.Store.SQLitePath)
	}
	return nil
}

func printOutputs(w io.Writer, cfg *Config, a *Analysis) {
	fmt.Fprintln(w, "📁 Output files:")
	for _, chart := range a.Charts {
		fmt.Fprintf(w, "   - %s\n", chart)
	}
	if cfg.Output.Workbook != "" {
		fmt.Fprintf(w, "   - %s/%s (data, summary, correlation, pivots)\n", cfg.Output.Dir, cfg.Output.Workbook)
	}
	if cfg.Output.Report != "" {
		fmt.Fprintf(w, "   - %s/%s\n", cfg.Output.Dir, cfg.Output.Report)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Str("code", errorCode(err)).Msg("wbexplore failed")
		stop()
		os.Exit(1)
	}
}
