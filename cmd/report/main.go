// Command report prints the dashboard figures for one year and region in
// the terminal, or writes them to an XLSX workbook.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dataco-dashboard/internal/config"
	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/observability"
	"dataco-dashboard/internal/services"
)

type app struct {
	file     string
	cacheDir string
	year     int
	region   string
	noColor  bool
	logLevel string

	analytics *services.Analytics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "report",
		Short:         "Print DataCo order dashboard figures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.file, "file", "f", "", "dataset CSV or XLSX file (default $DATASET_FILE)")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "parsed dataset cache directory (default $DATASET_CACHE_DIR)")
	pf.IntVarP(&a.year, "year", "y", 0, "order year (default $DASHBOARD_DEFAULT_YEAR)")
	pf.StringVarP(&a.region, "region", "r", engine.AllRegions, "order region")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(a.dashboardCmd(), a.regionsCmd(), a.exportCmd())
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.file != "" {
		cfg.Dataset.File = a.file
	}
	if a.cacheDir != "" {
		cfg.Dataset.CacheDir = a.cacheDir
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), config.LoggerConfig{Level: a.logLevel, Format: "text"})
	slog.SetDefault(logger)

	a.analytics, err = services.Open(cmd.Context(), cfg, logger)
	return err
}

func (a *app) query() services.Query {
	q := a.analytics.DefaultQuery()
	if a.year != 0 {
		q.Year = a.year
	}
	if a.region != "" {
		q.Region = a.region
	}
	return q
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
