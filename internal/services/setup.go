package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dataco-dashboard/internal/config"
	"dataco-dashboard/internal/dataset"
	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/palette"
)

// OptionsFromConfig translates the dashboard and dataset settings into
// Analytics options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) ([]Option, error) {
	dc := cfg.Dashboard

	formatter, err := engine.NewFormatter(dc.Locale, dc.CurrencySymbol)
	if err != nil {
		return nil, fmt.Errorf("formatter: %w", err)
	}

	fill, err := engine.ParseFillPolicy(dc.DailyFill)
	if err != nil {
		return nil, err
	}

	p := palette.Default()
	if dc.PaletteFile != "" {
		if p, err = palette.LoadFile(dc.PaletteFile); err != nil {
			return nil, err
		}
	}

	return []Option{
		WithLogger(logger),
		WithFormatter(formatter),
		WithPalette(p),
		WithChoropleth(dc.ChoroplethURL),
		WithYearRange(dc.MinYear, dc.MaxYear, dc.DefaultYear),
		WithTopN(dc.TopN, dc.CategoryTopN),
		WithDailyFill(fill),
		WithMaxConcurrent(dc.MaxConcurrent, defaultAcquireWait),
		WithLoadOptions(dataset.Options{
			Sheet:    cfg.Dataset.Sheet,
			CacheDir: cfg.Dataset.CacheDir,
			Logger:   logger,
		}),
	}, nil
}

// Open builds an Analytics from cfg and loads the configured dataset.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Analytics, error) {
	opts, err := OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := NewAnalytics(opts...)

	ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := a.LoadFromFile(ctx, cfg.Dataset.File); err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		"file", cfg.Dataset.File,
		"duration", time.Since(start),
	)
	return a, nil
}
