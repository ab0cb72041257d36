package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8084 {
		t.Errorf("Port = %d, want 8084", cfg.Server.Port)
	}
	if cfg.Dashboard.MinYear != 2015 || cfg.Dashboard.MaxYear != 2017 || cfg.Dashboard.DefaultYear != 2017 {
		t.Errorf("year bounds = %d..%d default %d", cfg.Dashboard.MinYear, cfg.Dashboard.MaxYear, cfg.Dashboard.DefaultYear)
	}
	if cfg.Dashboard.TopN != 5 || cfg.Dashboard.CategoryTopN != 5 {
		t.Errorf("top N = %d/%d, want 5/5", cfg.Dashboard.TopN, cfg.Dashboard.CategoryTopN)
	}
	if cfg.Dashboard.DailyFill != "none" {
		t.Errorf("DailyFill = %q, want none", cfg.Dashboard.DailyFill)
	}
	if cfg.Dataset.LoadTimeout != 60*time.Second {
		t.Errorf("LoadTimeout = %v", cfg.Dataset.LoadTimeout)
	}
	if got := cfg.Address(); got != "localhost:8084" {
		t.Errorf("Address() = %q", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATASET_FILE", "orders.xlsx")
	t.Setenv("DATASET_SHEET", "Orders")
	t.Setenv("DASHBOARD_TOP_N", "10")
	t.Setenv("DASHBOARD_DAILY_FILL", "zero")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("CHOROPLETH_URLS", "2016=https://example.com/2016/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Dataset.File != "orders.xlsx" || cfg.Dataset.Sheet != "Orders" {
		t.Errorf("Dataset = %+v", cfg.Dataset)
	}
	if cfg.Dashboard.TopN != 10 || cfg.Dashboard.DailyFill != "zero" {
		t.Errorf("Dashboard = %+v", cfg.Dashboard)
	}
	if cfg.Logger.Format != "text" {
		t.Errorf("Logger.Format = %q", cfg.Logger.Format)
	}
	if len(cfg.Security.AllowedOrigins) != 2 || cfg.Security.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.Security.AllowedOrigins)
	}
	if got := cfg.Dashboard.ChoroplethURL(2016); got != "https://example.com/2016/" {
		t.Errorf("ChoroplethURL(2016) = %q", got)
	}
	if got := cfg.Dashboard.ChoroplethURL(2015); got != defaultChoropleth[2015] {
		t.Errorf("ChoroplethURL(2015) = %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port", map[string]string{"SERVER_PORT": "70000"}, "Port"},
		{"log level", map[string]string{"LOG_LEVEL": "trace"}, "Level"},
		{"year order", map[string]string{"DASHBOARD_MIN_YEAR": "2018"}, "MaxYear"},
		{"default year", map[string]string{"DASHBOARD_DEFAULT_YEAR": "2014"}, "default year"},
		{"top n", map[string]string{"DASHBOARD_TOP_N": "0"}, "TopN"},
		{"fill", map[string]string{"DASHBOARD_DAILY_FILL": "linear"}, "DailyFill"},
		{"choropleth pair", map[string]string{"CHOROPLETH_URLS": "2015"}, "year=url"},
		{"choropleth url", map[string]string{"CHOROPLETH_URLS": "2015=not a url"}, "ChoroplethURLs"},
		{"read timeout", map[string]string{"SERVER_READ_TIMEOUT": "-1s"}, "read timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestChoroplethURL_UnknownYearFallsBack(t *testing.T) {
	d := DashboardConfig{DefaultYear: 2017, ChoroplethURLs: defaultChoropleth}
	if got := d.ChoroplethURL(1999); got != defaultChoropleth[2017] {
		t.Errorf("ChoroplethURL(1999) = %q", got)
	}
}
