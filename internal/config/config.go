package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Dataset   DatasetConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatasetConfig struct {
	File        string `validate:"required"`
	Sheet       string
	CacheDir    string
	LoadTimeout time.Duration
}

// DashboardConfig holds the selection bounds and presentation settings of
// the dashboard.
type DashboardConfig struct {
	MinYear        int            `validate:"gte=1900"`
	MaxYear        int            `validate:"gtefield=MinYear"`
	DefaultYear    int
	TopN           int            `validate:"min=1,max=50"`
	CategoryTopN   int            `validate:"min=1,max=50"`
	Locale         string         `validate:"required"`
	CurrencySymbol string
	PaletteFile    string
	MaxConcurrent  int64          `validate:"min=1"`
	DailyFill      string         `validate:"oneof=none zero"`
	ChoroplethURLs map[int]string `validate:"dive,url"`
}

// ChoroplethURL returns the embed URL for year, falling back to the default
// year's URL for years without one.
func (d DashboardConfig) ChoroplethURL(year int) string {
	if u, ok := d.ChoroplethURLs[year]; ok {
		return u
	}
	return d.ChoroplethURLs[d.DefaultYear]
}

type LoggerConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int `validate:"min=1"`
	RateLimitBurst  int `validate:"min=1"`
	AllowedOrigins  []string
	TrustedProxies  []string
}

var defaultChoropleth = map[int]string{
	2015: "https://datawrapper.dwcdn.net/HDZHt/2/",
	2016: "https://datawrapper.dwcdn.net/6ezOJ/4/",
	2017: "https://datawrapper.dwcdn.net/5Lkpn/8/",
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory are applied first without overriding variables
// that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	choropleth, err := getEnvYearMap("CHOROPLETH_URLS", defaultChoropleth)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Dataset: DatasetConfig{
			File:        getEnvString("DATASET_FILE", "data/dataco_preprocessed.csv"),
			Sheet:       getEnvString("DATASET_SHEET", ""),
			CacheDir:    getEnvString("DATASET_CACHE_DIR", ".cache"),
			LoadTimeout: getEnvDuration("DATASET_LOAD_TIMEOUT", 60*time.Second),
		},
		Dashboard: DashboardConfig{
			MinYear:        getEnvInt("DASHBOARD_MIN_YEAR", 2015),
			MaxYear:        getEnvInt("DASHBOARD_MAX_YEAR", 2017),
			DefaultYear:    getEnvInt("DASHBOARD_DEFAULT_YEAR", 2017),
			TopN:           getEnvInt("DASHBOARD_TOP_N", 5),
			CategoryTopN:   getEnvInt("DASHBOARD_CATEGORY_TOP_N", 5),
			Locale:         getEnvString("DASHBOARD_LOCALE", "en-US"),
			CurrencySymbol: getEnvString("DASHBOARD_CURRENCY_SYMBOL", "$"),
			PaletteFile:    getEnvString("DASHBOARD_PALETTE_FILE", ""),
			MaxConcurrent:  int64(getEnvInt("DASHBOARD_MAX_CONCURRENT", 8)),
			DailyFill:      getEnvString("DASHBOARD_DAILY_FILL", "none"),
			ChoroplethURLs: choropleth,
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "json")),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dashboard.DefaultYear < c.Dashboard.MinYear || c.Dashboard.DefaultYear > c.Dashboard.MaxYear {
		return fmt.Errorf("default year %d outside %d..%d", c.Dashboard.DefaultYear, c.Dashboard.MinYear, c.Dashboard.MaxYear)
	}

	if _, ok := c.Dashboard.ChoroplethURLs[c.Dashboard.DefaultYear]; !ok {
		return fmt.Errorf("no choropleth URL for default year %d", c.Dashboard.DefaultYear)
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return slices.DeleteFunc(parts, func(s string) bool { return s == "" })
	}
	return defaultValue
}

// getEnvYearMap parses "2015=url,2016=url" and merges it over the defaults.
func getEnvYearMap(key string, defaults map[int]string) (map[int]string, error) {
	out := make(map[int]string, len(defaults))
	for year, v := range defaults {
		out[year] = v
	}

	value := os.Getenv(key)
	if value == "" {
		return out, nil
	}
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("%s: entry %q is not year=url", key, pair)
		}
		year, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%s: bad year %q", key, k)
		}
		out[year] = strings.TrimSpace(v)
	}
	return out, nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
