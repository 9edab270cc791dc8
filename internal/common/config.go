// Package common provides shared utilities for stockgrid
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for stockgrid
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Upstream    UpstreamConfig `toml:"upstream"`
	Refresh     RefreshConfig  `toml:"refresh"`
	Update      UpdateConfig   `toml:"update"`
	Query       QueryConfig    `toml:"query"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the local price store configuration.
type StorageConfig struct {
	Path string `toml:"path"` // SQLite database file
}

// UpstreamConfig holds configuration for the chart API client.
type UpstreamConfig struct {
	BaseURL     string `toml:"base_url"`
	RelayPrefix string `toml:"relay_prefix"`
	RateLimit   int    `toml:"rate_limit"`
	Timeout     string `toml:"timeout"`
}

// GetTimeout parses and returns the per-request timeout duration
func (c *UpstreamConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// RefreshConfig holds background refresh scheduling configuration.
type RefreshConfig struct {
	Cooldown string `toml:"cooldown"`
}

// GetCooldown parses and returns the per-symbol refresh cooldown
func (c *RefreshConfig) GetCooldown() time.Duration {
	d, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// UpdateConfig holds the scheduled daily update configuration.
type UpdateConfig struct {
	Cron          string `toml:"cron"`  // standard 5-field cron spec, empty disables
	Token         string `toml:"token"` // X-Update-Token value, empty disables the check
	LookbackYears int    `toml:"lookback_years"`
}

// GetLookbackYears returns the initial-population lookback, defaulting to 2.
func (c *UpdateConfig) GetLookbackYears() int {
	if c.LookbackYears <= 0 {
		return 2
	}
	return c.LookbackYears
}

// QueryConfig holds query validation limits and the bootstrap watchlist.
type QueryConfig struct {
	MaxSymbols       int      `toml:"max_symbols"`
	DefaultWatchlist []string `toml:"default_watchlist"`
}

// GetMaxSymbols returns the per-request symbol cap, defaulting to 20.
func (c *QueryConfig) GetMaxSymbols() int {
	if c.MaxSymbols <= 0 {
		return 20
	}
	return c.MaxSymbols
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/stockgrid.db",
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://query1.finance.yahoo.com/v8/finance/chart",
			RelayPrefix: "https://r.jina.ai/",
			RateLimit:   5,
			Timeout:     "15s",
		},
		Refresh: RefreshConfig{
			Cooldown: "10m",
		},
		Update: UpdateConfig{
			Cron:          "30 17 * * 1-5",
			LookbackYears: 2,
		},
		Query: QueryConfig{
			MaxSymbols:       20,
			DefaultWatchlist: []string{"AAPL", "MSFT", "GOOGL", "0700.HK", "9988.HK"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKGRID_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKGRID_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKGRID_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKGRID_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("STOCKGRID_DB_PATH"); path != "" {
		config.Storage.Path = path
	}

	if token := os.Getenv("STOCKGRID_UPDATE_TOKEN"); token != "" {
		config.Update.Token = strings.TrimSpace(token)
	}

	if max := os.Getenv("STOCKGRID_MAX_QUERY_SYMBOLS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil && n > 0 {
			config.Query.MaxSymbols = n
		}
	}

	if list := os.Getenv("STOCKGRID_DEFAULT_WATCHLIST"); strings.TrimSpace(list) != "" {
		symbols := make([]string, 0)
		for _, part := range strings.Split(list, ",") {
			if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			config.Query.DefaultWatchlist = symbols
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
