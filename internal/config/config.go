package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	General   GeneralConfig         `toml:"general"`
	Scope     ScopeConfig           `toml:"scope"`
	Reporting ReportingConfig       `toml:"reporting"`
	Database  DatabaseConfig        `toml:"database"`
	Observer  ObserverConfig        `toml:"observer"`
	Tools     map[string]ToolConfig `toml:"tools"`
}

type GeneralConfig struct {
	MaxParallel int  `toml:"max_parallel"`
	Stealth     bool `toml:"stealth"`
	PassiveOnly bool `toml:"passive_only"`
	Timeout     int  `toml:"timeout"`
}

type ScopeConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type ReportingConfig struct {
	Format    string `toml:"format"`
	OutputDir string `toml:"output_dir"`
	AutoSave  bool   `toml:"auto_save"`
}

type DatabaseConfig struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

type ToolConfig struct {
	Enabled    bool     `toml:"enabled"`
	Timeout    int      `toml:"timeout"`
	CustomArgs []string `toml:"custom_args"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		General:   GeneralConfig{MaxParallel: 3, Timeout: 300},
		Reporting: ReportingConfig{Format: "markdown", OutputDir: "reports", AutoSave: true},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "strix.db"},
		Tools:     map[string]ToolConfig{},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "strix.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("STRIX_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.General.MaxParallel = n
		}
	}
	if v := os.Getenv("STRIX_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.General.Timeout = n
		}
	}
	if v := os.Getenv("STRIX_STEALTH"); v == "true" || v == "1" {
		cfg.General.Stealth = true
	}
	if v := os.Getenv("STRIX_PASSIVE_ONLY"); v == "true" || v == "1" {
		cfg.General.PassiveOnly = true
	}
	if v := os.Getenv("STRIX_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("STRIX_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STRIX_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("STRIX_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.General.MaxParallel <= 0 {
		cfg.General.MaxParallel = 3
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.PostgresURL == "" {
		cfg.Database.Driver = "sqlite"
	}

	return cfg
}
