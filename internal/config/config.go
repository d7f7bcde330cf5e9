// Package config loads the client configuration from a YAML file and
// SYMTRACK_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the single configuration record passed at construction.
type Config struct {
	// APIURL is the remote endpoint base URL.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// APIToken is the static per-deployment auth token.
	APIToken string `mapstructure:"api_token" yaml:"api_token"`

	// DataDir holds the local database and logs.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// LogFile is an optional rotated log sink; empty logs to stderr.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	// TickPeriod is the continuous-sync interval.
	TickPeriod time.Duration `mapstructure:"tick_period" yaml:"tick_period"`

	// PullOverlap widens each pull window into the past to tolerate
	// clock skew with other writers.
	PullOverlap time.Duration `mapstructure:"pull_overlap" yaml:"pull_overlap"`

	// StoragePrefix namespaces the persisted key-value slots.
	StoragePrefix string `mapstructure:"storage_prefix" yaml:"storage_prefix"`

	// DashboardPort is where the status dashboard listens.
	DashboardPort int `mapstructure:"dashboard_port" yaml:"dashboard_port"`
}

// defaults returns the zero-config values applied before a config
// file or environment variables are read.
func defaults() map[string]any {
	return map[string]any{
		"api_url":        "",
		"api_token":      "",
		"data_dir":       defaultDataDir(),
		"log_file":       "",
		"tick_period":    5 * time.Second,
		"pull_overlap":   30 * time.Second,
		"storage_prefix": "health",
		"dashboard_port": 8990,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".symtrack"
	}
	return filepath.Join(home, ".symtrack")
}

// DefaultPath returns the config file location used when none is
// given on the command line.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads the config file at path (if it exists) and applies
// SYMTRACK_* environment overrides. A missing file yields defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("SYMTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults; a present but
		// unreadable one is fatal.
		if _, statErr := os.Stat(path); statErr == nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = "health"
	}
	return cfg, nil
}

// DatabasePath returns the local store location under the data dir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "symtrack.db")
}
