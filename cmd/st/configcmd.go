package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/symtrack/symtrack/internal/config"
)

// configDoc is the YAML-facing form of the config: durations render
// as "5s" strings instead of nanosecond integers.
type configDoc struct {
	APIURL        string `yaml:"api_url"`
	APIToken      string `yaml:"api_token"`
	DataDir       string `yaml:"data_dir"`
	LogFile       string `yaml:"log_file"`
	TickPeriod    string `yaml:"tick_period"`
	PullOverlap   string `yaml:"pull_overlap"`
	StoragePrefix string `yaml:"storage_prefix"`
	DashboardPort int    `yaml:"dashboard_port"`
}

func toDoc(cfg config.Config) configDoc {
	return configDoc{
		APIURL:        cfg.APIURL,
		APIToken:      cfg.APIToken,
		DataDir:       cfg.DataDir,
		LogFile:       cfg.LogFile,
		TickPeriod:    cfg.TickPeriod.String(),
		PullOverlap:   cfg.PullOverlap.String(),
		StoragePrefix: cfg.StoragePrefix,
		DashboardPort: cfg.DashboardPort,
	}
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "sync",
	Short:   "Manage client configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively configure the sync endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API URL").
					Description("Base URL of your symtrack server, e.g. https://health.example.com").
					Value(&cfg.APIURL),
				huh.NewInput().
					Title("API token").
					Description("The deployment's static token").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.APIToken),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		cfg.APIURL = strings.TrimSpace(cfg.APIURL)
		cfg.APIToken = strings.TrimSpace(cfg.APIToken)

		if err := writeConfig(path, cfg); err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", renderPass("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cfg.APIToken != "" {
			cfg.APIToken = "********"
		}

		rendered, err := yaml.Marshal(toDoc(cfg))
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(rendered))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Long: `Set a single key in the config file. Keys: api_url, api_token,
data_dir, log_file, tick_period, pull_overlap, storage_prefix,
dashboard_port.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		if err := setConfigKey(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := writeConfig(path, cfg); err != nil {
			return err
		}
		fmt.Printf("%s Set %s\n", renderPass("✓"), args[0])
		return nil
	},
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "api_url":
		cfg.APIURL = value
	case "api_token":
		cfg.APIToken = value
	case "data_dir":
		cfg.DataDir = value
	case "log_file":
		cfg.LogFile = value
	case "storage_prefix":
		cfg.StoragePrefix = value
	case "tick_period":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		cfg.TickPeriod = d
	case "pull_overlap":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		cfg.PullOverlap = d
	case "dashboard_port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port for %s: %w", key, err)
		}
		cfg.DashboardPort = port
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func writeConfig(path string, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(toDoc(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
