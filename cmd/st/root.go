package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDataDir string
)

var rootCmd = &cobra.Command{
	Use:   "st",
	Short: "Offline-first symptom and metric tracker",
	Long: `symtrack records symptoms (things you track) and metrics
(timestamped observations with an intensity and notes), storing
everything locally first and continuously reconciling with a shared
remote server so multiple devices converge on the same data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.symtrack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.symtrack)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "track", Title: "Tracking"},
		&cobra.Group{ID: "sync", Title: "Synchronization"},
	)
}
