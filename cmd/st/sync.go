package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/symtrack/symtrack/internal/config"
	"github.com/symtrack/symtrack/internal/engine"
	"github.com/symtrack/symtrack/internal/logging"
	"github.com/symtrack/symtrack/internal/remote"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync tick",
	Long: `Run one sync tick: pull remote changes, reconcile them with
pending local changes and the domain, then push the change queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		status := app.engine.SyncOnce(cmd.Context())
		printStatus(status, app.engine.QueueLen())
		if status == engine.StatusOnlineButSyncFailed {
			return fmt.Errorf("sync failed, see logs")
		}
		return nil
	},
}

var watchDashboard bool

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Sync continuously until interrupted",
	Long: `Sync continuously on the configured tick period (default 5s).

With --dashboard, a local WebSocket server broadcasts status
transitions and queue depth for external monitors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if watchDashboard {
			board, err := startDashboard(app, app.cfg.DashboardPort)
			if err != nil {
				return err
			}
			defer func() { _ = board.Stop() }()
			fmt.Printf("%s Dashboard on ws://%s/ws\n", renderAccent("▸"), board.Addr())
		}

		// Hot-reload the endpoint settings when the config file
		// changes, so reconfiguring does not require a restart.
		if watcher, err := config.NewWatcher(configPath(), logging.New("config", app.logw)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: config watcher unavailable: %v\n", err)
		} else {
			defer watcher.Stop()
			if err := watcher.Start(ctx, func(cfg config.Config) {
				app.settings.SetAPIURL(cfg.APIURL)
				app.settings.SetAPIToken(cfg.APIToken)
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: config watcher failed to start: %v\n", err)
			}
		}

		if err := app.engine.SyncContinuously(ctx); err != nil {
			return err
		}
		fmt.Printf("%s Syncing every %v, ctrl-c to stop\n", renderAccent("▸"), app.cfg.TickPeriod)

		<-ctx.Done()
		app.engine.Stop()
		return nil
	},
}

var pushAllCmd = &cobra.Command{
	Use:     "push-all",
	GroupID: "sync",
	Short:   "Bulk-send every local entity to the server",
	Long: `Send every symptom and metric on this device to the server in
one request, bypassing the change queue. Useful for seeding a new
deployment. The pull anchor is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		start := time.Now()
		result, err := app.engine.PushAll(cmd.Context())
		if err != nil {
			return err
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		fmt.Printf("%s Push-all complete in %v\n", renderPass("✓"), elapsed)
		fmt.Printf("   Symptoms: %d ok, %d failed\n", len(result.Symptoms.Successful), len(result.Symptoms.Failed))
		fmt.Printf("   Metrics:  %d ok, %d failed\n", len(result.Metrics.Successful), len(result.Metrics.Failed))
		for _, id := range result.Symptoms.Failed {
			fmt.Printf("   %s %s\n", renderFail("✗"), id)
		}
		for _, id := range result.Metrics.Failed {
			fmt.Printf("   %s %s\n", renderFail("✗"), id)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show device and server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		settings := app.settings.Snapshot()
		fmt.Printf("Data:      %d symptoms, %d metrics\n", app.symptoms.Len(), app.metrics.Len())
		fmt.Printf("Pending:   %d changes to push\n", app.engine.QueueLen())
		if settings.LastPulledAt != nil {
			fmt.Printf("Last pull: %s\n", settings.LastPulledAt.Local().Format(time.RFC1123))
		} else {
			fmt.Printf("Last pull: %s\n", renderDim("never"))
		}

		if !settings.Configured() {
			fmt.Printf("Server:    %s\n", renderWarn("not configured (run 'st config init')"))
			return nil
		}
		fmt.Printf("Server:    %s\n", settings.APIURL)

		client := remote.New(settings.APIURL, settings.APIToken, logging.New("remote", app.logw))
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			fmt.Printf("Health:    %s\n", renderFail("unreachable: "+err.Error()))
			return nil
		}
		fmt.Printf("Health:    %s\n", renderPass("ok"))
		return nil
	},
}

func printStatus(status engine.Status, pending int) {
	switch status {
	case engine.StatusOnlineAndSynced:
		fmt.Printf("%s Online and synced\n", renderPass("✓"))
	case engine.StatusOnlineButSyncFailed:
		fmt.Printf("%s Sync failed, %d changes retained\n", renderFail("✗"), pending)
	case engine.StatusOffline:
		fmt.Printf("%s Offline\n", renderWarn("⚠"))
	case engine.StatusOfflinePendingPush:
		fmt.Printf("%s Offline with %d changes waiting\n", renderWarn("⚠"), pending)
	default:
		fmt.Printf("%s %s\n", renderAccent("▸"), string(status))
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchDashboard, "dashboard", false, "serve the status dashboard")

	rootCmd.AddCommand(syncCmd, watchCmd, pushAllCmd, statusCmd)
}
