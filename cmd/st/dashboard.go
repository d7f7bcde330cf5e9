package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/symtrack/symtrack/internal/dashboard"
	"github.com/symtrack/symtrack/internal/logging"
	"github.com/symtrack/symtrack/internal/store"
)

var dashboardPort int

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "sync",
	Short:   "Start the real-time WebSocket sync dashboard",
	Long: `Start a WebSocket dashboard server and sync continuously,
broadcasting engine activity to connected clients.

WebSocket messages include:
- sync_status: sync status transition (offline, pulling, pushing, ...)
- data_pulled: entity totals after remote data was applied
- queue: pending change-queue depth

Example usage:
  st dashboard                   # Start on the configured port
  st dashboard --port 9000       # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8990/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		port := app.cfg.DashboardPort
		if cmd.Flags().Changed("port") {
			port = dashboardPort
		}

		board, err := startDashboard(app, port)
		if err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		defer func() { _ = board.Stop() }()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := app.engine.SyncContinuously(ctx); err != nil {
			return err
		}

		fmt.Printf("Dashboard server started on http://%s\n", board.Addr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", board.Addr())
		fmt.Printf("Health check: http://%s/health\n", board.Addr())
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		app.engine.Stop()
		return nil
	},
}

// startDashboard launches the WebSocket server and wires the engine
// and store streams into its broadcasts.
func startDashboard(app *app, port int) (*dashboard.Server, error) {
	board := dashboard.NewServer(&dashboard.Config{
		Port:   port,
		Logger: logging.New("dashboard", app.logw),
	})
	if err := board.Start(); err != nil {
		return nil, err
	}

	statuses := app.engine.StatusChanges()
	go func() {
		for status := range statuses {
			board.BroadcastStatus(string(status))
			board.BroadcastQueueDepth(app.engine.QueueLen())
		}
	}()

	// Entity totals after each pull, for remote monitors.
	broadcastPulled := func(events <-chan store.Event) {
		for event := range events {
			if event.Kind == store.EventAddedFromExternalSource {
				board.BroadcastDataPulled(app.symptoms.Len(), app.metrics.Len())
			}
		}
	}
	go broadcastPulled(app.symptoms.Events())
	go broadcastPulled(app.metrics.Events())

	return board, nil
}

func init() {
	dashboardCmd.Flags().IntVarP(&dashboardPort, "port", "p", 8990, "port to listen on")

	rootCmd.AddCommand(dashboardCmd)
}
