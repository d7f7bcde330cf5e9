package main

import (
	"context"
	"fmt"
	"io"

	"github.com/symtrack/symtrack/internal/config"
	"github.com/symtrack/symtrack/internal/coordinator"
	"github.com/symtrack/symtrack/internal/engine"
	"github.com/symtrack/symtrack/internal/localstore"
	"github.com/symtrack/symtrack/internal/logging"
	"github.com/symtrack/symtrack/internal/store"
)

// app bundles the client components for one command invocation.
type app struct {
	cfg      config.Config
	logw     io.Writer
	local    *localstore.Store
	symptoms *store.SymptomStore
	metrics  *store.MetricStore
	settings *store.SettingsStore
	engine   *engine.Engine
	coord    *coordinator.Coordinator

	stop context.CancelFunc
}

// openApp builds the full component graph, loads persisted state, and
// starts the coordinator so mutations persist and enqueue.
func openApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	logw := logging.TeeWriter(cfg.LogFile)

	local, err := localstore.Open(cfg.DatabasePath(), cfg.StoragePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	symptoms := store.NewSymptomStore(logging.New("symptoms", logw))
	metrics := store.NewMetricStore(logging.New("metrics", logw))
	settings := store.NewSettingsStore(logging.New("settings", logw))

	eng := engine.New(symptoms, metrics, settings, local, &engine.Config{
		TickPeriod:  cfg.TickPeriod,
		PullOverlap: cfg.PullOverlap,
		Logger:      logging.New("engine", logw),
	})

	coord := coordinator.New(symptoms, metrics, settings, local, eng, logging.New("coordinator", logw))
	if err := coord.Load(); err != nil {
		_ = local.Close()
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())
	coord.Start(ctx)

	// Config file and env values override persisted settings, so a
	// freshly edited config.yaml takes effect immediately.
	if cfg.APIURL != "" {
		settings.SetAPIURL(cfg.APIURL)
	}
	if cfg.APIToken != "" {
		settings.SetAPIToken(cfg.APIToken)
	}

	return &app{
		cfg:      cfg,
		logw:     logw,
		local:    local,
		symptoms: symptoms,
		metrics:  metrics,
		settings: settings,
		engine:   eng,
		coord:    coord,
		stop:     stop,
	}, nil
}

// close flushes the coordinator and releases the local store.
func (a *app) close() {
	a.stop()
	a.coord.Stop()
	_ = a.local.Close()
}

// configPath returns the effective config file location.
func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}
