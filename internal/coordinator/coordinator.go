// Package coordinator wires the domain stores to the local store and
// the sync engine.
//
// The stores know nothing about syncing; the coordinator subscribes
// to their change streams, persists full per-kind snapshots on every
// event, and enqueues pushes for user-driven mutations. Pulled data
// arrives on a distinct event kind and is persisted without
// re-queueing, which keeps the store -> coordinator -> engine
// dependency chain acyclic.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
	"github.com/symtrack/symtrack/internal/engine"
	"github.com/symtrack/symtrack/internal/localstore"
	"github.com/symtrack/symtrack/internal/store"
)

// Coordinator drains store events and routes them to persistence and
// the sync engine.
type Coordinator struct {
	symptoms *store.SymptomStore
	metrics  *store.MetricStore
	settings *store.SettingsStore
	local    *localstore.Store
	engine   *engine.Engine

	logger *log.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator. If logger is nil, a default logger
// writing to stderr is used.
func New(symptoms *store.SymptomStore, metrics *store.MetricStore, settings *store.SettingsStore, local *localstore.Store, eng *engine.Engine, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[coordinator] ", log.LstdFlags)
	}
	return &Coordinator{
		symptoms: symptoms,
		metrics:  metrics,
		settings: settings,
		local:    local,
		engine:   eng,
		logger:   logger,
		now:      time.Now,
	}
}

// Load seeds the stores and the change queue from the persisted
// snapshots. Call once, before Start.
func (c *Coordinator) Load() error {
	settings, _, err := c.local.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	lastPull, err := c.local.LoadLastPullDate()
	if err != nil {
		return fmt.Errorf("failed to load last pull date: %w", err)
	}
	settings.LastPulledAt = lastPull
	if err := c.settings.Initialize(settings); err != nil {
		return fmt.Errorf("failed to initialize settings store: %w", err)
	}

	symptoms, err := c.local.LoadSymptoms()
	if err != nil {
		return fmt.Errorf("failed to load symptoms: %w", err)
	}
	if err := c.symptoms.Initialize(symptoms); err != nil {
		return fmt.Errorf("failed to initialize symptom store: %w", err)
	}

	metrics, err := c.local.LoadMetrics()
	if err != nil {
		return fmt.Errorf("failed to load metrics: %w", err)
	}
	if err := c.metrics.Initialize(metrics); err != nil {
		return fmt.Errorf("failed to initialize metric store: %w", err)
	}

	changes, err := c.local.LoadQueue()
	if err != nil {
		return fmt.Errorf("failed to load change queue: %w", err)
	}
	c.engine.RestoreQueue(changes)

	c.logger.Printf("loaded %d symptoms, %d metrics, %d pending changes",
		len(symptoms), len(metrics), len(changes))
	return nil
}

// Start begins draining the store event streams. It returns after the
// drain goroutines are armed; use Stop to tear down.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	symptomEvents := c.symptoms.Events()
	metricEvents := c.metrics.Events()
	settingsEvents := c.settings.Events()

	c.wg.Add(3)
	go c.drain(ctx, symptomEvents, c.handleSymptomEvent)
	go c.drain(ctx, metricEvents, c.handleMetricEvent)
	go c.drain(ctx, settingsEvents, c.handleSettingsEvent)
}

// Stop tears down the drain goroutines.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// drain observes one stream in emission order.
func (c *Coordinator) drain(ctx context.Context, events <-chan store.Event, handle func(store.Event)) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Flush whatever is already buffered so short-lived
			// commands do not lose their final events on shutdown.
			for {
				select {
				case event, ok := <-events:
					if !ok {
						return
					}
					handle(event)
				default:
					return
				}
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			handle(event)
		}
	}
}

func (c *Coordinator) handleSymptomEvent(event store.Event) {
	switch event.Kind {
	case store.EventInitialized:
		return
	case store.EventAdded:
		c.persistSymptoms()
		if symptom, ok := c.symptoms.Get(event.ID); ok {
			c.engine.QueueChange(domain.NewAddSymptom(symptom))
		}
	case store.EventUpdated:
		c.persistSymptoms()
		if symptom, ok := c.symptoms.Get(event.ID); ok {
			c.engine.QueueChange(domain.NewUpdateSymptom(symptom))
		}
	case store.EventDeleted:
		c.persistSymptoms()
		c.engine.QueueChange(domain.NewDeleteSymptom(event.ID, c.now()))
	case store.EventAddedFromExternalSource:
		// Pulled data: persist only, never re-queue.
		c.persistSymptoms()
	default:
		panic(fmt.Sprintf("unhandled symptom event kind %q", event.Kind))
	}
}

func (c *Coordinator) handleMetricEvent(event store.Event) {
	switch event.Kind {
	case store.EventInitialized:
		return
	case store.EventAdded:
		c.persistMetrics()
		if metric, ok := c.metrics.Get(event.ID); ok {
			c.engine.QueueChange(domain.NewAddMetric(metric))
		}
	case store.EventUpdated:
		c.persistMetrics()
		if metric, ok := c.metrics.Get(event.ID); ok {
			c.engine.QueueChange(domain.NewUpdateMetric(metric))
		}
	case store.EventDeleted:
		c.persistMetrics()
		c.engine.QueueChange(domain.NewDeleteMetric(event.ID, c.now()))
	case store.EventAddedFromExternalSource:
		c.persistMetrics()
	default:
		panic(fmt.Sprintf("unhandled metric event kind %q", event.Kind))
	}
}

func (c *Coordinator) handleSettingsEvent(event store.Event) {
	if event.Kind == store.EventInitialized {
		return
	}

	snapshot := c.settings.Snapshot()
	if snapshot.LastPulledAt != nil {
		if err := c.local.SaveLastPullDate(*snapshot.LastPulledAt); err != nil {
			c.logger.Printf("WARNING: failed to persist last pull date: %v", err)
		}
	}

	// The settings slot holds only the configuration; the pull anchor
	// lives in its own slot.
	snapshot.LastPulledAt = nil
	if err := c.local.SaveSettings(snapshot); err != nil {
		c.logger.Printf("WARNING: failed to persist settings: %v", err)
	}
}

func (c *Coordinator) persistSymptoms() {
	if err := c.local.SaveSymptoms(c.symptoms.All()); err != nil {
		c.logger.Printf("WARNING: failed to persist symptoms: %v", err)
	}
}

func (c *Coordinator) persistMetrics() {
	if err := c.local.SaveMetrics(c.metrics.All()); err != nil {
		c.logger.Printf("WARNING: failed to persist metrics: %v", err)
	}
}
