package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
	"github.com/symtrack/symtrack/internal/localstore"
	"github.com/symtrack/symtrack/internal/queue"
	"github.com/symtrack/symtrack/internal/remote"
	"github.com/symtrack/symtrack/internal/store"
)

const (
	// DefaultTickPeriod is how often the continuous loop syncs.
	DefaultTickPeriod = 5 * time.Second

	// DefaultPullOverlap is the backward shift applied to the pull
	// anchor, covering clock skew with writers on other devices.
	DefaultPullOverlap = 30 * time.Second
)

// Config holds the engine's tuning knobs.
type Config struct {
	// TickPeriod is the continuous-sync interval.
	TickPeriod time.Duration

	// PullOverlap widens each pull window into the past.
	PullOverlap time.Duration

	// Logger for engine activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TickPeriod:  DefaultTickPeriod,
		PullOverlap: DefaultPullOverlap,
		Logger:      log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// Engine owns the change queue and runs the sync process: classify
// connectivity, pull, reconcile against the queue and the domain,
// then drain the queue by pushing. Ticks are serial; a new tick never
// begins until the previous one finished.
type Engine struct {
	symptoms *store.SymptomStore
	metrics  *store.MetricStore
	settings *store.SettingsStore
	local    *localstore.Store
	queue    *queue.Queue
	config   *Config

	status *statusFeed
	logger *log.Logger

	// clientFor builds the API client for the current settings; tests
	// swap it for a fake.
	clientFor func(domain.Settings) RemoteAPI

	// online probes network availability; localhost endpoints bypass it.
	online func() bool

	now func() time.Time

	mu      sync.Mutex // serializes ticks
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates an engine. If config is nil, defaults are used.
func New(symptoms *store.SymptomStore, metrics *store.MetricStore, settings *store.SettingsStore, local *localstore.Store, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if config.TickPeriod <= 0 {
		config.TickPeriod = DefaultTickPeriod
	}
	if config.PullOverlap <= 0 {
		config.PullOverlap = DefaultPullOverlap
	}

	logger := config.Logger
	return &Engine{
		symptoms: symptoms,
		metrics:  metrics,
		settings: settings,
		local:    local,
		queue:    queue.New(logger),
		config:   config,
		status:   newStatusFeed(StatusOffline, logger),
		logger:   logger,
		clientFor: func(s domain.Settings) RemoteAPI {
			return remote.New(s.APIURL, s.APIToken, logger)
		},
		online: defaultOnlineProbe,
		now:    time.Now,
	}
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	return e.status.get()
}

// StatusChanges returns a subscription to status transitions.
func (e *Engine) StatusChanges() <-chan Status {
	return e.status.subscribe()
}

// QueueLen returns the number of pending changes.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// PendingChanges returns the queued changes in insertion order.
func (e *Engine) PendingChanges() []domain.ChangeToPush {
	return e.queue.Pending()
}

// RestoreQueue rehydrates the queue from a persisted snapshot. The
// entries replay on the next tick.
func (e *Engine) RestoreQueue(changes []domain.ChangeToPush) {
	e.queue.Restore(changes)
	if len(changes) > 0 {
		e.status.set(StatusWaitingToSync)
	}
}

// QueueChange records a local mutation for pushing. The queue merges
// it with any prior pending change for the same entity and is
// persisted immediately.
func (e *Engine) QueueChange(change domain.ChangeToPush) {
	e.queue.Enqueue(change)
	e.persistQueue()
	e.status.set(StatusWaitingToSync)
}

// SyncContinuously runs the sync process every TickPeriod until the
// context is cancelled. The first tick runs immediately. It returns
// after the loop has been armed; use Stop or cancel ctx to tear down.
func (e *Engine) SyncContinuously(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine is already syncing")
	}
	e.running = true
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.logger.Printf("continuous sync armed, period %v", e.config.TickPeriod)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		e.SyncOnce(ctx)

		ticker := time.NewTicker(e.config.TickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.SyncOnce(ctx)
			}
		}
	}()
	return nil
}

// Stop tears down continuous syncing. A tick in flight completes.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.status.close()
	e.logger.Println("engine stopped")
}

// SyncOnce runs one sync tick and returns the resulting status. All
// failures are swallowed into status transitions.
func (e *Engine) SyncOnce(ctx context.Context) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.settings.Snapshot()

	// Phase 1: classify connection status.
	if !e.deviceReady(settings) {
		e.status.set(e.offlineStatus())
		return e.status.get()
	}

	api := e.clientFor(settings)

	// Phase 2: pull. The anchor moves only after a successful read,
	// and to the instant recorded before the request went out.
	e.status.set(StatusPulling)
	since := e.pullSince(settings)
	currentPullDate := e.now()

	pulled, err := api.ReadAll(ctx, since)
	if err != nil {
		e.logger.Printf("pull failed: %v", err)
		e.status.set(StatusOnlineButSyncFailed)
		return e.status.get()
	}
	e.settings.SetLastPulledAt(currentPullDate)

	// Phases 3+4: reconcile pulled entities against the queue, then
	// against the domain, and apply the survivors.
	e.applyPulled(pulled)

	// Phase 5: drain the queue.
	ok := e.push(ctx, api)
	if ok {
		e.status.set(StatusOnlineAndSynced)
	} else {
		e.status.set(StatusOnlineButSyncFailed)
	}
	return e.status.get()
}

// deviceReady reports whether this tick can talk to the API.
func (e *Engine) deviceReady(settings domain.Settings) bool {
	if !e.online() && !domain.IsLocalhostURL(settings.APIURL) {
		e.logger.Println("device is offline")
		return false
	}
	if !settings.Configured() {
		e.logger.Println("sync not configured: missing API URL or token")
		return false
	}
	return true
}

func (e *Engine) offlineStatus() Status {
	if e.queue.Len() > 0 {
		return StatusOfflinePendingPush
	}
	return StatusOffline
}

// pullSince computes the pull window start: the last anchor shifted
// back by the overlap, or the epoch when the device never pulled.
func (e *Engine) pullSince(settings domain.Settings) *time.Time {
	if settings.LastPulledAt == nil {
		epoch := time.Unix(0, 0).UTC()
		return &epoch
	}
	since := settings.LastPulledAt.Add(-e.config.PullOverlap)
	return &since
}

// applyPulled runs the two reconciliation phases and feeds the
// survivors to the stores through the pulled-data path, which never
// re-enters the queue.
func (e *Engine) applyPulled(pulled remote.PulledData) {
	var symptoms []domain.Symptom
	for _, symptom := range pulled.Symptoms {
		if !e.survivesQueue(symptom.ID, symptom.LastModified) {
			continue
		}
		if local, ok := e.symptoms.Get(symptom.ID); ok && symptom.LastModified.Before(local.LastModified) {
			continue
		}
		symptoms = append(symptoms, symptom)
	}

	var metrics []domain.Metric
	for _, metric := range pulled.Metrics {
		if !e.survivesQueue(metric.ID, metric.LastModified) {
			continue
		}
		if local, ok := e.metrics.Get(metric.ID); ok && metric.LastModified.Before(local.LastModified) {
			continue
		}
		if _, known := e.symptoms.Get(metric.SymptomID); !known {
			e.logger.Printf("WARNING: pulled metric %s references unknown symptom %s", metric.ID, metric.SymptomID)
		}
		metrics = append(metrics, metric)
	}

	if len(symptoms) > 0 || len(metrics) > 0 {
		e.logger.Printf("pulled %d symptoms, %d metrics", len(symptoms), len(metrics))
	}
	e.symptoms.AddPulled(symptoms)
	e.metrics.AddPulled(metrics)
}

// survivesQueue resolves a pulled entity against a pending local
// change for the same id. A strictly newer queued change wins and the
// pulled entity is discarded; otherwise the stale queued change is
// dropped so it cannot overwrite fresher remote state.
func (e *Engine) survivesQueue(id string, pulledAt time.Time) bool {
	queued, ok := e.queue.Get(id)
	if !ok {
		return true
	}
	if queued.Date().After(pulledAt) {
		e.logger.Printf("keeping newer local change for %s, discarding pulled copy", id)
		return false
	}
	e.logger.Printf("dropping stale queued change for %s in favor of pulled copy", id)
	e.queue.Remove(id)
	e.persistQueue()
	return true
}

// push drains the queue in insertion order. It reports whether the
// tick finished without failures.
func (e *Engine) push(ctx context.Context, api RemoteAPI) bool {
	pending := e.queue.Pending()
	if len(pending) == 0 {
		return true
	}

	e.status.set(StatusPushing)
	clean := true
	for _, change := range pending {
		err := e.pushOne(ctx, api, change)
		switch {
		case err == nil:
			e.queue.Remove(change.EntityID())
			e.persistQueue()
		case errors.Is(err, remote.ErrNotFound) && change.IsDelete():
			// Already gone server-side: goal achieved.
			e.logger.Printf("%s target already absent on server, dequeuing", change.Kind)
			e.queue.Remove(change.EntityID())
			e.persistQueue()
		case remote.IsTransport(err):
			e.logger.Printf("push failed: %v", err)
			return false
		default:
			e.logger.Printf("push of %s for %s rejected: %v", change.Kind, change.EntityID(), err)
			clean = false
		}
	}
	return clean
}

// pushOne dispatches a single change to the matching remote call.
func (e *Engine) pushOne(ctx context.Context, api RemoteAPI, change domain.ChangeToPush) error {
	switch change.Kind {
	case domain.ChangeAddSymptom:
		return api.CreateSymptom(ctx, *change.Symptom)
	case domain.ChangeUpdateSymptom:
		return api.UpdateSymptom(ctx, *change.Symptom)
	case domain.ChangeDeleteSymptom:
		return api.DeleteSymptom(ctx, change.DeleteID)
	case domain.ChangeAddMetric:
		return api.CreateMetric(ctx, *change.Metric)
	case domain.ChangeUpdateMetric:
		return api.UpdateMetric(ctx, *change.Metric)
	case domain.ChangeDeleteMetric:
		return api.DeleteMetric(ctx, change.DeleteID)
	default:
		panic(fmt.Sprintf("queued change with unknown kind %q", change.Kind))
	}
}

// PushAll bulk-sends every in-domain entity to the server, bypassing
// the queue. It does not move the pull anchor.
func (e *Engine) PushAll(ctx context.Context) (remote.PushAllResult, error) {
	settings := e.settings.Snapshot()
	if !settings.Configured() {
		return remote.PushAllResult{}, remote.ErrMissingConfig
	}

	api := e.clientFor(settings)
	result, err := api.PushAll(ctx, e.symptoms.All(), e.metrics.All())
	if err != nil {
		return remote.PushAllResult{}, err
	}
	if failed := len(result.Symptoms.Failed) + len(result.Metrics.Failed); failed > 0 {
		e.logger.Printf("WARNING: server rejected %d entities during push-all", failed)
	}
	return result, nil
}

func (e *Engine) persistQueue() {
	if err := e.local.SaveQueue(e.queue.Snapshot()); err != nil {
		e.logger.Printf("WARNING: failed to persist change queue: %v", err)
	}
}

// defaultOnlineProbe reports whether any non-loopback interface is up
// with an address assigned. It is a heuristic stand-in for platform
// connectivity signals; localhost endpoints bypass it entirely.
func defaultOnlineProbe() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return true // assume online, the request itself will decide
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
