package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
	"github.com/symtrack/symtrack/internal/engine"
	"github.com/symtrack/symtrack/internal/localstore"
	"github.com/symtrack/symtrack/internal/store"
)

// fixture bundles a coordinator with its collaborators.
type fixture struct {
	coordinator *Coordinator
	symptoms    *store.SymptomStore
	metrics     *store.MetricStore
	settings    *store.SettingsStore
	local       *localstore.Store
	engine      *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	local, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"), localstore.DefaultPrefix)
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	symptoms := store.NewSymptomStore(nil)
	metrics := store.NewMetricStore(nil)
	settings := store.NewSettingsStore(nil)
	eng := engine.New(symptoms, metrics, settings, local, nil)

	c := New(symptoms, metrics, settings, local, eng, nil)
	return &fixture{coordinator: c, symptoms: symptoms, metrics: metrics, settings: settings, local: local, engine: eng}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoadSeedsStoresAndQueue(t *testing.T) {
	f := newFixture(t)

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	seedSymptom := domain.Symptom{ID: "sym_a", Name: "headache", OtherNames: []string{}, LastModified: now}
	if err := f.local.SaveSymptoms([]domain.Symptom{seedSymptom}); err != nil {
		t.Fatalf("SaveSymptoms failed: %v", err)
	}
	if err := f.local.SaveQueue([]domain.ChangeToPush{domain.NewAddSymptom(seedSymptom)}); err != nil {
		t.Fatalf("SaveQueue failed: %v", err)
	}
	if err := f.local.SaveSettings(domain.Settings{APIURL: "https://health.example.com", APIToken: "secret"}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if err := f.local.SaveLastPullDate(now); err != nil {
		t.Fatalf("SaveLastPullDate failed: %v", err)
	}

	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := f.symptoms.Get("sym_a"); !ok {
		t.Error("loaded symptom missing from store")
	}
	if f.engine.QueueLen() != 1 {
		t.Errorf("queue length = %d, want 1", f.engine.QueueLen())
	}
	snapshot := f.settings.Snapshot()
	if !snapshot.Configured() {
		t.Error("settings not loaded")
	}
	if snapshot.LastPulledAt == nil || !snapshot.LastPulledAt.Equal(now) {
		t.Errorf("LastPulledAt = %v, want %v", snapshot.LastPulledAt, now)
	}
}

func TestLoadTwiceFails(t *testing.T) {
	f := newFixture(t)
	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	if err := f.coordinator.Load(); err == nil {
		t.Error("second Load should fail (stores already initialized)")
	}
}

func TestUserCreateIsPersistedAndQueued(t *testing.T) {
	f := newFixture(t)
	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f.coordinator.Start(context.Background())
	defer f.coordinator.Stop()

	created := f.symptoms.Create("nausea", nil)

	waitFor(t, "queued change", func() bool { return f.engine.QueueLen() == 1 })
	pending := f.engine.PendingChanges()
	if len(pending) != 1 || pending[0].Kind != domain.ChangeAddSymptom || pending[0].EntityID() != created.ID {
		t.Errorf("queued changes = %+v", pending)
	}

	waitFor(t, "persisted snapshot", func() bool {
		persisted, err := f.local.LoadSymptoms()
		return err == nil && len(persisted) == 1 && persisted[0].ID == created.ID
	})
}

func TestAddThenDeleteCancelsQueuedChange(t *testing.T) {
	f := newFixture(t)
	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f.coordinator.Start(context.Background())
	defer f.coordinator.Stop()

	created := f.metrics.Create("sym_a", domain.IntensityLow, time.Now(), "")
	waitFor(t, "add queued", func() bool { return f.engine.QueueLen() == 1 })

	f.metrics.Delete(created.ID)
	// Add followed by delete cancels out entirely.
	waitFor(t, "queue drained by cancellation", func() bool { return f.engine.QueueLen() == 0 })

	waitFor(t, "snapshot without metric", func() bool {
		persisted, err := f.local.LoadMetrics()
		return err == nil && len(persisted) == 0
	})
}

func TestPulledDataIsPersistedButNotQueued(t *testing.T) {
	f := newFixture(t)
	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f.coordinator.Start(context.Background())
	defer f.coordinator.Stop()

	pulled := domain.Symptom{ID: "sym_remote", Name: "fatigue", OtherNames: []string{}, LastModified: time.Now()}
	f.symptoms.AddPulled([]domain.Symptom{pulled})

	waitFor(t, "persisted pulled symptom", func() bool {
		persisted, err := f.local.LoadSymptoms()
		return err == nil && len(persisted) == 1
	})
	if f.engine.QueueLen() != 0 {
		t.Errorf("queue length = %d, want 0: pulled data must not be queued", f.engine.QueueLen())
	}
}

func TestSettingsChangesArePersisted(t *testing.T) {
	f := newFixture(t)
	if err := f.coordinator.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f.coordinator.Start(context.Background())
	defer f.coordinator.Stop()

	f.settings.SetAPIURL("https://health.example.com")
	anchor := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.settings.SetLastPulledAt(anchor)

	waitFor(t, "persisted settings", func() bool {
		persisted, ok, err := f.local.LoadSettings()
		return err == nil && ok && persisted.APIURL == "https://health.example.com"
	})
	waitFor(t, "persisted pull anchor", func() bool {
		persisted, err := f.local.LoadLastPullDate()
		return err == nil && persisted != nil && persisted.Equal(anchor)
	})

	// The anchor lives in its own slot, not inside settings.
	persisted, _, err := f.local.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if persisted.LastPulledAt != nil {
		t.Errorf("settings slot carries the anchor: %v", persisted.LastPulledAt)
	}
}
