package store

import (
	"errors"
	"testing"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// newTestMetricStore creates a store with a deterministic clock.
func newTestMetricStore(t *testing.T) *MetricStore {
	t.Helper()
	s := NewMetricStore(nil)
	s.now = func() time.Time { return storeTime }
	return s
}

func TestMetricCreateBuckets(t *testing.T) {
	s := newTestMetricStore(t)

	m := s.Create("sym_a", domain.IntensityLow, storeTime, "")
	if m.ID[:4] != "met_" {
		t.Errorf("metric id = %q", m.ID)
	}

	day := domain.DayOf(storeTime)
	if _, ok := s.byDay[day][m.ID]; !ok {
		t.Errorf("bucket %s missing metric %s", day, m.ID)
	}
}

func TestMetricUpdateMovesBucket(t *testing.T) {
	s := newTestMetricStore(t)
	m := s.Create("sym_a", domain.IntensityLow, storeTime, "")

	moved := m
	moved.Date = storeTime.AddDate(0, 0, -3)
	updated, err := s.Update(moved)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	oldDay := domain.DayOf(storeTime)
	newDay := domain.DayOf(updated.Date)
	if _, ok := s.byDay[oldDay]; ok {
		t.Errorf("old bucket %s still exists", oldDay)
	}
	if _, ok := s.byDay[newDay][m.ID]; !ok {
		t.Errorf("new bucket %s missing metric", newDay)
	}
}

func TestMetricDeleteUnbuckets(t *testing.T) {
	s := newTestMetricStore(t)
	m := s.Create("sym_a", domain.IntensityLow, storeTime, "")

	s.Delete(m.ID)
	if len(s.byDay) != 0 {
		t.Errorf("byDay = %v, want empty", s.byDay)
	}
	if _, ok := s.Get(m.ID); ok {
		t.Error("deleted metric still present")
	}
}

func TestMetricUpdateMissingFails(t *testing.T) {
	s := newTestMetricStore(t)

	_, err := s.Update(domain.Metric{ID: "met_ghost"})
	var updateErr *UpdateError
	if !errors.As(err, &updateErr) {
		t.Fatalf("Update = %v, want *UpdateError", err)
	}
}

func TestAllSortsNewestFirst(t *testing.T) {
	s := newTestMetricStore(t)
	s.Create("sym_a", domain.IntensityLow, storeTime.Add(-2*time.Hour), "oldest")
	s.Create("sym_a", domain.IntensityLow, storeTime, "newest")
	s.Create("sym_a", domain.IntensityLow, storeTime.Add(-time.Hour), "middle")

	all := s.All()
	wantNotes := []string{"newest", "middle", "oldest"}
	for i, m := range all {
		if m.Notes != wantNotes[i] {
			t.Errorf("All[%d].Notes = %q, want %q", i, m.Notes, wantNotes[i])
		}
	}
}

func TestMetricsOfLastNDays(t *testing.T) {
	s := newTestMetricStore(t)
	s.Create("sym_a", domain.IntensityLow, storeTime, "today")
	s.Create("sym_a", domain.IntensityLow, storeTime.AddDate(0, 0, -1), "yesterday")
	s.Create("sym_a", domain.IntensityLow, storeTime.AddDate(0, 0, -6), "sixago")
	s.Create("sym_a", domain.IntensityLow, storeTime.AddDate(0, 0, -7), "weekago")

	got := s.MetricsOfLastNDays(7)
	if len(got) != 3 {
		t.Fatalf("MetricsOfLastNDays(7) returned %d metrics, want 3", len(got))
	}
	wantNotes := []string{"today", "yesterday", "sixago"}
	for i, m := range got {
		if m.Notes != wantNotes[i] {
			t.Errorf("got[%d].Notes = %q, want %q", i, m.Notes, wantNotes[i])
		}
	}

	if got := s.MetricsOfLastNDays(0); len(got) != 0 {
		t.Errorf("MetricsOfLastNDays(0) = %v, want empty", got)
	}
}

func TestIsSymptomUsedInHistory(t *testing.T) {
	s := newTestMetricStore(t)
	s.Create("sym_used", domain.IntensityLow, storeTime, "")

	if !s.IsSymptomUsedInHistory("sym_used") {
		t.Error("IsSymptomUsedInHistory(sym_used) = false, want true")
	}
	if s.IsSymptomUsedInHistory("sym_unused") {
		t.Error("IsSymptomUsedInHistory(sym_unused) = true, want false")
	}
}

func TestMetricAddPulledUpsertsAndRebuckets(t *testing.T) {
	s := newTestMetricStore(t)
	events := s.Events()

	local := s.Create("sym_a", domain.IntensityLow, storeTime, "local")
	drain(t, events)

	remote := local
	remote.Date = storeTime.AddDate(0, 0, -2)
	remote.Notes = "remote"
	s.AddPulled([]domain.Metric{remote})

	got := drain(t, events)
	if len(got) != 1 || got[0].Kind != EventAddedFromExternalSource {
		t.Fatalf("events = %v, want one AddedFromExternalSource", got)
	}

	stored, _ := s.Get(local.ID)
	if stored.Notes != "remote" {
		t.Errorf("stored.Notes = %q, want remote version", stored.Notes)
	}
	if _, ok := s.byDay[domain.DayOf(storeTime)]; ok {
		t.Error("stale day bucket survived the pull")
	}
	if _, ok := s.byDay[domain.DayOf(remote.Date)][local.ID]; !ok {
		t.Error("pulled metric missing from its day bucket")
	}
}

func TestMetricInitializeTwiceFails(t *testing.T) {
	s := newTestMetricStore(t)
	if err := s.Initialize(nil); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := s.Initialize(nil); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize = %v, want ErrAlreadyInitialized", err)
	}
}
