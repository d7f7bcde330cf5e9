package store

import (
	"errors"
	"testing"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

var storeTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestSymptomStore creates a store with a deterministic clock.
func newTestSymptomStore(t *testing.T) *SymptomStore {
	t.Helper()
	s := NewSymptomStore(nil)
	s.now = func() time.Time { return storeTime }
	return s
}

// drain collects currently buffered events from a stream.
func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var collected []Event
	for {
		select {
		case e := <-events:
			collected = append(collected, e)
		default:
			return collected
		}
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	s := newTestSymptomStore(t)

	if err := s.Initialize(nil); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := s.Initialize(nil); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize = %v, want ErrAlreadyInitialized", err)
	}
}

func TestCreateStampsIDAndTime(t *testing.T) {
	s := newTestSymptomStore(t)

	created := s.Create("headache", []string{"migraine"})
	if created.ID == "" || created.ID[:4] != "sym_" {
		t.Errorf("created id = %q", created.ID)
	}
	if !created.LastModified.Equal(storeTime) {
		t.Errorf("LastModified = %v, want %v", created.LastModified, storeTime)
	}

	stored, ok := s.Get(created.ID)
	if !ok || stored.Name != "headache" {
		t.Errorf("Get = %+v, %v", stored, ok)
	}
}

func TestUpdateMissingFails(t *testing.T) {
	s := newTestSymptomStore(t)

	_, err := s.Update(domain.Symptom{ID: "sym_ghost", Name: "x"})
	var updateErr *UpdateError
	if !errors.As(err, &updateErr) {
		t.Fatalf("Update = %v, want *UpdateError", err)
	}
	if updateErr.ID != "sym_ghost" {
		t.Errorf("UpdateError.ID = %q", updateErr.ID)
	}
}

func TestUpdateTouchesLastModified(t *testing.T) {
	s := newTestSymptomStore(t)
	created := s.Create("headache", nil)

	later := storeTime.Add(time.Hour)
	s.now = func() time.Time { return later }

	created.Name = "tension headache"
	updated, err := s.Update(created)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.LastModified.Equal(later) {
		t.Errorf("LastModified = %v, want %v", updated.LastModified, later)
	}
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	s := newTestSymptomStore(t)
	events := s.Events()

	s.Delete("sym_ghost")
	if got := drain(t, events); len(got) != 0 {
		t.Errorf("events after deleting missing id = %v, want none", got)
	}
}

func TestAllSortsAlphabetically(t *testing.T) {
	s := newTestSymptomStore(t)
	s.Create("Nausea", nil)
	s.Create("headache", nil)
	s.Create("Back pain", nil)

	all := s.All()
	wantOrder := []string{"Back pain", "headache", "Nausea"}
	if len(all) != len(wantOrder) {
		t.Fatalf("All length = %d, want %d", len(all), len(wantOrder))
	}
	for i, symptom := range all {
		if symptom.Name != wantOrder[i] {
			t.Errorf("All[%d] = %q, want %q", i, symptom.Name, wantOrder[i])
		}
	}
}

func TestSearchUsesAlternateNames(t *testing.T) {
	s := newTestSymptomStore(t)
	s.Create("headache", []string{"migraine"})
	s.Create("nausea", nil)

	matched := s.Search("migr")
	if len(matched) != 1 || matched[0].Name != "headache" {
		t.Errorf("Search(migr) = %+v", matched)
	}

	// Empty query returns everything.
	if got := s.Search("  "); len(got) != 2 {
		t.Errorf("Search(blank) = %d items, want 2", len(got))
	}
}

func TestSearchReflectsRename(t *testing.T) {
	s := newTestSymptomStore(t)
	created := s.Create("headache", nil)

	created.Name = "migraine"
	if _, err := s.Update(created); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if got := s.Search("head"); len(got) != 0 {
		t.Errorf("Search(head) after rename = %+v, want none", got)
	}
	if got := s.Search("migr"); len(got) != 1 {
		t.Errorf("Search(migr) after rename = %+v, want one", got)
	}
}

func TestEventSequence(t *testing.T) {
	s := newTestSymptomStore(t)
	events := s.Events()

	if err := s.Initialize(nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	created := s.Create("headache", nil)
	created.Name = "migraine"
	if _, err := s.Update(created); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	s.Delete(created.ID)

	got := drain(t, events)
	wantKinds := []EventKind{EventInitialized, EventAdded, EventUpdated, EventDeleted}
	if len(got) != len(wantKinds) {
		t.Fatalf("got %d events, want %d: %v", len(got), len(wantKinds), got)
	}
	for i, e := range got {
		if e.Kind != wantKinds[i] {
			t.Errorf("event[%d].Kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
	}
	if got[1].ID != created.ID || got[3].ID != created.ID {
		t.Errorf("events carry wrong ids: %v", got)
	}
}

func TestAddPulledEmitsExternalEvent(t *testing.T) {
	s := newTestSymptomStore(t)
	events := s.Events()

	pulled := domain.Symptom{
		ID:           "sym_remote",
		Name:         "fatigue",
		OtherNames:   []string{},
		LastModified: storeTime,
	}
	s.AddPulled([]domain.Symptom{pulled})

	got := drain(t, events)
	if len(got) != 1 || got[0].Kind != EventAddedFromExternalSource {
		t.Fatalf("events = %v, want one AddedFromExternalSource", got)
	}

	stored, ok := s.Get("sym_remote")
	if !ok || stored.Name != "fatigue" {
		t.Errorf("pulled symptom not stored: %+v, %v", stored, ok)
	}

	// Pulled symptoms join the search index.
	if matched := s.Search("fat"); len(matched) != 1 {
		t.Errorf("Search(fat) = %+v", matched)
	}
}

func TestAddPulledEmptyIsSilent(t *testing.T) {
	s := newTestSymptomStore(t)
	events := s.Events()

	s.AddPulled(nil)
	if got := drain(t, events); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}
}
