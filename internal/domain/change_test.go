package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func testSymptom(t *testing.T, name string) Symptom {
	t.Helper()
	return Symptom{
		ID:           NewSymptomID(),
		Name:         name,
		OtherNames:   []string{},
		LastModified: time.Now(),
	}
}

func TestChangeEntityIDAndDate(t *testing.T) {
	s := testSymptom(t, "headache")
	add := NewAddSymptom(s)
	if add.EntityID() != s.ID {
		t.Errorf("EntityID = %q, want %q", add.EntityID(), s.ID)
	}
	if !add.Date().Equal(s.LastModified) {
		t.Errorf("Date = %v, want %v", add.Date(), s.LastModified)
	}

	deletedAt := time.Now().Add(time.Minute)
	del := NewDeleteSymptom(s.ID, deletedAt)
	if del.EntityID() != s.ID {
		t.Errorf("delete EntityID = %q, want %q", del.EntityID(), s.ID)
	}
	if !del.Date().Equal(deletedAt) {
		t.Errorf("delete Date = %v, want %v", del.Date(), deletedAt)
	}
	if !del.IsDelete() || del.IsAdd() || del.IsUpdate() {
		t.Error("delete change miscategorized")
	}
}

func TestChangeJSONRoundTrip(t *testing.T) {
	s := testSymptom(t, "nausea")
	original := NewAddSymptom(s)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ChangeToPush
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Kind != ChangeAddSymptom {
		t.Errorf("kind = %q, want %q", decoded.Kind, ChangeAddSymptom)
	}
	if decoded.Symptom == nil || decoded.Symptom.ID != s.ID {
		t.Errorf("symptom payload lost in round trip: %+v", decoded.Symptom)
	}
}

func TestChangeUnmarshalRejectsUnknownKind(t *testing.T) {
	var c ChangeToPush
	if err := json.Unmarshal([]byte(`{"kind":"explode"}`), &c); err == nil {
		t.Error("unmarshal of unknown kind should fail")
	}
}

func TestLaterOf(t *testing.T) {
	earlier := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	if got := LaterOf(earlier, later); !got.Equal(later) {
		t.Errorf("LaterOf = %v, want %v", got, later)
	}
	if got := LaterOf(later, earlier); !got.Equal(later) {
		t.Errorf("LaterOf = %v, want %v", got, later)
	}
}

func TestGeneratedIDPrefixes(t *testing.T) {
	s := NewSymptomID()
	m := NewMetricID()
	if len(s) <= 4 || s[:4] != "sym_" {
		t.Errorf("symptom id %q missing sym_ prefix", s)
	}
	if len(m) <= 4 || m[:4] != "met_" {
		t.Errorf("metric id %q missing met_ prefix", m)
	}
	if NewSymptomID() == NewSymptomID() {
		t.Error("consecutive symptom ids should differ")
	}
}
