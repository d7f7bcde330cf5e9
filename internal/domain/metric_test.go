package domain

import (
	"testing"
	"time"
)

func TestParseNumericIntensity(t *testing.T) {
	tests := []struct {
		notes     string
		wantLevel int
		wantRest  string
		wantOK    bool
	}{
		{"7/10", 7, "", true},
		{"10/10", 10, "", true},
		{"1/10 - dull ache behind the eyes", 1, "dull ache behind the eyes", true},
		{"0/10 - not a level", 0, "0/10 - not a level", false},
		{"11/10", 0, "11/10", false},
		{"headache after lunch", 0, "headache after lunch", false},
		{"", 0, "", false},
		{"7/10- missing space", 0, "7/10- missing space", false},
	}

	for _, tt := range tests {
		level, rest, ok := ParseNumericIntensity(tt.notes)
		if ok != tt.wantOK {
			t.Errorf("ParseNumericIntensity(%q) ok = %v, want %v", tt.notes, ok, tt.wantOK)
			continue
		}
		if level != tt.wantLevel {
			t.Errorf("ParseNumericIntensity(%q) level = %d, want %d", tt.notes, level, tt.wantLevel)
		}
		if rest != tt.wantRest {
			t.Errorf("ParseNumericIntensity(%q) rest = %q, want %q", tt.notes, rest, tt.wantRest)
		}
	}
}

func TestSetNumericIntensity(t *testing.T) {
	m := Metric{
		ID:           NewMetricID(),
		SymptomID:    NewSymptomID(),
		Intensity:    IntensityLow,
		Date:         time.Now(),
		Notes:        "2/10 - worse in the morning",
		LastModified: time.Now(),
	}

	if err := m.SetNumericIntensity(8); err != nil {
		t.Fatalf("SetNumericIntensity(8) failed: %v", err)
	}
	if m.Intensity != IntensityHigh {
		t.Errorf("intensity = %q, want %q", m.Intensity, IntensityHigh)
	}
	if m.Notes != "8/10 - worse in the morning" {
		t.Errorf("notes = %q, want rewritten prefix with preserved tail", m.Notes)
	}

	// Plain notes gain a prefix without losing the text.
	m.Notes = "after coffee"
	if err := m.SetNumericIntensity(4); err != nil {
		t.Fatalf("SetNumericIntensity(4) failed: %v", err)
	}
	if m.Notes != "4/10 - after coffee" {
		t.Errorf("notes = %q, want %q", m.Notes, "4/10 - after coffee")
	}
	if m.Intensity != IntensityMedium {
		t.Errorf("intensity = %q, want %q", m.Intensity, IntensityMedium)
	}

	if err := m.SetNumericIntensity(0); err == nil {
		t.Error("SetNumericIntensity(0) should fail")
	}
	if err := m.SetNumericIntensity(11); err == nil {
		t.Error("SetNumericIntensity(11) should fail")
	}
}

func TestIntensityForLevel(t *testing.T) {
	buckets := map[int]Intensity{
		1: IntensityLow, 3: IntensityLow,
		4: IntensityMedium, 6: IntensityMedium,
		7: IntensityHigh, 10: IntensityHigh,
	}
	for level, want := range buckets {
		got, err := IntensityForLevel(level)
		if err != nil {
			t.Fatalf("IntensityForLevel(%d) failed: %v", level, err)
		}
		if got != want {
			t.Errorf("IntensityForLevel(%d) = %q, want %q", level, got, want)
		}
	}
}

func TestParseIntensityRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "LOW", "severe", "moderate"} {
		if _, err := ParseIntensity(raw); err == nil {
			t.Errorf("ParseIntensity(%q) should fail", raw)
		}
	}
}
