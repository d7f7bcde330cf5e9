package store

import (
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// UnknownSymptomName labels orphaned metrics whose symptom was
// deleted on another device.
const UnknownSymptomName = "unknown symptom"

// Suggestion is one symptom the user recently tracked, enriched for
// quick re-entry.
type Suggestion struct {
	SymptomID      string
	Name           string
	RecordedToday  bool
	RecordedInPast bool
}

// EnrichAndSquash collapses a newest-first metric sequence into one
// suggestion per symptom id, in order of first appearance. A
// suggestion's flags report whether that symptom has a metric dated
// today and whether it has one dated earlier than today. resolve maps
// symptom ids to names; unresolvable ids label as unknown.
func EnrichAndSquash(metrics []domain.Metric, resolve func(string) (domain.Symptom, bool), now time.Time) []Suggestion {
	today := domain.DayOf(now)

	var order []string
	byID := make(map[string]*Suggestion)

	for _, metric := range metrics {
		suggestion, seen := byID[metric.SymptomID]
		if !seen {
			name := UnknownSymptomName
			if symptom, ok := resolve(metric.SymptomID); ok {
				name = symptom.Name
			}
			suggestion = &Suggestion{SymptomID: metric.SymptomID, Name: name}
			byID[metric.SymptomID] = suggestion
			order = append(order, metric.SymptomID)
		}

		day := domain.DayOf(metric.Date)
		if day == today {
			suggestion.RecordedToday = true
		} else if day < today {
			suggestion.RecordedInPast = true
		}
	}

	squashed := make([]Suggestion, 0, len(order))
	for _, id := range order {
		squashed = append(squashed, *byID[id])
	}
	return squashed
}

// SuggestedSymptoms returns the enriched suggestions for the metrics
// of the last n days.
func (s *MetricStore) SuggestedSymptoms(n int, symptoms *SymptomStore) []Suggestion {
	return EnrichAndSquash(s.MetricsOfLastNDays(n), symptoms.Get, s.now())
}
