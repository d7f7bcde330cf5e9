// Package domain provides the core data structures for symtrack:
// symptoms, metrics, settings, and the pending-change records the
// sync engine pushes to the remote API.
//
// The structures are deliberately flat with last-write-wins semantics:
// every entity carries a LastModified timestamp that conflict
// resolution compares across devices.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Symptom is a named kind of thing the user tracks.
//
// OtherNames holds alternate names used by prefix search, in the
// order the user entered them.
type Symptom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OtherNames   []string  `json:"other_names"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks if the Symptom has valid field values.
func (s *Symptom) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !strings.HasPrefix(s.ID, SymptomIDPrefix+"_") {
		return fmt.Errorf("symptom id must start with %q (got %q)", SymptomIDPrefix+"_", s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.LastModified.IsZero() {
		return fmt.Errorf("last_modified is required")
	}
	return nil
}

// SearchTerms returns the strings the autocomplete index should
// tokenize for this symptom: the name plus every alternate name.
func (s *Symptom) SearchTerms() []string {
	terms := make([]string, 0, len(s.OtherNames)+1)
	terms = append(terms, s.Name)
	terms = append(terms, s.OtherNames...)
	return terms
}

// Touch sets LastModified to the given instant.
// Call on every local mutation so per-entity timestamps stay monotonic.
func (s *Symptom) Touch(now time.Time) {
	s.LastModified = now
}
