package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// SymptomIDPrefix tags symptom ids: "sym_<random>".
	SymptomIDPrefix = "sym"
	// MetricIDPrefix tags metric ids: "met_<random>".
	MetricIDPrefix = "met"
)

// generateID builds "<prefix>_<suffix>" from a random UUID, with the
// dashes stripped to keep ids compact and shell-friendly.
func generateID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + suffix
}

// NewSymptomID returns a fresh symptom id.
//
// Ids are opaque strings; uniqueness within a store is enforced by
// the caller, which retries on the (vanishingly rare) collision.
func NewSymptomID() string {
	return generateID(SymptomIDPrefix)
}

// NewMetricID returns a fresh metric id.
func NewMetricID() string {
	return generateID(MetricIDPrefix)
}
