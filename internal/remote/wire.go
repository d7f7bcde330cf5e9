package remote

import (
	"fmt"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// wireTimeLayout is ISO-8601 / RFC3339 with millisecond precision.
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatWireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

func parseWireTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return t, nil
}

// apiSymptom is the wire shape of a symptom.
type apiSymptom struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	OtherNames []string `json:"other_names"`
	UpdatedAt  string   `json:"updated_at"`
}

// apiMetric is the wire shape of a metric.
type apiMetric struct {
	ID        string `json:"id"`
	SymptomID string `json:"symptom_id"`
	Date      string `json:"date"`
	UpdatedAt string `json:"updated_at"`
	Intensity string `json:"intensity"`
	Notes     string `json:"notes"`
}

func symptomToWire(s domain.Symptom) apiSymptom {
	other := s.OtherNames
	if other == nil {
		other = []string{}
	}
	return apiSymptom{
		ID:         s.ID,
		Name:       s.Name,
		OtherNames: other,
		UpdatedAt:  formatWireTime(s.LastModified),
	}
}

func metricToWire(m domain.Metric) apiMetric {
	return apiMetric{
		ID:        m.ID,
		SymptomID: m.SymptomID,
		Date:      formatWireTime(m.Date),
		UpdatedAt: formatWireTime(m.LastModified),
		Intensity: string(m.Intensity),
		Notes:     m.Notes,
	}
}

// symptomFromWire decodes one symptom. Decoding is total: every
// failure names the field so a bad entity can be skipped per item.
func symptomFromWire(raw apiSymptom) (domain.Symptom, error) {
	if raw.ID == "" {
		return domain.Symptom{}, fmt.Errorf("symptom is missing its id")
	}
	if raw.Name == "" {
		return domain.Symptom{}, fmt.Errorf("symptom %s is missing its name", raw.ID)
	}
	updatedAt, err := parseWireTime("updated_at", raw.UpdatedAt)
	if err != nil {
		return domain.Symptom{}, fmt.Errorf("symptom %s: %w", raw.ID, err)
	}
	other := raw.OtherNames
	if other == nil {
		other = []string{}
	}
	return domain.Symptom{
		ID:           raw.ID,
		Name:         raw.Name,
		OtherNames:   other,
		LastModified: updatedAt,
	}, nil
}

// metricFromWire decodes one metric. Unknown intensities and
// unparseable dates are per-item failures, never fatal to a response.
func metricFromWire(raw apiMetric) (domain.Metric, error) {
	if raw.ID == "" {
		return domain.Metric{}, fmt.Errorf("metric is missing its id")
	}
	if raw.SymptomID == "" {
		return domain.Metric{}, fmt.Errorf("metric %s is missing its symptom_id", raw.ID)
	}
	intensity, err := domain.ParseIntensity(raw.Intensity)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("metric %s: %w", raw.ID, err)
	}
	date, err := parseWireTime("date", raw.Date)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("metric %s: %w", raw.ID, err)
	}
	updatedAt, err := parseWireTime("updated_at", raw.UpdatedAt)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("metric %s: %w", raw.ID, err)
	}
	return domain.Metric{
		ID:           raw.ID,
		SymptomID:    raw.SymptomID,
		Intensity:    intensity,
		Date:         date,
		Notes:        raw.Notes,
		LastModified: updatedAt,
	}, nil
}
