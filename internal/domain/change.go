package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind tags a pending mutation waiting to be pushed.
type ChangeKind string

const (
	// ChangeAddSymptom publishes a locally created symptom.
	ChangeAddSymptom ChangeKind = "add_symptom"
	// ChangeUpdateSymptom publishes a local edit to a symptom.
	ChangeUpdateSymptom ChangeKind = "update_symptom"
	// ChangeDeleteSymptom publishes a local symptom deletion.
	ChangeDeleteSymptom ChangeKind = "delete_symptom"
	// ChangeAddMetric publishes a locally created metric.
	ChangeAddMetric ChangeKind = "add_metric"
	// ChangeUpdateMetric publishes a local edit to a metric.
	ChangeUpdateMetric ChangeKind = "update_metric"
	// ChangeDeleteMetric publishes a local metric deletion.
	ChangeDeleteMetric ChangeKind = "delete_metric"
)

// ChangeToPush is a tagged record describing one pending mutation.
// Add/Update kinds carry the entity payload; Delete kinds carry the
// target id and the instant the user deleted it.
type ChangeToPush struct {
	Kind         ChangeKind `json:"kind"`
	Symptom      *Symptom   `json:"symptom,omitempty"`
	Metric       *Metric    `json:"metric,omitempty"`
	DeleteID     string     `json:"delete_id,omitempty"`
	DeletionDate time.Time  `json:"deletion_date,omitempty"`
}

// NewAddSymptom builds the pending change for a locally created symptom.
func NewAddSymptom(s Symptom) ChangeToPush {
	return ChangeToPush{Kind: ChangeAddSymptom, Symptom: &s}
}

// NewUpdateSymptom builds the pending change for a local symptom edit.
func NewUpdateSymptom(s Symptom) ChangeToPush {
	return ChangeToPush{Kind: ChangeUpdateSymptom, Symptom: &s}
}

// NewDeleteSymptom builds the pending change for a local symptom deletion.
func NewDeleteSymptom(id string, deletedAt time.Time) ChangeToPush {
	return ChangeToPush{Kind: ChangeDeleteSymptom, DeleteID: id, DeletionDate: deletedAt}
}

// NewAddMetric builds the pending change for a locally created metric.
func NewAddMetric(m Metric) ChangeToPush {
	return ChangeToPush{Kind: ChangeAddMetric, Metric: &m}
}

// NewUpdateMetric builds the pending change for a local metric edit.
func NewUpdateMetric(m Metric) ChangeToPush {
	return ChangeToPush{Kind: ChangeUpdateMetric, Metric: &m}
}

// NewDeleteMetric builds the pending change for a local metric deletion.
func NewDeleteMetric(id string, deletedAt time.Time) ChangeToPush {
	return ChangeToPush{Kind: ChangeDeleteMetric, DeleteID: id, DeletionDate: deletedAt}
}

// EntityID returns the id of the entity this change targets. Changes
// are keyed by this id in the queue.
func (c ChangeToPush) EntityID() string {
	switch c.Kind {
	case ChangeAddSymptom, ChangeUpdateSymptom:
		return c.Symptom.ID
	case ChangeAddMetric, ChangeUpdateMetric:
		return c.Metric.ID
	case ChangeDeleteSymptom, ChangeDeleteMetric:
		return c.DeleteID
	default:
		panic(fmt.Sprintf("change with unknown kind %q", c.Kind))
	}
}

// Date returns the wall-clock instant the change was made: the
// entity's LastModified for adds and updates, the deletion instant
// for deletes. The merger orders competing changes by this value.
func (c ChangeToPush) Date() time.Time {
	switch c.Kind {
	case ChangeAddSymptom, ChangeUpdateSymptom:
		return c.Symptom.LastModified
	case ChangeAddMetric, ChangeUpdateMetric:
		return c.Metric.LastModified
	case ChangeDeleteSymptom, ChangeDeleteMetric:
		return c.DeletionDate
	default:
		panic(fmt.Sprintf("change with unknown kind %q", c.Kind))
	}
}

// IsAdd reports whether the change creates an entity.
func (c ChangeToPush) IsAdd() bool {
	return c.Kind == ChangeAddSymptom || c.Kind == ChangeAddMetric
}

// IsUpdate reports whether the change edits an existing entity.
func (c ChangeToPush) IsUpdate() bool {
	return c.Kind == ChangeUpdateSymptom || c.Kind == ChangeUpdateMetric
}

// IsDelete reports whether the change removes an entity.
func (c ChangeToPush) IsDelete() bool {
	return c.Kind == ChangeDeleteSymptom || c.Kind == ChangeDeleteMetric
}

// Validate checks that the payload matches the tag.
func (c ChangeToPush) Validate() error {
	switch c.Kind {
	case ChangeAddSymptom, ChangeUpdateSymptom:
		if c.Symptom == nil {
			return fmt.Errorf("%s change is missing its symptom payload", c.Kind)
		}
		return c.Symptom.Validate()
	case ChangeAddMetric, ChangeUpdateMetric:
		if c.Metric == nil {
			return fmt.Errorf("%s change is missing its metric payload", c.Kind)
		}
		return c.Metric.Validate()
	case ChangeDeleteSymptom, ChangeDeleteMetric:
		if c.DeleteID == "" {
			return fmt.Errorf("%s change is missing the target id", c.Kind)
		}
		if c.DeletionDate.IsZero() {
			return fmt.Errorf("%s change is missing the deletion date", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
}

// UnmarshalJSON decodes a change and rejects unknown kinds so a
// corrupted persisted queue fails loudly instead of silently pushing
// garbage.
func (c *ChangeToPush) UnmarshalJSON(data []byte) error {
	type alias ChangeToPush
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = ChangeToPush(decoded)
	return c.Validate()
}
