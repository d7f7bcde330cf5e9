// Package engine provides the bidirectional sync engine: a periodic
// pull/reconcile/push loop that converges the in-memory domain, the
// durable local store, and the shared remote store.
package engine

import (
	"context"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
	"github.com/symtrack/symtrack/internal/remote"
)

// RemoteAPI is the slice of the remote client the engine drives.
//
// The engine never interprets response bodies itself; it reacts to
// the typed errors: transport errors retain queued changes and mark
// the tick failed, remote.ErrNotFound on a delete means the goal is
// already achieved, and other API errors retain the change for a
// later tick.
type RemoteAPI interface {
	// ReadAll fetches entities published since the given instant.
	ReadAll(ctx context.Context, since *time.Time) (remote.PulledData, error)

	// CreateSymptom publishes a locally created symptom.
	CreateSymptom(ctx context.Context, s domain.Symptom) error

	// UpdateSymptom publishes a symptom edit.
	UpdateSymptom(ctx context.Context, s domain.Symptom) error

	// DeleteSymptom publishes a symptom deletion.
	DeleteSymptom(ctx context.Context, id string) error

	// CreateMetric publishes a locally created metric.
	CreateMetric(ctx context.Context, m domain.Metric) error

	// UpdateMetric publishes a metric edit.
	UpdateMetric(ctx context.Context, m domain.Metric) error

	// DeleteMetric publishes a metric deletion.
	DeleteMetric(ctx context.Context, id string) error

	// PushAll bulk-sends every given entity, bypassing the queue.
	PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (remote.PushAllResult, error)
}

// compile-time check that the real client satisfies the interface.
var _ RemoteAPI = (*remote.Client)(nil)
