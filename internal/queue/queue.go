// Package queue holds the ordered log of pending mutations waiting to
// be pushed to the remote API.
//
// The queue maps each entity id to at most one pending change.
// Enqueuing a change for an id that already has one merges the pair,
// so the queue always reflects the user's final intent: an unpushed
// add followed by an update is still an add carrying the final state,
// and an unpushed add followed by a delete cancels out entirely.
package queue

import (
	"log"
	"os"
	"sync"

	"github.com/symtrack/symtrack/internal/domain"
)

// Queue is the per-entity pending-mutation log. It preserves
// insertion order for draining: a merged change keeps the slot of the
// earlier of the pair.
type Queue struct {
	mu      sync.Mutex
	entries map[string]domain.ChangeToPush
	order   []string
	logger  *log.Logger
}

// New creates an empty queue. If logger is nil, a default logger
// writing to stderr is used.
func New(logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.New(os.Stderr, "[queue] ", log.LstdFlags)
	}
	return &Queue{
		entries: make(map[string]domain.ChangeToPush),
		logger:  logger,
	}
}

// Enqueue records a pending change, merging with any prior change for
// the same entity. It returns true if an entry remains queued for the
// id afterwards (false when the pair cancelled out).
func (q *Queue) Enqueue(change domain.ChangeToPush) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := change.EntityID()
	prior, exists := q.entries[id]
	if !exists {
		q.entries[id] = change
		q.order = append(q.order, id)
		return true
	}

	merged, keep := Merge(prior, change)
	if !keep {
		q.logger.Printf("changes for %s cancelled out, dropping entry", id)
		q.removeLocked(id)
		return false
	}
	q.entries[id] = merged
	return true
}

// Merge collapses two pending changes for the same entity into one.
// The pair is ordered by wall-clock date first; the rules then depend
// on the categories of the earliest and latest change:
//
//   - add then delete: the entity never reached the server, nothing
//     to push (keep=false).
//   - add then update: the latest payload wins but stays tagged as an
//     add, since the server has not seen a creation yet.
//   - anything else: the latest change wins. A change arriving after
//     a delete does not happen in this client's flows; if it does, it
//     is treated as the latest change.
func Merge(a, b domain.ChangeToPush) (merged domain.ChangeToPush, keep bool) {
	earliest, latest := a, b
	if a.Date().After(b.Date()) {
		earliest, latest = b, a
	}

	switch {
	case earliest.IsAdd() && latest.IsDelete():
		return domain.ChangeToPush{}, false
	case earliest.IsAdd() && latest.IsUpdate():
		retagged := latest
		switch latest.Kind {
		case domain.ChangeUpdateSymptom:
			retagged.Kind = domain.ChangeAddSymptom
		case domain.ChangeUpdateMetric:
			retagged.Kind = domain.ChangeAddMetric
		}
		return retagged, true
	default:
		return latest, true
	}
}

// Get returns the pending change for an entity id, if any.
func (q *Queue) Get(id string) (domain.ChangeToPush, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	change, ok := q.entries[id]
	return change, ok
}

// Remove drops the pending change for an entity id. Removing a
// missing id is a no-op.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

func (q *Queue) removeLocked(id string) {
	if _, ok := q.entries[id]; !ok {
		return
	}
	delete(q.entries, id)
	for i, queued := range q.order {
		if queued == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Pending returns the queued changes in insertion order.
func (q *Queue) Pending() []domain.ChangeToPush {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]domain.ChangeToPush, 0, len(q.order))
	for _, id := range q.order {
		pending = append(pending, q.entries[id])
	}
	return pending
}

// Len returns the number of queued changes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns the queue contents for persistence, in insertion
// order. The slice is a copy; mutating it does not affect the queue.
func (q *Queue) Snapshot() []domain.ChangeToPush {
	return q.Pending()
}

// Restore replaces the queue contents from a persisted snapshot.
// Entries are loaded in order; a second entry for an id already
// loaded is combined with it by Merge, and a pair that cancels out
// drops the entry.
func (q *Queue) Restore(changes []domain.ChangeToPush) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = make(map[string]domain.ChangeToPush, len(changes))
	q.order = q.order[:0]
	for _, change := range changes {
		id := change.EntityID()
		if _, dup := q.entries[id]; dup {
			q.logger.Printf("WARNING: duplicate persisted change for %s, merging", id)
			merged, keep := Merge(q.entries[id], change)
			if !keep {
				q.removeLocked(id)
				continue
			}
			q.entries[id] = merged
			continue
		}
		q.entries[id] = change
		q.order = append(q.order, id)
	}
}
