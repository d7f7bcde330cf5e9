package store

import (
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// MetricStore owns the metric map and its day-bucket index.
//
// The day buckets key metric ids by the local calendar day of the
// observation date, which makes "last N days" queries a handful of
// map lookups instead of a scan.
type MetricStore struct {
	mu          sync.Mutex
	metrics     map[string]domain.Metric
	byDay       map[string]map[string]struct{}
	initialized bool

	events *broadcaster
	logger *log.Logger
	now    func() time.Time
}

// NewMetricStore creates an empty store. If logger is nil, a default
// logger writing to stderr is used.
func NewMetricStore(logger *log.Logger) *MetricStore {
	if logger == nil {
		logger = log.New(os.Stderr, "[metrics] ", log.LstdFlags)
	}
	return &MetricStore{
		metrics: make(map[string]domain.Metric),
		byDay:   make(map[string]map[string]struct{}),
		events:  newBroadcaster(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Events returns a new subscription to the store's change stream.
func (s *MetricStore) Events() <-chan Event {
	return s.events.subscribe()
}

// Initialize seeds the store from the persisted snapshot. A second
// call fails.
func (s *MetricStore) Initialize(items []domain.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true

	for _, item := range items {
		s.metrics[item.ID] = item
		s.bucketLocked(item)
	}

	s.events.emit(Event{Kind: EventInitialized})
	return nil
}

// Create records a new observation with a freshly generated id.
func (s *MetricStore) Create(symptomID string, intensity domain.Intensity, date time.Time, notes string) domain.Metric {
	s.mu.Lock()

	id := domain.NewMetricID()
	for {
		if _, taken := s.metrics[id]; !taken {
			break
		}
		id = domain.NewMetricID()
	}

	metric := domain.Metric{
		ID:           id,
		SymptomID:    symptomID,
		Intensity:    intensity,
		Date:         date,
		Notes:        notes,
		LastModified: s.now(),
	}
	s.metrics[id] = metric
	s.bucketLocked(metric)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventAdded, ID: id})
	return metric
}

// Update replaces a metric's fields and stamps LastModified. The day
// bucket moves with the metric when its date changes. Updating a
// missing id returns an *UpdateError.
func (s *MetricStore) Update(metric domain.Metric) (domain.Metric, error) {
	s.mu.Lock()

	previous, ok := s.metrics[metric.ID]
	if !ok {
		s.mu.Unlock()
		return domain.Metric{}, &UpdateError{ID: metric.ID}
	}

	metric.Touch(s.now())
	s.unbucketLocked(previous)
	s.metrics[metric.ID] = metric
	s.bucketLocked(metric)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventUpdated, ID: metric.ID})
	return metric, nil
}

// Delete removes a metric. Deleting a missing id is a no-op with a
// debug log.
func (s *MetricStore) Delete(id string) {
	s.mu.Lock()

	metric, ok := s.metrics[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Printf("delete of missing metric %s ignored", id)
		return
	}
	s.unbucketLocked(metric)
	delete(s.metrics, id)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventDeleted, ID: id})
}

// Get returns a metric by id.
func (s *MetricStore) Get(id string) (domain.Metric, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metric, ok := s.metrics[id]
	return metric, ok
}

// All returns every metric sorted by observation date, newest first.
func (s *MetricStore) All() []domain.Metric {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Metric, 0, len(s.metrics))
	for _, metric := range s.metrics {
		all = append(all, metric)
	}
	sortNewestFirst(all)
	return all
}

// MetricsOfLastNDays returns the metrics whose local calendar day
// falls in the n-day window ending today, newest first. n <= 0
// returns nothing.
func (s *MetricStore) MetricsOfLastNDays(n int) []domain.Metric {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return nil
	}

	var matched []domain.Metric
	day := s.now().Local()
	for i := 0; i < n; i++ {
		bucket := s.byDay[domain.DayOf(day)]
		for id := range bucket {
			matched = append(matched, s.metrics[id])
		}
		day = day.AddDate(0, 0, -1)
	}
	sortNewestFirst(matched)
	return matched
}

// IsSymptomUsedInHistory reports whether any metric references the
// symptom. The UI blocks symptom deletion while this is true.
func (s *MetricStore) IsSymptomUsedInHistory(symptomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, metric := range s.metrics {
		if metric.SymptomID == symptomID {
			return true
		}
	}
	return false
}

// AddPulled upserts metrics delivered by a sync pull, emitting a
// single AddedFromExternalSource event.
func (s *MetricStore) AddPulled(items []domain.Metric) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	for _, item := range items {
		if previous, ok := s.metrics[item.ID]; ok {
			s.unbucketLocked(previous)
		}
		s.metrics[item.ID] = item
		s.bucketLocked(item)
	}
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventAddedFromExternalSource})
}

// Len returns the number of metrics held.
func (s *MetricStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metrics)
}

// Close tears down the event streams.
func (s *MetricStore) Close() {
	s.events.close()
}

func (s *MetricStore) bucketLocked(m domain.Metric) {
	day := domain.DayOf(m.Date)
	bucket, ok := s.byDay[day]
	if !ok {
		bucket = make(map[string]struct{})
		s.byDay[day] = bucket
	}
	bucket[m.ID] = struct{}{}
}

func (s *MetricStore) unbucketLocked(m domain.Metric) {
	day := domain.DayOf(m.Date)
	bucket, ok := s.byDay[day]
	if !ok {
		return
	}
	delete(bucket, m.ID)
	if len(bucket) == 0 {
		delete(s.byDay, day)
	}
}

func sortNewestFirst(metrics []domain.Metric) {
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Date.Equal(metrics[j].Date) {
			return metrics[i].ID < metrics[j].ID
		}
		return metrics[i].Date.After(metrics[j].Date)
	})
}
