package store

import (
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/symtrack/symtrack/internal/autocomplete"
	"github.com/symtrack/symtrack/internal/domain"
)

// SymptomStore owns the symptom map and its autocomplete index.
type SymptomStore struct {
	mu          sync.Mutex
	symptoms    map[string]domain.Symptom
	index       *autocomplete.Index
	initialized bool

	events *broadcaster
	logger *log.Logger
	now    func() time.Time
}

// NewSymptomStore creates an empty store. If logger is nil, a default
// logger writing to stderr is used.
func NewSymptomStore(logger *log.Logger) *SymptomStore {
	if logger == nil {
		logger = log.New(os.Stderr, "[symptoms] ", log.LstdFlags)
	}
	return &SymptomStore{
		symptoms: make(map[string]domain.Symptom),
		index:    autocomplete.NewIndex(),
		events:   newBroadcaster(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Events returns a new subscription to the store's change stream.
// Events are observed in emission order.
func (s *SymptomStore) Events() <-chan Event {
	return s.events.subscribe()
}

// Initialize seeds the store from the persisted snapshot. Calling it
// a second time fails: initialization happens exactly once at startup.
func (s *SymptomStore) Initialize(items []domain.Symptom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true

	for _, item := range items {
		s.symptoms[item.ID] = item
		s.index.AddItem(item.ID, item.SearchTerms()...)
	}

	s.events.emit(Event{Kind: EventInitialized})
	return nil
}

// Create adds a new symptom with a freshly generated id and the
// current instant as LastModified. Id generation retries on the
// (vanishingly rare) collision with an existing entry.
func (s *SymptomStore) Create(name string, otherNames []string) domain.Symptom {
	s.mu.Lock()

	id := domain.NewSymptomID()
	for {
		if _, taken := s.symptoms[id]; !taken {
			break
		}
		id = domain.NewSymptomID()
	}

	if otherNames == nil {
		otherNames = []string{}
	}
	symptom := domain.Symptom{
		ID:           id,
		Name:         name,
		OtherNames:   otherNames,
		LastModified: s.now(),
	}
	s.symptoms[id] = symptom
	s.index.AddItem(id, symptom.SearchTerms()...)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventAdded, ID: id})
	return symptom
}

// Update replaces a symptom's fields and stamps LastModified with the
// current instant. Updating a missing id returns an *UpdateError.
func (s *SymptomStore) Update(symptom domain.Symptom) (domain.Symptom, error) {
	s.mu.Lock()

	if _, ok := s.symptoms[symptom.ID]; !ok {
		s.mu.Unlock()
		return domain.Symptom{}, &UpdateError{ID: symptom.ID}
	}

	symptom.Touch(s.now())
	s.symptoms[symptom.ID] = symptom
	s.index.AddItem(symptom.ID, symptom.SearchTerms()...)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventUpdated, ID: symptom.ID})
	return symptom, nil
}

// Delete removes a symptom. Deleting a missing id is a no-op with a
// debug log.
func (s *SymptomStore) Delete(id string) {
	s.mu.Lock()

	if _, ok := s.symptoms[id]; !ok {
		s.mu.Unlock()
		s.logger.Printf("delete of missing symptom %s ignored", id)
		return
	}
	delete(s.symptoms, id)
	s.index.RemoveItem(id)
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventDeleted, ID: id})
}

// Get returns a symptom by id.
func (s *SymptomStore) Get(id string) (domain.Symptom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	symptom, ok := s.symptoms[id]
	return symptom, ok
}

// All returns every symptom sorted alphabetically by lowercase name.
func (s *SymptomStore) All() []domain.Symptom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *SymptomStore) sortedLocked() []domain.Symptom {
	all := make([]domain.Symptom, 0, len(s.symptoms))
	for _, symptom := range s.symptoms {
		all = append(all, symptom)
	}
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
	})
	return all
}

// Search returns the symptoms matching the query through the
// autocomplete index, sorted alphabetically. An empty query returns
// all symptoms.
func (s *SymptomStore) Search(query string) []domain.Symptom {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return s.sortedLocked()
	}

	ids := s.index.Search(query)
	matched := make([]domain.Symptom, 0, len(ids))
	for _, id := range ids {
		if symptom, ok := s.symptoms[id]; ok {
			matched = append(matched, symptom)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
	})
	return matched
}

// AddPulled upserts symptoms delivered by a sync pull. It emits a
// single AddedFromExternalSource event so subscribers persist without
// re-queueing a push.
func (s *SymptomStore) AddPulled(items []domain.Symptom) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	for _, item := range items {
		s.symptoms[item.ID] = item
		s.index.AddItem(item.ID, item.SearchTerms()...)
	}
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventAddedFromExternalSource})
}

// Len returns the number of symptoms held.
func (s *SymptomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.symptoms)
}

// Close tears down the event streams.
func (s *SymptomStore) Close() {
	s.events.close()
}
