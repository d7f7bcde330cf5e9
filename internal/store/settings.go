package store

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// SettingsStore owns the sync configuration: endpoint URL, auth
// token, and the last successful pull anchor.
type SettingsStore struct {
	mu          sync.Mutex
	settings    domain.Settings
	initialized bool

	events *broadcaster
	logger *log.Logger
}

// NewSettingsStore creates an empty store. If logger is nil, a
// default logger writing to stderr is used.
func NewSettingsStore(logger *log.Logger) *SettingsStore {
	if logger == nil {
		logger = log.New(os.Stderr, "[settings] ", log.LstdFlags)
	}
	return &SettingsStore{
		events: newBroadcaster(logger),
		logger: logger,
	}
}

// Events returns a new subscription to the store's change stream.
func (s *SettingsStore) Events() <-chan Event {
	return s.events.subscribe()
}

// Initialize seeds the store from the persisted snapshot. A second
// call fails.
func (s *SettingsStore) Initialize(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.settings = settings

	s.events.emit(Event{Kind: EventInitialized})
	return nil
}

// Snapshot returns a copy of the current settings.
func (s *SettingsStore) Snapshot() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := s.settings
	if s.settings.LastPulledAt != nil {
		at := *s.settings.LastPulledAt
		copied.LastPulledAt = &at
	}
	return copied
}

// SetAPIURL records the endpoint URL.
func (s *SettingsStore) SetAPIURL(url string) {
	s.mu.Lock()
	changed := s.settings.APIURL != url
	s.settings.APIURL = url
	s.mu.Unlock()

	if changed {
		s.events.emit(Event{Kind: EventUpdated})
	}
}

// SetAPIToken records the auth token.
func (s *SettingsStore) SetAPIToken(token string) {
	s.mu.Lock()
	changed := s.settings.APIToken != token
	s.settings.APIToken = token
	s.mu.Unlock()

	if changed {
		s.events.emit(Event{Kind: EventUpdated})
	}
}

// SetLastPulledAt records the pull anchor after a successful pull.
func (s *SettingsStore) SetLastPulledAt(at time.Time) {
	s.mu.Lock()
	s.settings.LastPulledAt = &at
	s.mu.Unlock()

	s.events.emit(Event{Kind: EventUpdated})
}

// Close tears down the event streams.
func (s *SettingsStore) Close() {
	s.events.close()
}
