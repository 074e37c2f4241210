package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventStore is a mock implementation of EventStoreInterface for testing
type MockEventStore struct {
	mu        sync.RWMutex
	events    map[string][]store.Event
	order     []string // aggregate ids in first-append order
	snapshots map[string]store.Snapshot

	// For tracking calls in tests
	AppendCalls    []AppendCall
	AppendErr      error
	AppendCallback func(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, changes ...store.Change) ([]store.Event, error)
	SnapshotCalls  []store.Snapshot
}

// AppendCall records one change passed to Append
type AppendCall struct {
	AggregateID     string
	AggregateType   string
	ExpectedVersion int
	EventType       string
	Data            any
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		snapshots:   make(map[string]store.Snapshot),
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append stores events in memory, enforcing the expected version like the real stores
func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, changes ...store.Change) ([]store.Event, error) {
	m.mu.Lock()
	for _, c := range changes {
		m.AppendCalls = append(m.AppendCalls, AppendCall{
			AggregateID:     aggregateID,
			AggregateType:   aggregateType,
			ExpectedVersion: expectedVersion,
			EventType:       c.EventType,
			Data:            c.Data,
		})
	}
	callback := m.AppendCallback
	appendErr := m.AppendErr
	m.mu.Unlock()

	if callback != nil {
		return callback(ctx, aggregateID, aggregateType, expectedVersion, changes...)
	}
	if appendErr != nil {
		return nil, appendErr
	}
	return m.Store(aggregateID, aggregateType, expectedVersion, changes...)
}

// Store persists changes without recording a call. Callbacks use it to fall
// through to the default behaviour.
func (m *MockEventStore) Store(aggregateID, aggregateType string, expectedVersion int, changes ...store.Change) ([]store.Event, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	events, err := store.NewEvents(aggregateID, aggregateType, expectedVersion, time.Now(), changes)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if current := len(m.events[aggregateID]); current != expectedVersion {
		return nil, fmt.Errorf("%w: %s is at version %d, expected %d", store.ErrVersionConflict, aggregateID, current, expectedVersion)
	}
	if len(m.events[aggregateID]) == 0 {
		m.order = append(m.order, aggregateID)
	}
	m.events[aggregateID] = append(m.events[aggregateID], events...)
	return events, nil
}

// GetEvents returns events for an aggregate
func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.Event(nil), m.events[aggregateID]...), nil
}

// GetEventsFromVersion returns events after fromVersion
func (m *MockEventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []store.Event
	for _, e := range m.events[aggregateID] {
		if e.Version > fromVersion {
			events = append(events, e)
		}
	}
	return events, nil
}

// GetEventsByType returns the events of one aggregate type
func (m *MockEventStore) GetEventsByType(ctx context.Context, aggregateType string) ([]store.Event, error) {
	all, _ := m.GetAllEvents(ctx)
	var events []store.Event
	for _, e := range all {
		if e.AggregateType == aggregateType {
			events = append(events, e)
		}
	}
	return events, nil
}

// GetAllEvents returns all events, grouped by aggregate in creation order
func (m *MockEventStore) GetAllEvents(ctx context.Context) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []store.Event
	for _, id := range m.order {
		all = append(all, m.events[id]...)
	}
	return all, nil
}

// GetSnapshot returns the stored snapshot, if any
func (m *MockEventStore) GetSnapshot(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// SaveSnapshot records and stores a snapshot
func (m *MockEventStore) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotCalls = append(m.SnapshotCalls, *snapshot)
	m.snapshots[snapshot.AggregateID] = *snapshot
	return nil
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.order = nil
	m.snapshots = make(map[string]store.Snapshot)
	m.AppendCalls = make([]AppendCall, 0)
	m.SnapshotCalls = nil
	m.AppendErr = nil
	m.AppendCallback = nil
}

// ResetCalls forgets recorded calls but keeps stored events
func (m *MockEventStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls = make([]AppendCall, 0)
	m.SnapshotCalls = nil
}

// EventTypes lists the recorded event types in call order
func (m *MockEventStore) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.AppendCalls))
	for _, c := range m.AppendCalls {
		types = append(types, c.EventType)
	}
	return types
}

// SetEvents sets events directly for testing
func (m *MockEventStore) SetEvents(aggregateID string, events []store.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events[aggregateID]) == 0 {
		m.order = append(m.order, aggregateID)
	}
	m.events[aggregateID] = events
}

// AddEvent adds a single event for testing
func (m *MockEventStore) AddEvent(aggregateID, aggregateType, eventType string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if len(m.events[aggregateID]) == 0 {
		m.order = append(m.order, aggregateID)
	}
	m.events[aggregateID] = append(m.events[aggregateID], store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       len(m.events[aggregateID]) + 1,
	})
	return nil
}
