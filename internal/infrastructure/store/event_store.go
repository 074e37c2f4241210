package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// NewEvents builds the persisted form of changes, numbering them after expectedVersion.
func NewEvents(aggregateID, aggregateType string, expectedVersion int, at time.Time, changes []Change) ([]Event, error) {
	events := make([]Event, 0, len(changes))
	for i, c := range changes {
		data, err := json.Marshal(c.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c.EventType, err)
		}
		events = append(events, Event{
			ID:            uuid.New().String(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     c.EventType,
			Data:          data,
			Timestamp:     at,
			Version:       expectedVersion + i + 1,
		})
	}
	return events, nil
}

// publishAll forwards events to the publisher. The events are already durable,
// so failures are logged and not returned.
func publishAll(ctx context.Context, publisher Publisher, logger *zap.Logger, events []Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(ctx, event.AggregateID, event); err != nil {
			logger.Warn("publish event failed",
				zap.String("aggregate_id", event.AggregateID),
				zap.String("event_type", event.EventType),
				zap.Int("version", event.Version),
				zap.Error(err),
			)
		}
	}
}

// EventStore keeps events in memory and publishes them after each append
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	snapshots map[string]Snapshot
	publisher Publisher
	logger    *zap.Logger
}

func NewEventStore(publisher Publisher, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{
		events:    make(map[string][]Event),
		snapshots: make(map[string]Snapshot),
		publisher: publisher,
		logger:    logger,
	}
}

// Append stores the changes if the aggregate is still at expectedVersion
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, changes ...Change) ([]Event, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	events, err := NewEvents(aggregateID, aggregateType, expectedVersion, time.Now(), changes)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	if current := len(es.events[aggregateID]); current != expectedVersion {
		es.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is at version %d, expected %d", ErrVersionConflict, aggregateID, current, expectedVersion)
	}
	es.events[aggregateID] = append(es.events[aggregateID], events...)
	es.mu.Unlock()

	publishAll(ctx, es.publisher, es.logger, events)
	return events, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]Event(nil), es.events[aggregateID]...), nil
}

// GetEventsFromVersion returns the events after fromVersion
func (es *EventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var events []Event
	for _, e := range es.events[aggregateID] {
		if e.Version > fromVersion {
			events = append(events, e)
		}
	}
	return events, nil
}

// GetEventsByType returns every event of one aggregate type in append order
func (es *EventStore) GetEventsByType(ctx context.Context, aggregateType string) ([]Event, error) {
	all, _ := es.GetAllEvents(ctx)
	var events []Event
	for _, e := range all {
		if e.AggregateType == aggregateType {
			events = append(events, e)
		}
	}
	return events, nil
}

// GetAllEvents returns all events ordered by timestamp
func (es *EventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	es.mu.RLock()
	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	es.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Version < all[j].Version
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

// GetSnapshot returns the latest snapshot, or nil when none was taken
func (es *EventStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	s, ok := es.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// SaveSnapshot replaces the snapshot of an aggregate
func (es *EventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.snapshots[snapshot.AggregateID] = *snapshot
	return nil
}
