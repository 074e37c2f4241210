package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Append when the aggregate has moved past
// the version the caller loaded.
var ErrVersionConflict = errors.New("store: version conflict")

// Change is an event that has not been persisted yet.
type Change struct {
	EventType string
	Data      any
}

// EventStoreInterface defines the interface for event stores.
//
// Append writes all changes or none of them. The first change gets version
// expectedVersion+1.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, changes ...Change) ([]Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error)
	GetEventsByType(ctx context.Context, aggregateType string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Publisher forwards persisted events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
