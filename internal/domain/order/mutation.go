package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/badogar/solidus/internal/infrastructure/store"
)

// Mutation is one unit of work on an order. Recorded changes are applied to
// the working copy immediately and appended together when the work commits.
type Mutation struct {
	Order *Order
	At    time.Time

	changes   []store.Change
	rollbacks []func(context.Context) error
}

// NewMutation starts a unit of work on o.
func NewMutation(o *Order, at time.Time) *Mutation {
	return &Mutation{Order: o, At: at}
}

// Record applies a change to the working copy and queues it for append.
// The data goes through JSON so the working copy matches a replay.
func (m *Mutation) Record(eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	if err := m.Order.apply(eventType, raw, m.At); err != nil {
		return fmt.Errorf("apply %s: %w", eventType, err)
	}
	m.changes = append(m.changes, store.Change{EventType: eventType, Data: data})
	return nil
}

// OnRollback registers a compensation for work done outside the order stream.
func (m *Mutation) OnRollback(fn func(context.Context) error) {
	m.rollbacks = append(m.rollbacks, fn)
}

// Changes returns the queued changes.
func (m *Mutation) Changes() []store.Change { return m.changes }

// Recorded reports whether an event of eventType is queued.
func (m *Mutation) Recorded(eventType string) bool {
	for _, c := range m.changes {
		if c.EventType == eventType {
			return true
		}
	}
	return false
}

// Rollback runs compensations newest first and joins their errors.
func (m *Mutation) Rollback(ctx context.Context) error {
	var errs []error
	for i := len(m.rollbacks) - 1; i >= 0; i-- {
		if err := m.rollbacks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.rollbacks = nil
	return errors.Join(errs...)
}
