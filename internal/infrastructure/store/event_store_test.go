package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

type placed struct {
	Number string `json:"number"`
}

// ============================================
// Append Tests
// ============================================

func TestEventStore_Append_NumbersBatchSequentially(t *testing.T) {
	pub := &recordingPublisher{}
	es := NewEventStore(pub, nil)
	ctx := context.Background()

	events, err := es.Append(ctx, "R1", "Order", 0,
		Change{EventType: "OrderCreated", Data: placed{Number: "R1"}},
		Change{EventType: "LineItemAdded", Data: map[string]int{"quantity": 2}},
	)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	var data placed
	require.NoError(t, json.Unmarshal(events[0].Data, &data))
	assert.Equal(t, "R1", data.Number)

	assert.Equal(t, []string{"R1", "R1"}, pub.keys)
}

func TestEventStore_Append_VersionConflict(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()

	_, err := es.Append(ctx, "R1", "Order", 0, Change{EventType: "OrderCreated", Data: placed{}})
	require.NoError(t, err)

	_, err = es.Append(ctx, "R1", "Order", 0, Change{EventType: "OrderCreated", Data: placed{}})
	assert.ErrorIs(t, err, ErrVersionConflict)

	events, err := es.GetEvents(ctx, "R1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventStore_Append_PublishFailureIsNotAnError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	es := NewEventStore(pub, nil)

	events, err := es.Append(context.Background(), "R1", "Order", 0, Change{EventType: "OrderCreated", Data: placed{}})

	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventStore_Append_NoChanges(t *testing.T) {
	es := NewEventStore(nil, nil)

	events, err := es.Append(context.Background(), "R1", "Order", 0)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventStore_Append_ConcurrentWritersOneWins(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()
	_, err := es.Append(ctx, "R1", "Order", 0, Change{EventType: "OrderCreated", Data: placed{}})
	require.NoError(t, err)

	var mu sync.Mutex
	conflicts := 0
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := es.Append(gctx, "R1", "Order", 1, Change{EventType: "OrderStateChanged", Data: placed{}})
			if errors.Is(err, ErrVersionConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 7, conflicts)
	events, _ := es.GetEvents(ctx, "R1")
	assert.Len(t, events, 2)
}

// ============================================
// Read Tests
// ============================================

func TestEventStore_Reads(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()

	_, err := es.Append(ctx, "R1", "Order", 0,
		Change{EventType: "a", Data: placed{}},
		Change{EventType: "b", Data: placed{}},
		Change{EventType: "c", Data: placed{}},
	)
	require.NoError(t, err)
	_, err = es.Append(ctx, "var_1", "Variant", 0, Change{EventType: "VariantCreated", Data: placed{}})
	require.NoError(t, err)

	from, err := es.GetEventsFromVersion(ctx, "R1", 1)
	require.NoError(t, err)
	require.Len(t, from, 2)
	assert.Equal(t, "b", from[0].EventType)

	byType, err := es.GetEventsByType(ctx, "Variant")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "var_1", byType[0].AggregateID)

	all, err := es.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
