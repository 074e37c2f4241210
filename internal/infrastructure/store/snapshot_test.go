package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_JSONMarshalUnmarshal(t *testing.T) {
	state, err := json.Marshal(map[string]any{"number": "R123456789", "state": "complete"})
	require.NoError(t, err)

	original := Snapshot{
		AggregateID:   "R123456789",
		AggregateType: "Order",
		Version:       10,
		State:         state,
		CreatedAt:     time.Now().Truncate(time.Second),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Snapshot
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.AggregateType, restored.AggregateType)
	assert.Equal(t, original.Version, restored.Version)
	assert.JSONEq(t, string(original.State), string(restored.State))
}

func TestSnapshotDue(t *testing.T) {
	tests := []struct {
		name      string
		previous  int
		current   int
		threshold int
		want      bool
	}{
		{"below threshold", 3, 9, 10, false},
		{"lands on threshold", 9, 10, 10, true},
		{"batch skips over threshold", 8, 12, 10, true},
		{"same bucket after threshold", 10, 15, 10, false},
		{"second boundary", 19, 21, 10, true},
		{"disabled", 0, 50, 0, false},
		{"no new events", 10, 10, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotDue(tt.previous, tt.current, tt.threshold))
		})
	}
}

func TestEventStore_SnapshotRoundTrip(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()

	snap, err := es.GetSnapshot(ctx, "R1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, es.SaveSnapshot(ctx, &Snapshot{AggregateID: "R1", Version: 10, State: json.RawMessage(`{}`)}))

	snap, err = es.GetSnapshot(ctx, "R1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 10, snap.Version)
}
