package store

import (
	"encoding/json"
	"time"
)

// DefaultSnapshotThreshold is the number of events between two snapshots of an aggregate
const DefaultSnapshotThreshold = 10

// Snapshot represents a point-in-time state of an aggregate
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"` // Event version at snapshot time
	State         json.RawMessage `json:"state"`   // Serialized aggregate state
	CreatedAt     time.Time       `json:"created_at"`
}

// SnapshotDue reports whether an append that moved an aggregate from
// previous to current crossed a snapshot boundary. Batched appends can skip
// over an exact multiple of the threshold.
func SnapshotDue(previous, current, threshold int) bool {
	if threshold <= 0 || current <= previous {
		return false
	}
	return current/threshold > previous/threshold
}
