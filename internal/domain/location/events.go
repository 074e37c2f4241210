package location

import "time"

const (
	EventStockLocationCreated     = "StockLocationCreated"
	EventStockLocationUpdated     = "StockLocationUpdated"
	EventStockLocationDeactivated = "StockLocationDeactivated"
)

// StockLocationCreated is emitted when a new stock location is created
type StockLocationCreated struct {
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// StockLocationUpdated is emitted when a stock location is renamed or reprioritised
type StockLocationUpdated struct {
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	Priority   int       `json:"priority"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockLocationDeactivated is emitted when a location stops fulfilling orders
type StockLocationDeactivated struct {
	LocationID    string    `json:"location_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}
