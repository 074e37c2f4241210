package inventory

import "time"

const (
	EventStockAdded     = "StockAdded"
	EventStockAllocated = "StockAllocated"
	EventStockRestocked = "StockRestocked"
)

type StockAdded struct {
	StockLocationID string    `json:"stock_location_id"`
	VariantID       string    `json:"variant_id"`
	Quantity        int       `json:"quantity"`
	AddedAt         time.Time `json:"added_at"`
}

// StockAllocated takes units for an order: OnHand from the shelf, the
// rest as backorders.
type StockAllocated struct {
	StockLocationID string    `json:"stock_location_id"`
	VariantID       string    `json:"variant_id"`
	OrderNumber     string    `json:"order_number"`
	OnHand          int       `json:"on_hand"`
	Backordered     int       `json:"backordered"`
	AllocatedAt     time.Time `json:"allocated_at"`
}

// StockRestocked gives units of an order back.
type StockRestocked struct {
	StockLocationID string    `json:"stock_location_id"`
	VariantID       string    `json:"variant_id"`
	OrderNumber     string    `json:"order_number"`
	OnHand          int       `json:"on_hand"`
	Backordered     int       `json:"backordered"`
	RestockedAt     time.Time `json:"restocked_at"`
}
