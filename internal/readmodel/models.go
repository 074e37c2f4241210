package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Read store collections
const (
	CollectionOrders    = "orders"
	CollectionInventory = "inventory"
	CollectionVariants  = "variants"
	CollectionLocations = "locations"
	CollectionUsers     = "users"
)

// VariantReadModel is the read model for purchasable variants
type VariantReadModel struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Weight    decimal.Decimal `json:"weight"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LineItemReadModel represents a line item in an order
type LineItemReadModel struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderReadModel is the read model for orders
type OrderReadModel struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	State           string              `json:"state"`
	LineItems       []LineItemReadModel `json:"line_items"`
	ItemCount       int                 `json:"item_count"`
	ItemTotal       decimal.Decimal     `json:"item_total"`
	AdjustmentTotal decimal.Decimal     `json:"adjustment_total"`
	PaymentTotal    decimal.Decimal     `json:"payment_total"`
	Total           decimal.Decimal     `json:"total"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OutstandingBalance is what the customer still owes
func (o *OrderReadModel) OutstandingBalance() decimal.Decimal {
	return o.Total.Sub(o.PaymentTotal)
}

// InventoryReadModel is the read model for one stock item
type InventoryReadModel struct {
	ID              string `json:"id"`
	StockLocationID string `json:"stock_location_id"`
	VariantID       string `json:"variant_id"`
	CountOnHand     int    `json:"count_on_hand"`
	Backordered     int    `json:"backordered"`
}

// StockLocationReadModel is the read model for stock locations
type StockLocationReadModel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
