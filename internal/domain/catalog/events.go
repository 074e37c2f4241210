package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventVariantCreated      = "VariantCreated"
	EventVariantPriceChanged = "VariantPriceChanged"
	EventVariantDeleted      = "VariantDeleted"
)

type VariantCreated struct {
	VariantID string          `json:"variant_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Weight    decimal.Decimal `json:"weight"`
	CreatedAt time.Time       `json:"created_at"`
}

// VariantPriceChanged affects line items added afterwards only.
type VariantPriceChanged struct {
	VariantID string          `json:"variant_id"`
	Price     decimal.Decimal `json:"price"`
	ChangedAt time.Time       `json:"changed_at"`
}

type VariantDeleted struct {
	VariantID string    `json:"variant_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
