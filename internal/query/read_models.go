package query

import "github.com/badogar/solidus/internal/readmodel"

// OrderSummary is an order read model with its money fields rendered for display.
type OrderSummary struct {
	Order              *readmodel.OrderReadModel `json:"order"`
	ItemTotal          string                    `json:"item_total"`
	AdjustmentTotal    string                    `json:"adjustment_total"`
	PaymentTotal       string                    `json:"payment_total"`
	Total              string                    `json:"total"`
	OutstandingBalance string                    `json:"outstanding_balance"`
}

// VariantStock is the stock of one variant summed over all locations.
type VariantStock struct {
	VariantID   string                          `json:"variant_id"`
	CountOnHand int                             `json:"count_on_hand"`
	Backordered int                             `json:"backordered"`
	Locations   []*readmodel.InventoryReadModel `json:"locations"`
}
