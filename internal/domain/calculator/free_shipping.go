package calculator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/order"
)

// FreeShipping credits the cost of every shipment that does not already
// carry a credit from it.
type FreeShipping struct {
	id    string
	label string
}

func NewFreeShipping(id, label string) (*FreeShipping, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if label == "" {
		label = "Promotion (free shipping)"
	}
	return &FreeShipping{id: id, label: label}, nil
}

func (f *FreeShipping) ID() string    { return f.id }
func (f *FreeShipping) Label() string { return f.label }

func (f *FreeShipping) Eligible(o *order.Order, adj order.Adjustment) bool { return true }

func (f *FreeShipping) Compute(ctx context.Context, o *order.Order, c order.Calculable) (decimal.Decimal, error) {
	return c.Amount.Neg(), nil
}

// Perform reports whether at least one shipment received a credit.
func (f *FreeShipping) Perform(ctx context.Context, m *order.Mutation, engine *order.AdjustmentEngine) (bool, error) {
	applied := false
	for _, sh := range append([]order.Shipment(nil), m.Order.Shipments...) {
		ref := order.ShipmentRef(sh.ID)
		if len(m.Order.AdjustmentsFrom(f.id, ref)) > 0 {
			continue
		}
		if _, err := engine.Create(ctx, m, f, ref, ref); err != nil {
			return applied, err
		}
		applied = true
	}
	return applied, nil
}
