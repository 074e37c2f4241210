package order

import (
	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/money"
)

// Totals are the four money fields of an order.
type Totals struct {
	ItemTotal       decimal.Decimal `json:"item_total"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	PaymentTotal    decimal.Decimal `json:"payment_total"`
	Total           decimal.Decimal `json:"total"`
}

// Equal compares by value, ignoring decimal representation.
func (t Totals) Equal(other Totals) bool {
	return t.ItemTotal.Equal(other.ItemTotal) &&
		t.AdjustmentTotal.Equal(other.AdjustmentTotal) &&
		t.PaymentTotal.Equal(other.PaymentTotal) &&
		t.Total.Equal(other.Total)
}

// Recompute derives totals from the order's current children. Adjustments
// must already be reconciled.
func Recompute(o *Order) Totals {
	item := money.Sum(o.LineItems, LineItem.Amount)
	adjustments := money.Sum(o.Adjustments, func(a Adjustment) decimal.Decimal { return a.Amount })
	payments := money.Sum(o.Payments, func(p Payment) decimal.Decimal {
		if !p.Finalized() {
			return decimal.Zero
		}
		return p.Amount
	})
	return Totals{
		ItemTotal:       item,
		AdjustmentTotal: adjustments,
		PaymentTotal:    payments,
		Total:           item.Add(adjustments),
	}
}

// recordTotals queues a TotalsRecomputed event when the totals moved.
func recordTotals(m *Mutation) error {
	next := Recompute(m.Order)
	if next.Equal(m.Order.Totals()) {
		return nil
	}
	return m.Record(EventTotalsRecomputed, TotalsRecomputed{
		ItemTotal:       next.ItemTotal,
		AdjustmentTotal: next.AdjustmentTotal,
		PaymentTotal:    next.PaymentTotal,
		Total:           next.Total,
		RecomputedAt:    m.At,
	})
}
