// Package calculator holds the tax and promotion rules that produce order
// adjustments, and the shipping rater used when shipments are proposed.
package calculator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/zone"
)

var (
	ErrInvalidRate = errors.New("calculator: invalid rate")
	ErrMissingID   = errors.New("calculator: id is required")
	ErrMissingZone = errors.New("calculator: zone is required")
)

var hundred = decimal.NewFromInt(100)

// TaxRate charges rate times the item total as one order-level adjustment.
// A zoned rate only applies while the ship address lies inside its zone.
type TaxRate struct {
	id    string
	label string
	rate  decimal.Decimal
	zone  *zone.Zone
}

// NewTaxRate builds a tax originator; rate is a fraction, 0.08 for 8%.
func NewTaxRate(id, label string, rate decimal.Decimal) (*TaxRate, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: tax rate %s", ErrInvalidRate, rate)
	}
	if label == "" {
		label = "Tax (" + rate.Mul(hundred).String() + "%)"
	}
	return &TaxRate{id: id, label: label, rate: rate}, nil
}

// NewZonedTaxRate is NewTaxRate restricted to addresses inside z.
func NewZonedTaxRate(id, label string, rate decimal.Decimal, z *zone.Zone) (*TaxRate, error) {
	if z == nil {
		return nil, fmt.Errorf("%w: tax zone", ErrMissingZone)
	}
	t, err := NewTaxRate(id, label, rate)
	if err != nil {
		return nil, err
	}
	t.zone = z
	return t, nil
}

func (t *TaxRate) ID() string    { return t.id }
func (t *TaxRate) Label() string { return t.label }

// Zone is nil for a rate that applies everywhere.
func (t *TaxRate) Zone() *zone.Zone { return t.zone }

func (t *TaxRate) Eligible(o *order.Order, adj order.Adjustment) bool {
	if t.zone == nil {
		return true
	}
	return o.ShipAddress != nil && t.zone.Includes(o.ShipAddress.Country, o.ShipAddress.State)
}

func (t *TaxRate) Compute(ctx context.Context, o *order.Order, c order.Calculable) (decimal.Decimal, error) {
	return c.Amount.Mul(t.rate), nil
}

// PercentOff takes a percentage off the item total while the item total
// reaches a threshold.
type PercentOff struct {
	id        string
	label     string
	percent   decimal.Decimal
	threshold decimal.Decimal
}

func NewPercentOff(id, label string, percent, threshold decimal.Decimal) (*PercentOff, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percent %s", ErrInvalidRate, percent)
	}
	if label == "" {
		label = "Promotion (" + percent.String() + "% off)"
	}
	return &PercentOff{id: id, label: label, percent: percent, threshold: threshold}, nil
}

func (p *PercentOff) ID() string    { return p.id }
func (p *PercentOff) Label() string { return p.label }

func (p *PercentOff) Eligible(o *order.Order, adj order.Adjustment) bool {
	itemTotal := order.Recompute(o).ItemTotal
	return !o.Empty() && itemTotal.GreaterThanOrEqual(p.threshold)
}

func (p *PercentOff) Compute(ctx context.Context, o *order.Order, c order.Calculable) (decimal.Decimal, error) {
	return c.Amount.Mul(p.percent).Div(hundred).Neg(), nil
}

// FlatRate is a fixed signed amount, kept while the order has line items.
type FlatRate struct {
	id     string
	label  string
	amount decimal.Decimal
}

func NewFlatRate(id, label string, amount decimal.Decimal) (*FlatRate, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if label == "" {
		label = id
	}
	return &FlatRate{id: id, label: label, amount: amount}, nil
}

func (f *FlatRate) ID() string    { return f.id }
func (f *FlatRate) Label() string { return f.label }

func (f *FlatRate) Eligible(o *order.Order, adj order.Adjustment) bool { return len(o.LineItems) > 0 }

func (f *FlatRate) Compute(ctx context.Context, o *order.Order, c order.Calculable) (decimal.Decimal, error) {
	return f.amount, nil
}
