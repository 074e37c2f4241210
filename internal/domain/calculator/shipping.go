package calculator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/stock"
)

// WeightRate prices a package as a base fee plus a rate per unit of weight.
// Backordered contents are priced like on-hand ones.
type WeightRate struct {
	base     decimal.Decimal
	perUnit  decimal.Decimal
	currency money.Currency
}

func NewWeightRate(base, perUnit decimal.Decimal, cur money.Currency) (*WeightRate, error) {
	if base.IsNegative() || perUnit.IsNegative() {
		return nil, fmt.Errorf("%w: shipping base %s per unit %s", ErrInvalidRate, base, perUnit)
	}
	return &WeightRate{base: base, perUnit: perUnit, currency: cur}, nil
}

func (w *WeightRate) Rate(ctx context.Context, o *order.Order, pkg *stock.Package) (decimal.Decimal, error) {
	if pkg.Empty() {
		return decimal.Zero, nil
	}
	return w.currency.Round(w.base.Add(pkg.Weight().Mul(w.perUnit))), nil
}
