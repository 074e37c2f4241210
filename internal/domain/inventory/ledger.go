package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/stock"
)

// Locations lists the stock locations that fulfil orders, highest priority first.
type Locations interface {
	Active(ctx context.Context) ([]*location.StockLocation, error)
}

// Ledger spreads an order's stock across locations in priority order.
type Ledger struct {
	items     *Service
	locations Locations
	logger    *zap.Logger
}

func NewLedger(items *Service, locations Locations, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{items: items, locations: locations, logger: logger.Named("ledger")}
}

// Reserve takes on-hand stock from each active location in turn and
// backorders the remainder at the first one. Without any active location
// the whole quantity comes back backordered and nothing is recorded.
func (l *Ledger) Reserve(ctx context.Context, orderNumber, variantID string, quantity int) ([]order.Reservation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	locs, err := l.locations.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("active stock locations: %w", err)
	}
	if len(locs) == 0 {
		return []order.Reservation{{VariantID: variantID, Backordered: quantity}}, nil
	}

	var reservations []order.Reservation
	remaining := quantity
	for _, loc := range locs {
		if remaining == 0 {
			break
		}
		onHand, _, err := l.items.Allocate(ctx, loc.ID, variantID, orderNumber, remaining, false)
		if err != nil {
			return nil, l.undo(ctx, orderNumber, reservations, err)
		}
		if onHand > 0 {
			reservations = append(reservations, order.Reservation{StockLocationID: loc.ID, VariantID: variantID, OnHand: onHand})
			remaining -= onHand
		}
	}

	if remaining > 0 {
		first := locs[0].ID
		if err := l.items.Claim(ctx, first, variantID, orderNumber, 0, remaining); err != nil {
			return nil, l.undo(ctx, orderNumber, reservations, err)
		}
		if len(reservations) > 0 && reservations[0].StockLocationID == first {
			reservations[0].Backordered = remaining
		} else {
			reservations = append([]order.Reservation{{StockLocationID: first, VariantID: variantID, Backordered: remaining}}, reservations...)
		}
	}
	return reservations, nil
}

// undo gives back what a failed Reserve already took.
func (l *Ledger) undo(ctx context.Context, orderNumber string, taken []order.Reservation, cause error) error {
	errs := []error{cause}
	for i := len(taken) - 1; i >= 0; i-- {
		if err := l.Release(context.WithoutCancel(ctx), orderNumber, taken[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release returns a reservation to its location.
func (l *Ledger) Release(ctx context.Context, orderNumber string, r order.Reservation) error {
	if r.StockLocationID == "" || r.OnHand+r.Backordered == 0 {
		return nil
	}
	return l.items.Restock(ctx, r.StockLocationID, r.VariantID, orderNumber, r.OnHand, r.Backordered)
}

// Claim takes a released reservation again.
func (l *Ledger) Claim(ctx context.Context, orderNumber string, r order.Reservation) error {
	if r.StockLocationID == "" || r.OnHand+r.Backordered == 0 {
		return nil
	}
	return l.items.Claim(ctx, r.StockLocationID, r.VariantID, orderNumber, r.OnHand, r.Backordered)
}

// Levels reports on-hand counts per active location for packing.
func (l *Ledger) Levels(ctx context.Context, variantIDs []string) ([]stock.Location, error) {
	locs, err := l.locations.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("active stock locations: %w", err)
	}
	levels := make([]stock.Location, 0, len(locs))
	for _, loc := range locs {
		level := stock.Location{ID: loc.ID, OnHand: make(map[string]int, len(variantIDs))}
		for _, variantID := range variantIDs {
			n, err := l.items.CountOnHand(ctx, loc.ID, variantID)
			if err != nil {
				return nil, err
			}
			level.OnHand[variantID] = n
		}
		levels = append(levels, level)
	}
	return levels, nil
}

var _ order.StockLedger = (*Ledger)(nil)
