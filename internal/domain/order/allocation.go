package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/stock"
)

// Reservation is stock taken (or owed) at one location for one variant.
type Reservation struct {
	StockLocationID string `json:"stock_location_id"`
	VariantID       string `json:"variant_id"`
	OnHand          int    `json:"on_hand"`
	Backordered     int    `json:"backordered"`
}

// StockLedger is the inventory collaborator.
type StockLedger interface {
	// Reserve takes quantity units, backordering what is not on hand.
	Reserve(ctx context.Context, orderNumber, variantID string, quantity int) ([]Reservation, error)
	// Release gives a reservation back.
	Release(ctx context.Context, orderNumber string, r Reservation) error
	// Claim re-applies a released reservation exactly.
	Claim(ctx context.Context, orderNumber string, r Reservation) error
	// Levels returns on-hand counts for the variants at active locations in priority order.
	Levels(ctx context.Context, variantIDs []string) ([]stock.Location, error)
}

// ShippingRater prices a package.
type ShippingRater interface {
	Rate(ctx context.Context, o *Order, pkg *stock.Package) (decimal.Decimal, error)
}

// Allocator turns line items into shipments and inventory units.
type Allocator struct {
	ledger StockLedger
	rater  ShippingRater
	ids    IDGenerator
	logger *zap.Logger
}

func NewAllocator(ledger StockLedger, rater ShippingRater, ids IDGenerator, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{ledger: ledger, rater: rater, ids: ids, logger: logger}
}

// ProposeShipments packs the line items and replaces the order's shipments.
func (a *Allocator) ProposeShipments(ctx context.Context, m *Mutation) error {
	packages, err := a.pack(ctx, m.Order)
	if err != nil {
		return err
	}
	shipments := make([]Shipment, 0, len(packages))
	for _, pkg := range packages {
		cost, err := a.rate(ctx, m.Order, pkg)
		if err != nil {
			return err
		}
		shipments = append(shipments, Shipment{
			ID:              a.ids("shp"),
			StockLocationID: pkg.StockLocationID,
			State:           ShipmentPending,
			Cost:            cost,
		})
	}
	return m.Record(EventShipmentsProposed, ShipmentsProposed{Shipments: shipments, ProposedAt: m.At})
}

// RepriceShipments rates the shipments again after the line items changed.
// When the packages no longer line up with the shipments by stock location,
// the shipments are proposed again instead.
func (a *Allocator) RepriceShipments(ctx context.Context, m *Mutation) error {
	o := m.Order
	if len(o.Shipments) == 0 || o.Complete() {
		return nil
	}
	packages, err := a.pack(ctx, o)
	if err != nil {
		return err
	}

	byLocation := make(map[string]*stock.Package, len(packages))
	for _, pkg := range packages {
		byLocation[pkg.StockLocationID] = pkg
	}
	if len(byLocation) != len(o.Shipments) {
		return a.ProposeShipments(ctx, m)
	}
	for _, s := range o.Shipments {
		if _, ok := byLocation[s.StockLocationID]; !ok {
			return a.ProposeShipments(ctx, m)
		}
	}

	current := append([]Shipment(nil), o.Shipments...)
	for _, s := range current {
		cost, err := a.rate(ctx, o, byLocation[s.StockLocationID])
		if err != nil {
			return err
		}
		if cost.Equal(s.Cost) {
			continue
		}
		if err := m.Record(EventShipmentCostChanged, ShipmentCostChanged{ShipmentID: s.ID, Cost: cost, ChangedAt: m.At}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Allocator) pack(ctx context.Context, o *Order) ([]*stock.Package, error) {
	variantIDs := make([]string, 0, len(o.LineItems))
	lines := make([]stock.Line, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		variantIDs = append(variantIDs, li.VariantID)
		lines = append(lines, stock.Line{VariantID: li.VariantID, Quantity: li.Quantity, Weight: li.Weight})
	}

	var levels []stock.Location
	if a.ledger != nil && len(variantIDs) > 0 {
		var err error
		if levels, err = a.ledger.Levels(ctx, variantIDs); err != nil {
			return nil, fmt.Errorf("stock levels: %w", err)
		}
	}
	return stock.Pack(levels, lines), nil
}

func (a *Allocator) rate(ctx context.Context, o *Order, pkg *stock.Package) (decimal.Decimal, error) {
	if a.rater == nil {
		return decimal.Zero, nil
	}
	cost, err := a.rater.Rate(ctx, o, pkg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate package from %q: %w", pkg.StockLocationID, err)
	}
	return cost, nil
}

// Allocate reserves stock for every line item. Shortfalls become backordered
// units; they are not an error. Reservations are given back if the mutation
// is rolled back.
func (a *Allocator) Allocate(ctx context.Context, m *Mutation) error {
	if a.ledger == nil {
		return nil
	}
	o := m.Order
	var units []InventoryUnit
	for _, li := range o.LineItems {
		reservations, err := a.ledger.Reserve(ctx, o.Number, li.VariantID, li.Quantity)
		if err != nil {
			return fmt.Errorf("reserve %s: %w", li.VariantID, err)
		}
		for _, r := range reservations {
			m.OnRollback(func(ctx context.Context) error {
				return a.ledger.Release(ctx, o.Number, r)
			})
			shipmentID := o.shipmentFor(r.StockLocationID)
			units = append(units, a.units(r, UnitOnHand, r.OnHand, shipmentID)...)
			units = append(units, a.units(r, UnitBackordered, r.Backordered, shipmentID)...)
			if r.Backordered > 0 {
				a.logger.Info("backordered",
					zap.String("order", o.Number),
					zap.String("variant_id", r.VariantID),
					zap.String("stock_location_id", r.StockLocationID),
					zap.Int("quantity", r.Backordered),
				)
			}
		}
	}
	if len(units) == 0 {
		return nil
	}
	return m.Record(EventInventoryUnitsAllocated, InventoryUnitsAllocated{Units: units, AllocatedAt: m.At})
}

func (a *Allocator) units(r Reservation, state UnitState, n int, shipmentID string) []InventoryUnit {
	out := make([]InventoryUnit, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, InventoryUnit{
			ID:              a.ids("iu"),
			VariantID:       r.VariantID,
			ShipmentID:      shipmentID,
			StockLocationID: r.StockLocationID,
			State:           state,
			Restockable:     true,
		})
	}
	return out
}

// Restock returns the restockable units among units to their locations and
// removes them from the order. Units flagged non-restockable are kept.
func (a *Allocator) Restock(ctx context.Context, m *Mutation, units []InventoryUnit) error {
	type key struct{ location, variant string }
	grouped := map[key]*Reservation{}
	var keys []key
	var ids []string
	for _, u := range units {
		if !u.Restockable {
			continue
		}
		k := key{u.StockLocationID, u.VariantID}
		r, ok := grouped[k]
		if !ok {
			r = &Reservation{StockLocationID: u.StockLocationID, VariantID: u.VariantID}
			grouped[k] = r
			keys = append(keys, k)
		}
		if u.State == UnitBackordered {
			r.Backordered++
		} else {
			r.OnHand++
		}
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	if a.ledger != nil {
		for _, k := range keys {
			r := *grouped[k]
			if err := a.ledger.Release(ctx, m.Order.Number, r); err != nil {
				return fmt.Errorf("release %s at %s: %w", r.VariantID, r.StockLocationID, err)
			}
			m.OnRollback(func(ctx context.Context) error {
				return a.ledger.Claim(ctx, m.Order.Number, r)
			})
		}
	}
	return m.Record(EventInventoryUnitsRestocked, InventoryUnitsRestocked{UnitIDs: ids, RestockedAt: m.At})
}

// RestockAll restocks every restockable unit of the order.
func (a *Allocator) RestockAll(ctx context.Context, m *Mutation) error {
	return a.Restock(ctx, m, append([]InventoryUnit(nil), m.Order.InventoryUnits...))
}
