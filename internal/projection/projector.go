package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/catalog"
	"github.com/badogar/solidus/internal/domain/inventory"
	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/user"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/readmodel"
)

// totalsWriter is implemented by read stores that write the four order
// totals in one statement.
type totalsWriter interface {
	UpdateOrderTotals(id string, itemTotal, adjustmentTotal, paymentTotal, total decimal.Decimal, at time.Time) bool
}

type Projector struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{readStore: readStore, logger: logger.Named("projector")}
}

// HandleEvent decodes a published store.Event and applies it to the read models.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	return p.Apply(ctx, event)
}

// Apply projects one event. Unknown aggregates and event types are ignored.
func (p *Projector) Apply(ctx context.Context, event store.Event) error {
	p.logger.Debug("received event",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType),
		zap.String("aggregate_id", event.AggregateID),
		zap.Int("version", event.Version),
	)

	switch event.AggregateType {
	case order.AggregateType:
		return p.handleOrderEvent(event)
	case catalog.AggregateType:
		return p.handleVariantEvent(event)
	case inventory.AggregateType:
		return p.handleInventoryEvent(event)
	case location.AggregateType:
		return p.handleLocationEvent(event)
	case user.AggregateType:
		return p.handleUserEvent(event)
	}
	return nil
}

// ============================================
// Orders
// ============================================

func (p *Projector) handleOrderEvent(event store.Event) error {
	number := event.AggregateID

	switch event.EventType {
	case order.EventOrderCreated:
		var e order.OrderCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionOrders, e.Number, &readmodel.OrderReadModel{
			ID:              e.Number,
			UserID:          e.UserID,
			State:           string(order.StateCart),
			LineItems:       []readmodel.LineItemReadModel{},
			ItemTotal:       decimal.Zero,
			AdjustmentTotal: decimal.Zero,
			PaymentTotal:    decimal.Zero,
			Total:           decimal.Zero,
			CreatedAt:       e.CreatedAt,
			UpdatedAt:       e.CreatedAt,
		})

	case order.EventLineItemAdded:
		var e order.LineItemAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			o.LineItems = append(o.LineItems, readmodel.LineItemReadModel{
				ID:        e.LineItem.ID,
				VariantID: e.LineItem.VariantID,
				Name:      e.LineItem.Name,
				Quantity:  e.LineItem.Quantity,
				Price:     e.LineItem.Price,
			})
		})

	case order.EventLineItemQuantityChanged:
		var e order.LineItemQuantityChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			for i := range o.LineItems {
				if o.LineItems[i].ID == e.LineItemID {
					o.LineItems[i].Quantity = e.Quantity
				}
			}
		})

	case order.EventLineItemRemoved:
		var e order.LineItemRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			kept := o.LineItems[:0]
			for _, li := range o.LineItems {
				if li.ID != e.LineItemID {
					kept = append(kept, li)
				}
			}
			o.LineItems = kept
		})

	case order.EventOrderStateChanged:
		var e order.OrderStateChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			o.State = string(e.To)
		})

	case order.EventOrderStateRestored:
		var e order.OrderStateRestored
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			o.State = string(e.To)
		})

	case order.EventOrderCompleted:
		var e order.OrderCompleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			completedAt := e.CompletedAt
			o.CompletedAt = &completedAt
		})

	case order.EventTotalsRecomputed:
		var e order.TotalsRecomputed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if tw, ok := p.readStore.(totalsWriter); ok {
			if !tw.UpdateOrderTotals(number, e.ItemTotal, e.AdjustmentTotal, e.PaymentTotal, e.Total, e.RecomputedAt) {
				p.logger.Warn("totals for unknown order", zap.String("order", number))
			}
			return nil
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			o.ItemTotal = e.ItemTotal
			o.AdjustmentTotal = e.AdjustmentTotal
			o.PaymentTotal = e.PaymentTotal
			o.Total = e.Total
		})

	case order.EventUserAssociated:
		var e order.UserAssociated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrder(number, event.Timestamp, func(o *readmodel.OrderReadModel) {
			o.UserID = e.UserID
		})

	case order.EventOrderDeleted:
		p.readStore.Delete(readmodel.CollectionOrders, number)
	}

	return nil
}

func (p *Projector) updateOrder(number string, at time.Time, fn func(o *readmodel.OrderReadModel)) {
	ok := p.readStore.Update(readmodel.CollectionOrders, number, func(current any) any {
		o := current.(*readmodel.OrderReadModel)
		fn(o)
		o.ItemCount = 0
		for _, li := range o.LineItems {
			o.ItemCount += li.Quantity
		}
		if !at.IsZero() {
			o.UpdatedAt = at
		}
		return o
	})
	if !ok {
		p.logger.Warn("event for unknown order", zap.String("order", number))
	}
}

// ============================================
// Catalog
// ============================================

func (p *Projector) handleVariantEvent(event store.Event) error {
	switch event.EventType {
	case catalog.EventVariantCreated:
		var e catalog.VariantCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionVariants, e.VariantID, &readmodel.VariantReadModel{
			ID:        e.VariantID,
			SKU:       e.SKU,
			Name:      e.Name,
			Price:     e.Price,
			Weight:    e.Weight,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		})

	case catalog.EventVariantPriceChanged:
		var e catalog.VariantPriceChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionVariants, e.VariantID, func(current any) any {
			v := current.(*readmodel.VariantReadModel)
			v.Price = e.Price
			v.UpdatedAt = e.ChangedAt
			return v
		})

	case catalog.EventVariantDeleted:
		var e catalog.VariantDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Delete(readmodel.CollectionVariants, e.VariantID)
	}

	return nil
}

// ============================================
// Inventory
// ============================================

func (p *Projector) handleInventoryEvent(event store.Event) error {
	switch event.EventType {
	case inventory.EventStockAdded:
		var e inventory.StockAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustStock(e.StockLocationID, e.VariantID, e.Quantity, 0)

	case inventory.EventStockAllocated:
		var e inventory.StockAllocated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustStock(e.StockLocationID, e.VariantID, -e.OnHand, e.Backordered)

	case inventory.EventStockRestocked:
		var e inventory.StockRestocked
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustStock(e.StockLocationID, e.VariantID, e.OnHand, -e.Backordered)
	}

	return nil
}

func (p *Projector) adjustStock(stockLocationID, variantID string, onHand, backordered int) {
	id := inventory.ItemID(stockLocationID, variantID)
	ok := p.readStore.Update(readmodel.CollectionInventory, id, func(current any) any {
		inv := current.(*readmodel.InventoryReadModel)
		inv.CountOnHand += onHand
		inv.Backordered += backordered
		return inv
	})
	if ok {
		return
	}
	p.readStore.Set(readmodel.CollectionInventory, id, &readmodel.InventoryReadModel{
		ID:              id,
		StockLocationID: stockLocationID,
		VariantID:       variantID,
		CountOnHand:     onHand,
		Backordered:     backordered,
	})
}

// ============================================
// Stock locations
// ============================================

func (p *Projector) handleLocationEvent(event store.Event) error {
	switch event.EventType {
	case location.EventStockLocationCreated:
		var e location.StockLocationCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionLocations, e.LocationID, &readmodel.StockLocationReadModel{
			ID:        e.LocationID,
			Name:      e.Name,
			Code:      e.Code,
			Priority:  e.Priority,
			Active:    true,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		})

	case location.EventStockLocationUpdated:
		var e location.StockLocationUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionLocations, e.LocationID, func(current any) any {
			l := current.(*readmodel.StockLocationReadModel)
			l.Name = e.Name
			l.Priority = e.Priority
			l.UpdatedAt = e.UpdatedAt
			return l
		})

	case location.EventStockLocationDeactivated:
		var e location.StockLocationDeactivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionLocations, e.LocationID, func(current any) any {
			l := current.(*readmodel.StockLocationReadModel)
			l.Active = false
			l.UpdatedAt = e.DeactivatedAt
			return l
		})
	}

	return nil
}

// ============================================
// Users
// ============================================

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionUsers, e.UserID, &readmodel.UserReadModel{
			ID:        e.UserID,
			Email:     e.Email,
			Guest:     e.Guest,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		})

	case user.EventUserRegistered:
		var e user.UserRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.Email = e.Email
			u.Guest = false
			u.UpdatedAt = e.RegisteredAt
			return u
		})
	}

	return nil
}
