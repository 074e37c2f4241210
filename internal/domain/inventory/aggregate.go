package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/aggregate"
	"github.com/badogar/solidus/internal/infrastructure/lock"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

const AggregateType = "StockItem"

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidLocation  = errors.New("stock location is required")
	ErrInvalidVariant   = errors.New("variant is required")
	ErrStockItemMissing = errors.New("stock item not found")
)

// ItemID is the aggregate ID of the stock item for a variant at a location.
func ItemID(stockLocationID, variantID string) string {
	return stockLocationID + "/" + variantID
}

// StockItem counts one variant at one stock location. CountOnHand drops
// below zero only when a restock is taken back after the shelf was emptied.
type StockItem struct {
	StockLocationID string    `json:"stock_location_id"`
	VariantID       string    `json:"variant_id"`
	CountOnHand     int       `json:"count_on_hand"`
	Backordered     int       `json:"backordered"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int       `json:"version"`
}

func (i *StockItem) GetID() string    { return ItemID(i.StockLocationID, i.VariantID) }
func (i *StockItem) GetVersion() int  { return i.Version }
func (i *StockItem) SetVersion(v int) { i.Version = v }

// Available is what can still be allocated from the shelf.
func (i *StockItem) Available() int {
	return max(i.CountOnHand, 0)
}

func (i *StockItem) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventStockAdded:
		var data StockAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.StockLocationID = data.StockLocationID
		i.VariantID = data.VariantID
		i.CountOnHand += data.Quantity
		i.UpdatedAt = data.AddedAt
	case EventStockAllocated:
		var data StockAllocated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.StockLocationID = data.StockLocationID
		i.VariantID = data.VariantID
		i.CountOnHand -= data.OnHand
		i.Backordered += data.Backordered
		i.UpdatedAt = data.AllocatedAt
	case EventStockRestocked:
		var data StockRestocked
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.CountOnHand += data.OnHand
		i.Backordered -= data.Backordered
		if i.Backordered < 0 {
			i.Backordered = 0
		}
		i.UpdatedAt = data.RestockedAt
	default:
		return fmt.Errorf("unknown stock item event %q", event.EventType)
	}
	i.Version = event.Version
	return nil
}

type Service struct {
	eventStore        store.EventStoreInterface
	locker            lock.Locker
	snapshotThreshold int
	now               func() time.Time
	logger            *zap.Logger
}

// NewService builds the stock item service. A nil locker serialises per
// stock item inside this process only.
func NewService(es store.EventStoreInterface, locker lock.Locker, snapshotThreshold int, logger *zap.Logger) *Service {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		eventStore:        es,
		locker:            locker,
		snapshotThreshold: snapshotThreshold,
		now:               time.Now,
		logger:            logger.Named("inventory"),
	}
}

// Get returns the stock item; a variant never stocked at the location is
// reported as ErrStockItemMissing.
func (s *Service) Get(ctx context.Context, stockLocationID, variantID string) (*StockItem, error) {
	item, found, err := s.load(ctx, stockLocationID, variantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrStockItemMissing, ItemID(stockLocationID, variantID))
	}
	return item, nil
}

// CountOnHand returns zero for items never stocked.
func (s *Service) CountOnHand(ctx context.Context, stockLocationID, variantID string) (int, error) {
	item, _, err := s.load(ctx, stockLocationID, variantID)
	if err != nil {
		return 0, err
	}
	return item.Available(), nil
}

func (s *Service) AddStock(ctx context.Context, stockLocationID, variantID string, quantity int) (*StockItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, stockLocationID, variantID, func(item *StockItem) (any, string) {
		return StockAdded{
			StockLocationID: stockLocationID,
			VariantID:       variantID,
			Quantity:        quantity,
			AddedAt:         s.now().UTC(),
		}, EventStockAdded
	})
}

// Allocate takes up to quantity from the shelf for an order. With
// backorder set the shortfall is backordered here, otherwise it is left to
// the caller. It returns the on-hand and backordered counts taken.
func (s *Service) Allocate(ctx context.Context, stockLocationID, variantID, orderNumber string, quantity int, backorder bool) (onHand, backordered int, err error) {
	if quantity <= 0 {
		return 0, 0, ErrInvalidQuantity
	}
	_, err = s.mutate(ctx, stockLocationID, variantID, func(item *StockItem) (any, string) {
		onHand = min(item.Available(), quantity)
		if backorder {
			backordered = quantity - onHand
		}
		if onHand == 0 && backordered == 0 {
			return nil, ""
		}
		return StockAllocated{
			StockLocationID: stockLocationID,
			VariantID:       variantID,
			OrderNumber:     orderNumber,
			OnHand:          onHand,
			Backordered:     backordered,
			AllocatedAt:     s.now().UTC(),
		}, EventStockAllocated
	})
	if err != nil {
		return 0, 0, err
	}
	return onHand, backordered, nil
}

// Claim takes exactly the given counts, even past what is on the shelf.
// It undoes a Restock.
func (s *Service) Claim(ctx context.Context, stockLocationID, variantID, orderNumber string, onHand, backordered int) error {
	if onHand < 0 || backordered < 0 || onHand+backordered == 0 {
		return ErrInvalidQuantity
	}
	_, err := s.mutate(ctx, stockLocationID, variantID, func(item *StockItem) (any, string) {
		if item.CountOnHand < onHand {
			s.logger.Warn("claim exceeds count on hand",
				zap.String("stock_item", ItemID(stockLocationID, variantID)),
				zap.String("order", orderNumber),
				zap.Int("count_on_hand", item.CountOnHand),
				zap.Int("on_hand", onHand),
			)
		}
		return StockAllocated{
			StockLocationID: stockLocationID,
			VariantID:       variantID,
			OrderNumber:     orderNumber,
			OnHand:          onHand,
			Backordered:     backordered,
			AllocatedAt:     s.now().UTC(),
		}, EventStockAllocated
	})
	return err
}

// Restock returns on-hand units to the shelf and cancels backorders.
func (s *Service) Restock(ctx context.Context, stockLocationID, variantID, orderNumber string, onHand, backordered int) error {
	if onHand < 0 || backordered < 0 || onHand+backordered == 0 {
		return ErrInvalidQuantity
	}
	_, err := s.mutate(ctx, stockLocationID, variantID, func(item *StockItem) (any, string) {
		return StockRestocked{
			StockLocationID: stockLocationID,
			VariantID:       variantID,
			OrderNumber:     orderNumber,
			OnHand:          onHand,
			Backordered:     backordered,
			RestockedAt:     s.now().UTC(),
		}, EventStockRestocked
	})
	return err
}

func (s *Service) load(ctx context.Context, stockLocationID, variantID string) (*StockItem, bool, error) {
	return aggregate.LoadAggregate(ctx, s.eventStore, ItemID(stockLocationID, variantID), func() *StockItem {
		return &StockItem{StockLocationID: stockLocationID, VariantID: variantID}
	})
}

// mutate loads the item under its lock and appends the event decide returns.
// A nil event appends nothing.
func (s *Service) mutate(ctx context.Context, stockLocationID, variantID string, decide func(*StockItem) (any, string)) (*StockItem, error) {
	if stockLocationID == "" {
		return nil, ErrInvalidLocation
	}
	if variantID == "" {
		return nil, ErrInvalidVariant
	}
	id := ItemID(stockLocationID, variantID)
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock stock item %s: %w", id, err)
	}
	defer unlock()

	item, _, err := s.load(ctx, stockLocationID, variantID)
	if err != nil {
		return nil, err
	}
	data, eventType := decide(item)
	if data == nil {
		return item, nil
	}

	previous := item.Version
	events, err := s.eventStore.Append(ctx, id, AggregateType, previous, store.Change{EventType: eventType, Data: data})
	if err != nil {
		return nil, err
	}
	if err := aggregate.ApplyAll(item, events); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, item, AggregateType, previous, s.snapshotThreshold); err != nil {
		s.logger.Warn("snapshot failed", zap.String("stock_item", id), zap.Error(err))
	}
	return item, nil
}
