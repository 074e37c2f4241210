package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/aggregate"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

const AggregateType = "Variant"

var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidWeight   = errors.New("weight must not be negative")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidSKU      = errors.New("sku is required")
)

// Variant is a sellable product variant.
type Variant struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Weight    decimal.Decimal `json:"weight"`
	IsDeleted bool            `json:"is_deleted,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

func (v *Variant) GetID() string    { return v.ID }
func (v *Variant) GetVersion() int  { return v.Version }
func (v *Variant) SetVersion(n int) { v.Version = n }

func (v *Variant) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventVariantCreated:
		var data VariantCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.ID = data.VariantID
		v.SKU = data.SKU
		v.Name = data.Name
		v.Price = data.Price
		v.Weight = data.Weight
		v.CreatedAt = data.CreatedAt
		v.UpdatedAt = data.CreatedAt
	case EventVariantPriceChanged:
		var data VariantPriceChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Price = data.Price
		v.UpdatedAt = data.ChangedAt
	case EventVariantDeleted:
		var data VariantDeleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.IsDeleted = true
		v.UpdatedAt = data.DeletedAt
	default:
		return fmt.Errorf("unknown variant event %q", event.EventType)
	}
	v.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	ids        order.IDGenerator
	now        func() time.Time
}

func NewService(es store.EventStoreInterface, ids order.IDGenerator) *Service {
	if ids == nil {
		ids = order.NewIDGenerator()
	}
	return &Service{eventStore: es, ids: ids, now: time.Now}
}

func (s *Service) Create(ctx context.Context, sku, name string, price, weight decimal.Decimal) (*Variant, error) {
	sku = strings.TrimSpace(sku)
	name = strings.TrimSpace(name)
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if weight.IsNegative() {
		return nil, ErrInvalidWeight
	}

	id := s.ids("var")
	events, err := s.eventStore.Append(ctx, id, AggregateType, 0, store.Change{
		EventType: EventVariantCreated,
		Data: VariantCreated{
			VariantID: id,
			SKU:       sku,
			Name:      name,
			Price:     price,
			Weight:    weight,
			CreatedAt: s.now().UTC(),
		},
	})
	if err != nil {
		return nil, err
	}

	v := &Variant{}
	if err := aggregate.ApplyAll(v, events); err != nil {
		return nil, err
	}
	return v, nil
}

// ChangePrice sets the price used for line items added from now on.
func (s *Service) ChangePrice(ctx context.Context, variantID string, price decimal.Decimal) (*Variant, error) {
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	v, err := s.Get(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if v.Price.Equal(price) {
		return v, nil
	}
	events, err := s.eventStore.Append(ctx, variantID, AggregateType, v.Version, store.Change{
		EventType: EventVariantPriceChanged,
		Data:      VariantPriceChanged{VariantID: variantID, Price: price, ChangedAt: s.now().UTC()},
	})
	if err != nil {
		return nil, err
	}
	if err := aggregate.ApplyAll(v, events); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, variantID string) error {
	v, err := s.Get(ctx, variantID)
	if err != nil {
		return err
	}
	_, err = s.eventStore.Append(ctx, variantID, AggregateType, v.Version, store.Change{
		EventType: EventVariantDeleted,
		Data:      VariantDeleted{VariantID: variantID, DeletedAt: s.now().UTC()},
	})
	return err
}

func (s *Service) Get(ctx context.Context, variantID string) (*Variant, error) {
	v, found, err := aggregate.LoadAggregate(ctx, s.eventStore, variantID, func() *Variant {
		return &Variant{}
	})
	if err != nil {
		return nil, err
	}
	if !found || v.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, variantID)
	}
	return v, nil
}

// Variant looks a variant up for the order service.
func (s *Service) Variant(ctx context.Context, variantID string) (order.VariantInfo, error) {
	v, err := s.Get(ctx, variantID)
	if err != nil {
		return order.VariantInfo{}, err
	}
	return order.VariantInfo{ID: v.ID, SKU: v.SKU, Name: v.Name, Price: v.Price, Weight: v.Weight}, nil
}
