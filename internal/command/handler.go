package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/catalog"
	"github.com/badogar/solidus/internal/domain/inventory"
	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/user"
)

var (
	ErrUnknownCommand   = errors.New("command: unknown command type")
	ErrUnsupportedEvent = errors.New("command: event cannot be fired directly")
	ErrMissingOrder     = errors.New("command: order number is required")
)

// Handler is the write-side entry point. It turns commands into calls on the
// domain services and leaves read models to the projector.
type Handler struct {
	orderSvc     *order.Service
	catalogSvc   *catalog.Service
	locationSvc  *location.Service
	inventorySvc *inventory.Service
	userSvc      *user.Service
	logger       *zap.Logger
}

func NewHandler(
	orderSvc *order.Service,
	catalogSvc *catalog.Service,
	locationSvc *location.Service,
	inventorySvc *inventory.Service,
	userSvc *user.Service,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orderSvc:     orderSvc,
		catalogSvc:   catalogSvc,
		locationSvc:  locationSvc,
		inventorySvc: inventorySvc,
		userSvc:      userSvc,
		logger:       logger.Named("command"),
	}
}

// ============================================
// Orders
// ============================================

// CreateOrder starts an order; without a user id a guest user is created.
func (h *Handler) CreateOrder(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	return h.orderSvc.Create(ctx, cmd.UserID)
}

func (h *Handler) AddVariant(ctx context.Context, cmd AddVariant) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.AddVariant(ctx, cmd.OrderNumber, cmd.VariantID, cmd.Quantity)
}

func (h *Handler) SetQuantity(ctx context.Context, cmd SetQuantity) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.SetQuantity(ctx, cmd.OrderNumber, cmd.LineItemID, cmd.Quantity)
}

func (h *Handler) RemoveLineItem(ctx context.Context, cmd RemoveLineItem) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.RemoveLineItem(ctx, cmd.OrderNumber, cmd.LineItemID)
}

// FireEvent moves an order along the checkout flow. Resume and
// authorize_return carry extra work and have their own commands.
func (h *Handler) FireEvent(ctx context.Context, cmd FireEvent) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	switch cmd.Event {
	case order.Checkout, order.Next, order.Cancel, order.Return:
		return h.orderSvc.Fire(ctx, cmd.OrderNumber, cmd.Event)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, cmd.Event)
	}
}

// ResumeOrder fires resume on a canceled order and restores the state it had
// before cancellation. If the restore fails the order stays resumed and the
// command can be sent again.
func (h *Handler) ResumeOrder(ctx context.Context, cmd ResumeOrder) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	if _, err := h.orderSvc.Resume(ctx, cmd.OrderNumber); err != nil {
		return nil, err
	}
	o, err := h.orderSvc.RestoreState(ctx, cmd.OrderNumber)
	if err != nil {
		h.logger.Error("restore after resume failed", zap.String("order", cmd.OrderNumber), zap.Error(err))
		return nil, err
	}
	return o, nil
}

func (h *Handler) AuthorizeReturn(ctx context.Context, cmd AuthorizeReturn) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.AuthorizeReturn(ctx, cmd.OrderNumber, cmd.Amount, cmd.Reason, cmd.UnitIDs)
}

func (h *Handler) DeleteOrder(ctx context.Context, cmd DeleteOrder) error {
	if cmd.OrderNumber == "" {
		return ErrMissingOrder
	}
	return h.orderSvc.Delete(ctx, cmd.OrderNumber)
}

func (h *Handler) RecordPayment(ctx context.Context, cmd RecordPayment) (order.Payment, error) {
	if cmd.OrderNumber == "" {
		return order.Payment{}, ErrMissingOrder
	}
	state := cmd.State
	if state == "" {
		state = order.PaymentCheckout
	}
	return h.orderSvc.RecordPayment(ctx, cmd.OrderNumber, cmd.Amount, state)
}

func (h *Handler) UpdatePaymentState(ctx context.Context, cmd UpdatePaymentState) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.UpdatePaymentState(ctx, cmd.OrderNumber, cmd.PaymentID, cmd.State)
}

func (h *Handler) ShipShipment(ctx context.Context, cmd ShipShipment) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.Ship(ctx, cmd.OrderNumber, cmd.ShipmentID)
}

// ApplyPromotion runs a promotion action; false means it found nothing to apply.
func (h *Handler) ApplyPromotion(ctx context.Context, cmd ApplyPromotion) (bool, error) {
	if cmd.OrderNumber == "" {
		return false, ErrMissingOrder
	}
	return h.orderSvc.ApplyAdjustment(ctx, cmd.OrderNumber, cmd.OriginatorID)
}

func (h *Handler) AssociateUser(ctx context.Context, cmd AssociateUser) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	if _, err := h.userSvc.Get(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	return h.orderSvc.AssociateUser(ctx, cmd.OrderNumber, cmd.UserID)
}

func (h *Handler) SetSpecialInstructions(ctx context.Context, cmd SetSpecialInstructions) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.SetSpecialInstructions(ctx, cmd.OrderNumber, cmd.Instructions)
}

func (h *Handler) SetShipAddress(ctx context.Context, cmd SetShipAddress) (*order.Order, error) {
	if cmd.OrderNumber == "" {
		return nil, ErrMissingOrder
	}
	return h.orderSvc.SetShipAddress(ctx, cmd.OrderNumber, order.Address{Country: cmd.Country, State: cmd.State})
}

// ============================================
// Catalog, stock and users
// ============================================

func (h *Handler) CreateVariant(ctx context.Context, cmd CreateVariant) (*catalog.Variant, error) {
	return h.catalogSvc.Create(ctx, cmd.SKU, cmd.Name, cmd.Price, cmd.Weight)
}

func (h *Handler) ChangeVariantPrice(ctx context.Context, cmd ChangeVariantPrice) (*catalog.Variant, error) {
	return h.catalogSvc.ChangePrice(ctx, cmd.VariantID, cmd.Price)
}

func (h *Handler) CreateStockLocation(ctx context.Context, cmd CreateStockLocation) (*location.StockLocation, error) {
	return h.locationSvc.Create(ctx, cmd.Name, cmd.Code, cmd.Priority)
}

// AddStock checks the location and the variant before stocking.
func (h *Handler) AddStock(ctx context.Context, cmd AddStock) (*inventory.StockItem, error) {
	if _, err := h.locationSvc.Get(ctx, cmd.StockLocationID); err != nil {
		return nil, err
	}
	if _, err := h.catalogSvc.Get(ctx, cmd.VariantID); err != nil {
		return nil, err
	}
	return h.inventorySvc.AddStock(ctx, cmd.StockLocationID, cmd.VariantID, cmd.Quantity)
}

func (h *Handler) RegisterUser(ctx context.Context, cmd RegisterUser) (*user.User, error) {
	return h.userSvc.Register(ctx, cmd.Email, cmd.Name)
}

// ============================================
// Message dispatch
// ============================================

// HandleMessage decodes an Envelope from the command topic and executes it.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	logger := h.logger.With(zap.String("type", env.Type), zap.ByteString("key", key))
	err := h.dispatch(ctx, env)
	if err != nil {
		logger.Warn("command rejected", zap.Error(err))
		return err
	}
	logger.Debug("command handled")
	return nil
}

func (h *Handler) dispatch(ctx context.Context, env Envelope) error {
	switch env.Type {
	case TypeCreateOrder:
		return run(ctx, env, h.CreateOrder)
	case TypeAddVariant:
		return run(ctx, env, h.AddVariant)
	case TypeSetQuantity:
		return run(ctx, env, h.SetQuantity)
	case TypeRemoveLineItem:
		return run(ctx, env, h.RemoveLineItem)
	case TypeFireEvent:
		return run(ctx, env, h.FireEvent)
	case TypeResumeOrder:
		return run(ctx, env, h.ResumeOrder)
	case TypeAuthorizeReturn:
		return run(ctx, env, h.AuthorizeReturn)
	case TypeRecordPayment:
		return run(ctx, env, h.RecordPayment)
	case TypeUpdatePaymentState:
		return run(ctx, env, h.UpdatePaymentState)
	case TypeShipShipment:
		return run(ctx, env, h.ShipShipment)
	case TypeApplyPromotion:
		return run(ctx, env, h.ApplyPromotion)
	case TypeAssociateUser:
		return run(ctx, env, h.AssociateUser)
	case TypeSetSpecialInstructions:
		return run(ctx, env, h.SetSpecialInstructions)
	case TypeSetShipAddress:
		return run(ctx, env, h.SetShipAddress)
	case TypeDeleteOrder:
		return run(ctx, env, func(ctx context.Context, cmd DeleteOrder) (struct{}, error) {
			return struct{}{}, h.DeleteOrder(ctx, cmd)
		})
	case TypeCreateVariant:
		return run(ctx, env, h.CreateVariant)
	case TypeChangeVariantPrice:
		return run(ctx, env, h.ChangeVariantPrice)
	case TypeCreateStockLocation:
		return run(ctx, env, h.CreateStockLocation)
	case TypeAddStock:
		return run(ctx, env, h.AddStock)
	case TypeRegisterUser:
		return run(ctx, env, h.RegisterUser)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}

func run[C, R any](ctx context.Context, env Envelope, fn func(context.Context, C) (R, error)) error {
	var cmd C
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	_, err := fn(ctx, cmd)
	return err
}
