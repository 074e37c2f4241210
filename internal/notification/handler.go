package notification

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/email"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/readmodel"
)

// Mailer sends customer mail.
type Mailer interface {
	SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []email.OrderItem) error
	SendOrderCancellation(to, orderNumber string, total decimal.Decimal) error
}

var _ Mailer = (*email.Service)(nil)

// Handler processes events for sending notifications
type Handler struct {
	mailer    Mailer
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, readStore store.ReadStoreInterface, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mailer:    mailer,
		readStore: readStore,
		logger:    logger.Named("notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("unmarshal event", zap.Error(err))
		return err
	}
	return h.Apply(ctx, event)
}

// Apply sends the mail an order event calls for, if any.
func (h *Handler) Apply(ctx context.Context, event store.Event) error {
	if event.AggregateType != order.AggregateType {
		return nil
	}

	switch event.EventType {
	case order.EventOrderCompleted:
		return h.handleOrderCompleted(event.AggregateID)

	case order.EventOrderStateChanged:
		var e order.OrderStateChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			h.logger.Error("unmarshal OrderStateChanged", zap.String("order", event.AggregateID), zap.Error(err))
			return err
		}
		if e.To == order.StateCanceled {
			return h.handleOrderCanceled(event.AggregateID)
		}
	}
	return nil
}

func (h *Handler) handleOrderCompleted(number string) error {
	o, to, ok := h.recipient(number)
	if !ok {
		return nil
	}

	items := make([]email.OrderItem, len(o.LineItems))
	for i, li := range o.LineItems {
		items[i] = email.OrderItem{
			VariantID: li.VariantID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			Price:     li.Price,
		}
	}

	if err := h.mailer.SendOrderConfirmation(to, number, o.Total, items); err != nil {
		h.logger.Error("send confirmation", zap.String("order", number), zap.String("to", to), zap.Error(err))
		return err
	}
	h.logger.Info("confirmation sent", zap.String("order", number), zap.String("to", to))
	return nil
}

func (h *Handler) handleOrderCanceled(number string) error {
	o, to, ok := h.recipient(number)
	if !ok {
		return nil
	}
	if err := h.mailer.SendOrderCancellation(to, number, o.Total); err != nil {
		h.logger.Error("send cancellation", zap.String("order", number), zap.String("to", to), zap.Error(err))
		return err
	}
	h.logger.Info("cancellation sent", zap.String("order", number), zap.String("to", to))
	return nil
}

// recipient looks up the order and the address to mail. Orders of guests
// without an email are skipped.
func (h *Handler) recipient(number string) (*readmodel.OrderReadModel, string, bool) {
	orderData, ok := h.readStore.Get(readmodel.CollectionOrders, number)
	if !ok {
		h.logger.Warn("order not projected yet", zap.String("order", number))
		return nil, "", false
	}
	o := orderData.(*readmodel.OrderReadModel)

	userData, ok := h.readStore.Get(readmodel.CollectionUsers, o.UserID)
	if !ok {
		h.logger.Warn("user not found", zap.String("order", number), zap.String("user_id", o.UserID))
		return nil, "", false
	}
	u := userData.(*readmodel.UserReadModel)
	if u.Email == "" {
		h.logger.Debug("no email on file", zap.String("order", number), zap.String("user_id", o.UserID))
		return nil, "", false
	}
	return o, u.Email, true
}
