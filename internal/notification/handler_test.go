package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/email"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/infrastructure/store/mocks"
	"github.com/badogar/solidus/internal/readmodel"
)

type sentMail struct {
	kind  string
	to    string
	order string
	total decimal.Decimal
	items []email.OrderItem
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []email.OrderItem) error {
	m.sent = append(m.sent, sentMail{kind: "confirmation", to: to, order: orderNumber, total: total, items: items})
	return m.err
}

func (m *recordingMailer) SendOrderCancellation(to, orderNumber string, total decimal.Decimal) error {
	m.sent = append(m.sent, sentMail{kind: "cancellation", to: to, order: orderNumber, total: total})
	return m.err
}

func newTestNotifier() (*Handler, *recordingMailer, *mocks.MockReadStore) {
	mailer := &recordingMailer{}
	readStore := mocks.NewMockReadStore()
	readStore.SetData(readmodel.CollectionUsers, "usr_1", &readmodel.UserReadModel{ID: "usr_1", Email: "jane@example.com"})
	readStore.SetData(readmodel.CollectionUsers, "usr_guest", &readmodel.UserReadModel{ID: "usr_guest", Guest: true})
	readStore.SetData(readmodel.CollectionOrders, "R1", &readmodel.OrderReadModel{
		ID:     "R1",
		UserID: "usr_1",
		Total:  decimal.RequireFromString("20.00"),
		LineItems: []readmodel.LineItemReadModel{
			{ID: "li_1", VariantID: "var_1", Name: "T-Shirt", Quantity: 2, Price: decimal.RequireFromString("10.00")},
		},
	})
	readStore.SetData(readmodel.CollectionOrders, "R2", &readmodel.OrderReadModel{ID: "R2", UserID: "usr_guest"})
	return NewHandler(mailer, readStore, nil), mailer, readStore
}

func orderEvent(number, eventType string, data any) []byte {
	raw, _ := json.Marshal(data)
	value, _ := json.Marshal(store.Event{AggregateID: number, AggregateType: order.AggregateType, EventType: eventType, Data: raw})
	return value
}

func TestHandler_OrderCompleted_SendsConfirmation(t *testing.T) {
	handler, mailer, _ := newTestNotifier()

	err := handler.HandleEvent(context.Background(), nil, orderEvent("R1", order.EventOrderCompleted, order.OrderCompleted{}))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, "confirmation", mail.kind)
	assert.Equal(t, "jane@example.com", mail.to)
	assert.True(t, mail.total.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, mail.items, 1)
	assert.Equal(t, "T-Shirt", mail.items[0].Name)
}

func TestHandler_OrderCanceled_SendsCancellation(t *testing.T) {
	handler, mailer, _ := newTestNotifier()

	err := handler.HandleEvent(context.Background(), nil, orderEvent("R1", order.EventOrderStateChanged, order.OrderStateChanged{
		From: order.StateComplete, To: order.StateCanceled, Event: order.Cancel,
	}))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "cancellation", mailer.sent[0].kind)
}

func TestHandler_IgnoresOtherEvents(t *testing.T) {
	handler, mailer, _ := newTestNotifier()
	ctx := context.Background()

	require.NoError(t, handler.HandleEvent(ctx, nil, orderEvent("R1", order.EventOrderStateChanged, order.OrderStateChanged{To: order.StateAddress})))
	require.NoError(t, handler.HandleEvent(ctx, nil, orderEvent("R1", order.EventTotalsRecomputed, order.TotalsRecomputed{})))
	other, _ := json.Marshal(store.Event{AggregateType: "User", EventType: order.EventOrderCompleted})
	require.NoError(t, handler.HandleEvent(ctx, nil, other))

	assert.Empty(t, mailer.sent)
}

func TestHandler_SkipsGuestsAndUnknownOrders(t *testing.T) {
	handler, mailer, _ := newTestNotifier()
	ctx := context.Background()

	require.NoError(t, handler.HandleEvent(ctx, nil, orderEvent("R2", order.EventOrderCompleted, order.OrderCompleted{})))
	require.NoError(t, handler.HandleEvent(ctx, nil, orderEvent("R404", order.EventOrderCompleted, order.OrderCompleted{})))

	assert.Empty(t, mailer.sent)
}

func TestHandler_MailerError(t *testing.T) {
	handler, mailer, _ := newTestNotifier()
	mailer.err = errors.New("smtp down")

	err := handler.HandleEvent(context.Background(), nil, orderEvent("R1", order.EventOrderCompleted, order.OrderCompleted{}))

	assert.ErrorIs(t, err, mailer.err)
}

func TestHandler_InvalidJSON(t *testing.T) {
	handler, _, _ := newTestNotifier()

	err := handler.HandleEvent(context.Background(), nil, []byte("{"))

	assert.Error(t, err)
}
