package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/domain/catalog"
	"github.com/badogar/solidus/internal/domain/inventory"
	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/user"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/infrastructure/store/mocks"
	"github.com/badogar/solidus/internal/readmodel"
)

func newTestProjector() (*Projector, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore, nil)
	return projector, readStore
}

var eventTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func makeEvent(aggregateType, aggregateID, eventType string, data any) []byte {
	jsonData, _ := json.Marshal(data)
	event := store.Event{
		ID:            "event-123",
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     eventTime,
	}
	result, _ := json.Marshal(event)
	return result
}

func seedOrder(readStore *mocks.MockReadStore, number string) *readmodel.OrderReadModel {
	o := &readmodel.OrderReadModel{ID: number, State: "cart", LineItems: []readmodel.LineItemReadModel{}}
	readStore.SetData(readmodel.CollectionOrders, number, o)
	return o
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ============================================
// Order Event Tests
// ============================================

func TestProjector_HandleOrderCreated(t *testing.T) {
	projector, readStore := newTestProjector()

	value := makeEvent(order.AggregateType, "R000000001", order.EventOrderCreated, order.OrderCreated{
		Number:    "R000000001",
		UserID:    "usr_1",
		Currency:  "USD",
		CreatedAt: eventTime,
	})
	err := projector.HandleEvent(context.Background(), nil, value)

	require.NoError(t, err)
	data, ok := readStore.GetData(readmodel.CollectionOrders, "R000000001")
	require.True(t, ok)
	o := data.(*readmodel.OrderReadModel)
	assert.Equal(t, "cart", o.State)
	assert.Equal(t, "usr_1", o.UserID)
	assert.True(t, o.Total.IsZero())
}

func TestProjector_LineItemLifecycle(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	o := seedOrder(readStore, "R1")

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventLineItemAdded, order.LineItemAdded{
		LineItem: order.LineItem{ID: "li_1", VariantID: "var_1", Name: "T-Shirt", Quantity: 2, Price: money("10.00")},
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventLineItemAdded, order.LineItemAdded{
		LineItem: order.LineItem{ID: "li_2", VariantID: "var_2", Name: "Mug", Quantity: 1, Price: money("7.50")},
	})))
	assert.Equal(t, 3, o.ItemCount)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventLineItemQuantityChanged, order.LineItemQuantityChanged{
		LineItemID: "li_1", Quantity: 5,
	})))
	assert.Equal(t, 6, o.ItemCount)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventLineItemRemoved, order.LineItemRemoved{
		LineItemID: "li_2",
	})))
	require.Len(t, o.LineItems, 1)
	assert.Equal(t, "li_1", o.LineItems[0].ID)
	assert.Equal(t, 5, o.ItemCount)
	assert.Equal(t, eventTime, o.UpdatedAt)
}

func TestProjector_StateEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	o := seedOrder(readStore, "R1")

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventOrderStateChanged, order.OrderStateChanged{
		From: order.StateConfirm, To: order.StateComplete, Event: order.Next,
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventOrderCompleted, order.OrderCompleted{
		CompletedAt: eventTime,
	})))
	assert.Equal(t, "complete", o.State)
	require.NotNil(t, o.CompletedAt)
	assert.Equal(t, eventTime, *o.CompletedAt)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventOrderStateRestored, order.OrderStateRestored{
		From: order.StateResumed, To: order.StateConfirm,
	})))
	assert.Equal(t, "confirm", o.State)
}

func TestProjector_TotalsRecomputed_UpdatesAllFour(t *testing.T) {
	projector, readStore := newTestProjector()
	o := seedOrder(readStore, "R1")

	err := projector.HandleEvent(context.Background(), nil, makeEvent(order.AggregateType, "R1", order.EventTotalsRecomputed, order.TotalsRecomputed{
		ItemTotal:       money("50.00"),
		AdjustmentTotal: money("-5.00"),
		PaymentTotal:    money("20.00"),
		Total:           money("45.00"),
	}))

	require.NoError(t, err)
	assert.True(t, o.ItemTotal.Equal(money("50.00")))
	assert.True(t, o.AdjustmentTotal.Equal(money("-5.00")))
	assert.True(t, o.PaymentTotal.Equal(money("20.00")))
	assert.True(t, o.Total.Equal(money("45.00")))
	assert.Len(t, readStore.UpdateCalls, 1)
}

type totalsStore struct {
	*mocks.MockReadStore
	ids []string
}

func (s *totalsStore) UpdateOrderTotals(id string, itemTotal, adjustmentTotal, paymentTotal, total decimal.Decimal, at time.Time) bool {
	s.ids = append(s.ids, id)
	return true
}

func TestProjector_TotalsRecomputed_UsesSingleStatementWriter(t *testing.T) {
	rs := &totalsStore{MockReadStore: mocks.NewMockReadStore()}
	projector := NewProjector(rs, nil)

	err := projector.HandleEvent(context.Background(), nil, makeEvent(order.AggregateType, "R1", order.EventTotalsRecomputed, order.TotalsRecomputed{
		Total: money("1.00"),
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, rs.ids)
	assert.Empty(t, rs.UpdateCalls)
}

func TestProjector_UserAssociatedAndDeleted(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	o := seedOrder(readStore, "R1")

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventUserAssociated, order.UserAssociated{UserID: "usr_9"})))
	assert.Equal(t, "usr_9", o.UserID)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, "R1", order.EventOrderDeleted, order.OrderDeleted{})))
	_, ok := readStore.GetData(readmodel.CollectionOrders, "R1")
	assert.False(t, ok)
}

func TestProjector_OrderEventForUnknownOrder(t *testing.T) {
	projector, readStore := newTestProjector()

	err := projector.HandleEvent(context.Background(), nil, makeEvent(order.AggregateType, "R404", order.EventOrderStateChanged, order.OrderStateChanged{To: order.StateAddress}))

	require.NoError(t, err)
	assert.Zero(t, readStore.Count(readmodel.CollectionOrders))
}

// ============================================
// Catalog, Inventory, Location and User Event Tests
// ============================================

func TestProjector_VariantEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(catalog.AggregateType, "var_1", catalog.EventVariantCreated, catalog.VariantCreated{
		VariantID: "var_1", SKU: "TS-1", Name: "T-Shirt", Price: money("10.00"), Weight: money("0.2"), CreatedAt: eventTime,
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(catalog.AggregateType, "var_1", catalog.EventVariantPriceChanged, catalog.VariantPriceChanged{
		VariantID: "var_1", Price: money("12.00"), ChangedAt: eventTime.Add(time.Hour),
	})))

	data, ok := readStore.GetData(readmodel.CollectionVariants, "var_1")
	require.True(t, ok)
	v := data.(*readmodel.VariantReadModel)
	assert.True(t, v.Price.Equal(money("12.00")))
	assert.Equal(t, eventTime.Add(time.Hour), v.UpdatedAt)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(catalog.AggregateType, "var_1", catalog.EventVariantDeleted, catalog.VariantDeleted{VariantID: "var_1"})))
	_, ok = readStore.GetData(readmodel.CollectionVariants, "var_1")
	assert.False(t, ok)
}

func TestProjector_InventoryEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	id := inventory.ItemID("loc_1", "var_1")

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(inventory.AggregateType, id, inventory.EventStockAdded, inventory.StockAdded{
		StockLocationID: "loc_1", VariantID: "var_1", Quantity: 3,
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(inventory.AggregateType, id, inventory.EventStockAllocated, inventory.StockAllocated{
		StockLocationID: "loc_1", VariantID: "var_1", OrderNumber: "R1", OnHand: 3, Backordered: 2,
	})))

	data, ok := readStore.GetData(readmodel.CollectionInventory, id)
	require.True(t, ok)
	inv := data.(*readmodel.InventoryReadModel)
	assert.Equal(t, 0, inv.CountOnHand)
	assert.Equal(t, 2, inv.Backordered)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(inventory.AggregateType, id, inventory.EventStockRestocked, inventory.StockRestocked{
		StockLocationID: "loc_1", VariantID: "var_1", OrderNumber: "R1", OnHand: 3, Backordered: 2,
	})))
	assert.Equal(t, 3, inv.CountOnHand)
	assert.Equal(t, 0, inv.Backordered)
}

func TestProjector_LocationEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(location.AggregateType, "loc_1", location.EventStockLocationCreated, location.StockLocationCreated{
		LocationID: "loc_1", Name: "Main", Code: "main", Priority: 1,
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(location.AggregateType, "loc_1", location.EventStockLocationUpdated, location.StockLocationUpdated{
		LocationID: "loc_1", Name: "Main Warehouse", Priority: 2,
	})))
	data, _ := readStore.GetData(readmodel.CollectionLocations, "loc_1")
	l := data.(*readmodel.StockLocationReadModel)
	assert.Equal(t, "Main Warehouse", l.Name)
	assert.Equal(t, 2, l.Priority)
	assert.True(t, l.Active)

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(location.AggregateType, "loc_1", location.EventStockLocationDeactivated, location.StockLocationDeactivated{LocationID: "loc_1"})))
	assert.False(t, l.Active)
}

func TestProjector_UserEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(user.AggregateType, "usr_1", user.EventUserCreated, user.UserCreated{
		UserID: "usr_1", Guest: true, CreatedAt: eventTime,
	})))
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(user.AggregateType, "usr_1", user.EventUserRegistered, user.UserRegistered{
		UserID: "usr_1", Email: "jane@example.com", Name: "Jane",
	})))

	data, ok := readStore.GetData(readmodel.CollectionUsers, "usr_1")
	require.True(t, ok)
	u := data.(*readmodel.UserReadModel)
	assert.False(t, u.Guest)
	assert.Equal(t, "jane@example.com", u.Email)
}

// ============================================
// Replay Tests
// ============================================

type fixedCatalog map[string]order.VariantInfo

func (c fixedCatalog) Variant(ctx context.Context, id string) (order.VariantInfo, error) {
	return c[id], nil
}

func TestProjector_ReplayMatchesAggregate(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()
	orders, err := order.NewService(order.ServiceDeps{
		EventStore: eventStore,
		Catalog:    fixedCatalog{"var_1": {ID: "var_1", Name: "T-Shirt", Price: money("10.00")}},
	})
	require.NoError(t, err)

	o, err := orders.Create(ctx, "usr_1")
	require.NoError(t, err)
	_, err = orders.AddVariant(ctx, o.Number, "var_1", 3)
	require.NoError(t, err)
	_, err = orders.RecordPayment(ctx, o.Number, money("30.00"), order.PaymentCompleted)
	require.NoError(t, err)
	for _, e := range []order.Event{order.Checkout, order.Next, order.Next, order.Next, order.Next} {
		o, err = orders.Fire(ctx, o.Number, e)
		require.NoError(t, err)
	}

	projector, readStore := newTestProjector()
	events, err := eventStore.GetAllEvents(ctx)
	require.NoError(t, err)
	for _, event := range events {
		require.NoError(t, projector.Apply(ctx, event))
	}

	data, ok := readStore.GetData(readmodel.CollectionOrders, o.Number)
	require.True(t, ok)
	rm := data.(*readmodel.OrderReadModel)
	assert.Equal(t, string(o.State), rm.State)
	assert.Equal(t, o.ItemCount(), rm.ItemCount)
	assert.True(t, o.Total.Equal(rm.Total))
	assert.True(t, o.PaymentTotal.Equal(rm.PaymentTotal))
	assert.True(t, rm.OutstandingBalance().IsZero())
	assert.NotNil(t, rm.CompletedAt)
}

// ============================================
// Error Handling Tests
// ============================================

func TestProjector_HandleEvent_InvalidJSON(t *testing.T) {
	projector, _ := newTestProjector()

	err := projector.HandleEvent(context.Background(), nil, []byte("invalid json"))

	assert.Error(t, err)
}

func TestProjector_HandleEvent_InvalidPayload(t *testing.T) {
	projector, _ := newTestProjector()
	event, _ := json.Marshal(store.Event{AggregateType: order.AggregateType, EventType: order.EventLineItemAdded, Data: []byte(`{"line_item":"x"}`)})

	err := projector.HandleEvent(context.Background(), nil, event)

	assert.Error(t, err)
}

func TestProjector_HandleUnknownEventType(t *testing.T) {
	projector, readStore := newTestProjector()

	value := makeEvent("Unknown", "x", "UnknownEvent", map[string]string{"foo": "bar"})
	err := projector.HandleEvent(context.Background(), nil, value)

	assert.NoError(t, err)
	assert.Empty(t, readStore.SetCalls)
}
