package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/infrastructure/store/mocks"
	"github.com/badogar/solidus/internal/readmodel"
)

func newTestQueryHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	handler := NewHandler(readStore, nil)
	return handler, readStore
}

// byStateStore adds a state filter to the mock, as the PostgreSQL store has.
type byStateStore struct {
	*mocks.MockReadStore
	calls []string
}

func (s *byStateStore) ListOrdersByState(state string) []*readmodel.OrderReadModel {
	s.calls = append(s.calls, state)
	return []*readmodel.OrderReadModel{{ID: "R000000001", State: state}}
}

// ============================================
// Order Query Tests
// ============================================

func TestHandler_GetOrder(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionOrders, "R000000001", &readmodel.OrderReadModel{ID: "R000000001", State: "cart"})

	o, found := handler.GetOrder("R000000001")
	assert.True(t, found)
	assert.Equal(t, "cart", o.State)

	o, found = handler.GetOrder("R404")
	assert.False(t, found)
	assert.Nil(t, o)
}

func TestHandler_GetOrderSummary_FormatsMoney(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionOrders, "R000000001", &readmodel.OrderReadModel{
		ID:              "R000000001",
		ItemTotal:       decimal.RequireFromString("1200"),
		AdjustmentTotal: decimal.RequireFromString("-50.5"),
		PaymentTotal:    decimal.RequireFromString("100"),
		Total:           decimal.RequireFromString("1149.5"),
	})

	summary, found := handler.GetOrderSummary("R000000001")

	require.True(t, found)
	assert.Contains(t, summary.ItemTotal, "1,200.00")
	assert.Contains(t, summary.AdjustmentTotal, "50.50")
	assert.Contains(t, summary.Total, "1,149.50")
	assert.Contains(t, summary.OutstandingBalance, "1,049.50")
	assert.Contains(t, summary.Total, "$")

	_, found = handler.GetOrderSummary("R404")
	assert.False(t, found)
}

func TestHandler_ListOrdersByUser(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionOrders, "R1", &readmodel.OrderReadModel{ID: "R1", UserID: "usr_1"})
	readStore.SetData(readmodel.CollectionOrders, "R2", &readmodel.OrderReadModel{ID: "R2", UserID: "usr_2"})
	readStore.SetData(readmodel.CollectionOrders, "R3", &readmodel.OrderReadModel{ID: "R3", UserID: "usr_1"})

	orders := handler.ListOrdersByUser("usr_1")

	require.Len(t, orders, 2)
	assert.Equal(t, "R1", orders[0].ID)
	assert.Equal(t, "R3", orders[1].ID)
	assert.Empty(t, handler.ListOrdersByUser("usr_3"))
}

func TestHandler_ListOrdersByState_Filters(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionOrders, "R1", &readmodel.OrderReadModel{ID: "R1", State: "complete"})
	readStore.SetData(readmodel.CollectionOrders, "R2", &readmodel.OrderReadModel{ID: "R2", State: "canceled"})

	orders := handler.ListOrdersByState("canceled")

	require.Len(t, orders, 1)
	assert.Equal(t, "R2", orders[0].ID)
	assert.Len(t, handler.ListAllOrders(), 2)
}

func TestHandler_ListOrdersByState_UsesStoreFilter(t *testing.T) {
	rs := &byStateStore{MockReadStore: mocks.NewMockReadStore()}
	handler := NewHandler(rs, nil)

	orders := handler.ListOrdersByState("complete")

	require.Len(t, orders, 1)
	assert.Equal(t, []string{"complete"}, rs.calls)
}

// ============================================
// Catalog and Stock Query Tests
// ============================================

func TestHandler_Variants(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionVariants, "var_1", &readmodel.VariantReadModel{ID: "var_1", SKU: "TS-1", CreatedAt: time.Now()})
	readStore.SetData(readmodel.CollectionVariants, "var_2", &readmodel.VariantReadModel{ID: "var_2", SKU: "MUG-1"})

	v, found := handler.GetVariant("var_1")
	require.True(t, found)
	assert.Equal(t, "TS-1", v.SKU)
	assert.Len(t, handler.ListVariants(), 2)

	_, found = handler.GetVariant("var_404")
	assert.False(t, found)
}

func TestHandler_ListStockLocations(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionLocations, "loc_1", &readmodel.StockLocationReadModel{ID: "loc_1", Active: true})
	readStore.SetData(readmodel.CollectionLocations, "loc_2", &readmodel.StockLocationReadModel{ID: "loc_2", Active: false})

	assert.Len(t, handler.ListStockLocations(false), 2)
	active := handler.ListStockLocations(true)
	require.Len(t, active, 1)
	assert.Equal(t, "loc_1", active[0].ID)
}

func TestHandler_GetVariantStock_SumsLocations(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionInventory, "loc_1/var_1", &readmodel.InventoryReadModel{ID: "loc_1/var_1", StockLocationID: "loc_1", VariantID: "var_1", CountOnHand: 4})
	readStore.SetData(readmodel.CollectionInventory, "loc_2/var_1", &readmodel.InventoryReadModel{ID: "loc_2/var_1", StockLocationID: "loc_2", VariantID: "var_1", CountOnHand: 1, Backordered: 2})
	readStore.SetData(readmodel.CollectionInventory, "loc_1/var_2", &readmodel.InventoryReadModel{ID: "loc_1/var_2", StockLocationID: "loc_1", VariantID: "var_2", CountOnHand: 9})

	stock := handler.GetVariantStock("var_1")

	assert.Equal(t, 5, stock.CountOnHand)
	assert.Equal(t, 2, stock.Backordered)
	assert.Len(t, stock.Locations, 2)

	item, found := handler.GetStockItem("loc_1", "var_2")
	require.True(t, found)
	assert.Equal(t, 9, item.CountOnHand)

	empty := handler.GetVariantStock("var_404")
	assert.Zero(t, empty.CountOnHand)
	assert.NotNil(t, empty.Locations)
}

// ============================================
// User Query Tests
// ============================================

func TestHandler_GetUser(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.CollectionUsers, "usr_1", &readmodel.UserReadModel{ID: "usr_1", Email: "jane@example.com"})

	u, found := handler.GetUser("usr_1")
	require.True(t, found)
	assert.Equal(t, "jane@example.com", u.Email)

	_, found = handler.GetUser("usr_2")
	assert.False(t, found)
}
