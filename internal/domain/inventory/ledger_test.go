package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/infrastructure/store/mocks"
)

type fixedLocations struct {
	locs []*location.StockLocation
	err  error
}

func (f fixedLocations) Active(ctx context.Context) ([]*location.StockLocation, error) {
	return f.locs, f.err
}

func twoLocations() fixedLocations {
	return fixedLocations{locs: []*location.StockLocation{
		{ID: "loc_main", Priority: 1, IsActive: true},
		{ID: "loc_spare", Priority: 2, IsActive: true},
	}}
}

func newTestLedger(t *testing.T, locs Locations, stocked map[string]int) (*Ledger, *Service) {
	t.Helper()
	items, _ := newTestInventoryService()
	for key, n := range stocked {
		loc, variant, _ := cut(key)
		_, err := items.AddStock(context.Background(), loc, variant, n)
		require.NoError(t, err)
	}
	return NewLedger(items, locs, nil), items
}

func cut(key string) (string, string, bool) {
	for i := range key {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}

// ============================================
// Reserve Tests
// ============================================

func TestLedger_Reserve_PriorityOrder(t *testing.T) {
	ledger, items := newTestLedger(t, twoLocations(), map[string]int{"loc_main/v1": 2, "loc_spare/v1": 5})
	ctx := context.Background()

	reservations, err := ledger.Reserve(ctx, "R1", "v1", 4)

	require.NoError(t, err)
	assert.Equal(t, []order.Reservation{
		{StockLocationID: "loc_main", VariantID: "v1", OnHand: 2},
		{StockLocationID: "loc_spare", VariantID: "v1", OnHand: 2},
	}, reservations)
	main, _ := items.CountOnHand(ctx, "loc_main", "v1")
	spare, _ := items.CountOnHand(ctx, "loc_spare", "v1")
	assert.Equal(t, 0, main)
	assert.Equal(t, 3, spare)
}

func TestLedger_Reserve_BackordersAtFirstLocation(t *testing.T) {
	ledger, items := newTestLedger(t, twoLocations(), map[string]int{"loc_spare/v1": 1})
	ctx := context.Background()

	reservations, err := ledger.Reserve(ctx, "R1", "v1", 3)

	require.NoError(t, err)
	assert.Equal(t, []order.Reservation{
		{StockLocationID: "loc_main", VariantID: "v1", Backordered: 2},
		{StockLocationID: "loc_spare", VariantID: "v1", OnHand: 1},
	}, reservations)
	item, err := items.Get(ctx, "loc_main", "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Backordered)
}

func TestLedger_Reserve_MergesBackorderIntoFirstReservation(t *testing.T) {
	ledger, _ := newTestLedger(t, twoLocations(), map[string]int{"loc_main/v1": 1})

	reservations, err := ledger.Reserve(context.Background(), "R1", "v1", 3)

	require.NoError(t, err)
	assert.Equal(t, []order.Reservation{
		{StockLocationID: "loc_main", VariantID: "v1", OnHand: 1, Backordered: 2},
	}, reservations)
}

func TestLedger_Reserve_NoLocations(t *testing.T) {
	ledger, _ := newTestLedger(t, fixedLocations{}, nil)

	reservations, err := ledger.Reserve(context.Background(), "R1", "v1", 3)

	require.NoError(t, err)
	assert.Equal(t, []order.Reservation{{VariantID: "v1", Backordered: 3}}, reservations)
}

func TestLedger_Reserve_LocationError(t *testing.T) {
	boom := errors.New("boom")
	ledger, _ := newTestLedger(t, fixedLocations{err: boom}, nil)

	_, err := ledger.Reserve(context.Background(), "R1", "v1", 3)

	assert.ErrorIs(t, err, boom)
}

// ============================================
// Release / Claim / Levels Tests
// ============================================

func TestLedger_ReleaseThenClaim(t *testing.T) {
	ledger, items := newTestLedger(t, twoLocations(), map[string]int{"loc_main/v1": 4})
	ctx := context.Background()
	reservations, err := ledger.Reserve(ctx, "R1", "v1", 6)
	require.NoError(t, err)
	require.Len(t, reservations, 1)

	require.NoError(t, ledger.Release(ctx, "R1", reservations[0]))
	item, _ := items.Get(ctx, "loc_main", "v1")
	assert.Equal(t, 4, item.CountOnHand)
	assert.Equal(t, 0, item.Backordered)

	require.NoError(t, ledger.Claim(ctx, "R1", reservations[0]))
	item, _ = items.Get(ctx, "loc_main", "v1")
	assert.Equal(t, 0, item.CountOnHand)
	assert.Equal(t, 2, item.Backordered)

	// reservations without a location are not recorded anywhere
	assert.NoError(t, ledger.Release(ctx, "R1", order.Reservation{VariantID: "v1", Backordered: 2}))
}

func TestLedger_Levels(t *testing.T) {
	ledger, _ := newTestLedger(t, twoLocations(), map[string]int{"loc_main/v1": 2, "loc_spare/v2": 7})

	levels, err := ledger.Levels(context.Background(), []string{"v1", "v2"})

	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "loc_main", levels[0].ID)
	assert.Equal(t, map[string]int{"v1": 2, "v2": 0}, levels[0].OnHand)
	assert.Equal(t, map[string]int{"v1": 0, "v2": 7}, levels[1].OnHand)
}

// ============================================
// Order Integration Tests
// ============================================

type catalog map[string]order.VariantInfo

func (c catalog) Variant(ctx context.Context, id string) (order.VariantInfo, error) {
	return c[id], nil
}

func TestLedger_OrderCancelRestocks(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()
	locations := location.NewService(eventStore, nil)
	main, err := locations.Create(ctx, "Main", "", 1)
	require.NoError(t, err)
	items := NewService(eventStore, nil, 0, nil)
	_, err = items.AddStock(ctx, main.ID, "v1", 3)
	require.NoError(t, err)

	orders, err := order.NewService(order.ServiceDeps{
		EventStore: eventStore,
		Catalog:    catalog{"v1": {ID: "v1", Name: "Mug", Price: decimal.RequireFromString("8.00")}},
		Ledger:     NewLedger(items, locations, nil),
		Clock:      func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	o, err := orders.Create(ctx, "usr_1")
	require.NoError(t, err)
	_, err = orders.AddVariant(ctx, o.Number, "v1", 5)
	require.NoError(t, err)
	for _, e := range []order.Event{order.Checkout, order.Next, order.Next, order.Next} {
		_, err = orders.Fire(ctx, o.Number, e)
		require.NoError(t, err)
	}
	o, err = orders.Next(ctx, o.Number)
	require.NoError(t, err)
	require.Equal(t, order.StateComplete, o.State)
	require.Len(t, o.InventoryUnits, 5)
	assert.Equal(t, main.ID, o.Shipments[0].StockLocationID)

	item, _ := items.Get(ctx, main.ID, "v1")
	assert.Equal(t, 0, item.CountOnHand)
	assert.Equal(t, 2, item.Backordered)

	_, err = orders.Cancel(ctx, o.Number)
	require.NoError(t, err)

	item, _ = items.Get(ctx, main.ID, "v1")
	assert.Equal(t, 3, item.CountOnHand)
	assert.Equal(t, 0, item.Backordered)
}
