package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/domain/money"
)

// percentRule is an order-level rule: rate of the source amount, eligible
// while the order holds at least minItems units.
type percentRule struct {
	id       string
	rate     decimal.Decimal
	minItems int
}

func (r percentRule) ID() string    { return r.id }
func (r percentRule) Label() string { return "rule " + r.id }
func (r percentRule) Eligible(o *Order, _ Adjustment) bool {
	return o.ItemCount() >= r.minItems
}
func (r percentRule) Compute(_ context.Context, _ *Order, c Calculable) (decimal.Decimal, error) {
	return c.Amount.Mul(r.rate), nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func newTestEngine(t *testing.T, originators ...Originator) *AdjustmentEngine {
	t.Helper()
	e, err := NewAdjustmentEngine(sequentialIDs(), money.MustCurrency("USD"), originators...)
	require.NoError(t, err)
	return e
}

func orderWithItems() *Order {
	return &Order{
		Number: "R000000001",
		State:  StateCart,
		LineItems: []LineItem{
			{ID: "li_1", VariantID: "v1", Quantity: 2, Price: dec("10.00")},
			{ID: "li_2", VariantID: "v2", Quantity: 1, Price: dec("5.55")},
		},
		Shipments: []Shipment{{ID: "shp_1", Cost: dec("4.00"), State: ShipmentPending}},
	}
}

// ============================================
// Resolve Tests
// ============================================

func TestOrder_Resolve(t *testing.T) {
	o := orderWithItems()

	c, ok := o.Resolve(OrderRef("R000000001"))
	require.True(t, ok)
	assert.True(t, dec("25.55").Equal(c.Amount))
	assert.Equal(t, 3, c.Quantity)

	c, ok = o.Resolve(LineItemRef("li_1"))
	require.True(t, ok)
	assert.True(t, dec("20").Equal(c.Amount))

	c, ok = o.Resolve(ShipmentRef("shp_1"))
	require.True(t, ok)
	assert.True(t, dec("4").Equal(c.Amount))

	_, ok = o.Resolve(LineItemRef("li_404"))
	assert.False(t, ok)
	_, ok = o.Resolve(OrderRef("R999999999"))
	assert.False(t, ok)
}

// ============================================
// Engine Tests
// ============================================

func TestNewAdjustmentEngine_DuplicateOriginator(t *testing.T) {
	_, err := NewAdjustmentEngine(sequentialIDs(), money.MustCurrency("USD"),
		percentRule{id: "tax"}, percentRule{id: "tax"})

	assert.ErrorIs(t, err, ErrDuplicateOriginator)
}

func TestAdjustmentEngine_CreateRoundsToCurrency(t *testing.T) {
	rule := percentRule{id: "tax", rate: dec("0.0825")}
	e := newTestEngine(t, rule)
	o := orderWithItems()
	m := NewMutation(o, machineNow)

	adj, err := e.Create(context.Background(), m, rule, OrderRef(o.Number), OrderRef(o.Number))

	require.NoError(t, err)
	// 25.55 * 0.0825 = 2.107875
	assert.Equal(t, "2.11", adj.Amount.StringFixed(2))
	assert.Equal(t, "tax", adj.OriginatorID)
	assert.Len(t, o.Adjustments, 1)
}

func TestAdjustmentEngine_Reconcile(t *testing.T) {
	tax := percentRule{id: "tax", rate: dec("0.10")}
	bulk := percentRule{id: "bulk", rate: dec("-0.20"), minItems: 3}
	e := newTestEngine(t, tax, bulk)

	o := orderWithItems()
	o.Adjustments = []Adjustment{
		{ID: "adj_tax", OriginatorID: "tax", Amount: dec("2.56"), Target: OrderRef(o.Number), Source: OrderRef(o.Number)},
		{ID: "adj_bulk", OriginatorID: "bulk", Amount: dec("-5.11"), Target: OrderRef(o.Number), Source: OrderRef(o.Number)},
		{ID: "adj_gone", OriginatorID: "retired", Amount: dec("-1"), Target: OrderRef(o.Number), Source: OrderRef(o.Number)},
		{ID: "adj_li", OriginatorID: "tax", Amount: dec("0.56"), Target: LineItemRef("li_2"), Source: LineItemRef("li_2")},
	}
	// drop a unit and the second line item: bulk becomes ineligible, adj_li loses its source
	o.LineItems = o.LineItems[:1]
	o.LineItems[0].Quantity = 2

	m := NewMutation(o, machineNow)
	require.NoError(t, e.Reconcile(context.Background(), m))

	require.Len(t, o.Adjustments, 1)
	assert.Equal(t, "adj_tax", o.Adjustments[0].ID)
	assert.Equal(t, "2.00", o.Adjustments[0].Amount.StringFixed(2))

	var destroyed, changed int
	for _, c := range m.Changes() {
		switch c.EventType {
		case EventAdjustmentDestroyed:
			destroyed++
		case EventAdjustmentAmountChanged:
			changed++
		}
	}
	assert.Equal(t, 3, destroyed)
	assert.Equal(t, 1, changed)
}

func TestAdjustmentEngine_ReconcileUnchangedRecordsNothing(t *testing.T) {
	tax := percentRule{id: "tax", rate: dec("0.10")}
	e := newTestEngine(t, tax)
	o := orderWithItems()
	o.Adjustments = []Adjustment{
		{ID: "adj_tax", OriginatorID: "tax", Amount: dec("2.56"), Target: OrderRef(o.Number), Source: OrderRef(o.Number)},
	}
	m := NewMutation(o, machineNow)

	require.NoError(t, e.Reconcile(context.Background(), m))

	assert.Empty(t, m.Changes())
}

func TestAdjustmentEngine_Apply(t *testing.T) {
	tax := percentRule{id: "tax", rate: dec("0.10")}
	bulk := percentRule{id: "bulk", rate: dec("-0.20"), minItems: 10}
	e := newTestEngine(t, tax, bulk)
	o := orderWithItems()
	ctx := context.Background()

	applied, err := e.Apply(ctx, NewMutation(o, machineNow), "tax")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = e.Apply(ctx, NewMutation(o, machineNow), "tax")
	require.NoError(t, err)
	assert.False(t, applied, "one adjustment per originator on the order")

	applied, err = e.Apply(ctx, NewMutation(o, machineNow), "bulk")
	require.NoError(t, err)
	assert.False(t, applied, "not eligible")

	_, err = e.Apply(ctx, NewMutation(o, machineNow), "nope")
	assert.ErrorIs(t, err, ErrUnknownOriginator)

	assert.Len(t, o.Adjustments, 1)
}
