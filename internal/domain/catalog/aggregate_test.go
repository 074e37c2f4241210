package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badogar/solidus/internal/infrastructure/store/mocks"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCatalogService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	n := 0
	service := NewService(eventStore, func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	})
	return service, eventStore
}

// ============================================
// Create Variant Tests
// ============================================

func TestService_Create_ValidVariant(t *testing.T) {
	service, eventStore := newTestCatalogService()

	v, err := service.Create(context.Background(), " TS-RED-M ", "Red T-Shirt (M)", dec("19.99"), dec("0.25"))

	require.NoError(t, err)
	assert.Equal(t, "var_1", v.ID)
	assert.Equal(t, "TS-RED-M", v.SKU)
	assert.Equal(t, "19.99", v.Price.String())
	assert.Equal(t, 1, v.Version)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventVariantCreated, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		sku     string
		vname   string
		price   string
		weight  string
		wantErr error
	}{
		{"missing sku", "", "Mug", "5", "0.3", ErrInvalidSKU},
		{"missing name", "MG", " ", "5", "0.3", ErrInvalidName},
		{"negative price", "MG", "Mug", "-1", "0.3", ErrInvalidPrice},
		{"negative weight", "MG", "Mug", "5", "-0.3", ErrInvalidWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, eventStore := newTestCatalogService()

			v, err := service.Create(context.Background(), tt.sku, tt.vname, dec(tt.price), dec(tt.weight))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, v)
			assert.Empty(t, eventStore.AppendCalls)
		})
	}
}

func TestService_Create_FreeVariantAllowed(t *testing.T) {
	service, _ := newTestCatalogService()

	v, err := service.Create(context.Background(), "GIFT", "Gift wrap", decimal.Zero, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, v.Price.IsZero())
}

// ============================================
// Price and Delete Tests
// ============================================

func TestService_ChangePrice(t *testing.T) {
	service, eventStore := newTestCatalogService()
	ctx := context.Background()
	v, _ := service.Create(ctx, "MG", "Mug", dec("5.00"), dec("0.3"))

	v, err := service.ChangePrice(ctx, v.ID, dec("6.50"))
	require.NoError(t, err)
	assert.Equal(t, "6.50", v.Price.StringFixed(2))
	assert.Equal(t, 2, v.Version)

	// unchanged price appends nothing
	_, err = service.ChangePrice(ctx, v.ID, dec("6.5"))
	require.NoError(t, err)
	assert.Len(t, eventStore.AppendCalls, 2)

	_, err = service.ChangePrice(ctx, "var_404", dec("1"))
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestService_Delete(t *testing.T) {
	service, _ := newTestCatalogService()
	ctx := context.Background()
	v, _ := service.Create(ctx, "MG", "Mug", dec("5.00"), dec("0.3"))

	require.NoError(t, service.Delete(ctx, v.ID))

	_, err := service.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrVariantNotFound)
	_, err = service.Variant(ctx, v.ID)
	assert.ErrorIs(t, err, ErrVariantNotFound)
	assert.ErrorIs(t, service.Delete(ctx, v.ID), ErrVariantNotFound)
}

func TestService_Variant_ForOrders(t *testing.T) {
	service, _ := newTestCatalogService()
	ctx := context.Background()
	v, _ := service.Create(ctx, "MG", "Mug", dec("5.00"), dec("0.3"))

	info, err := service.Variant(ctx, v.ID)

	require.NoError(t, err)
	assert.Equal(t, v.ID, info.ID)
	assert.Equal(t, "MG", info.SKU)
	assert.Equal(t, "Mug", info.Name)
	assert.True(t, info.Price.Equal(dec("5")))
	assert.True(t, info.Weight.Equal(dec("0.3")))
}
