package query

import (
	"golang.org/x/text/language"

	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/readmodel"
)

// stateLister is implemented by read stores that can filter orders by state
// themselves.
type stateLister interface {
	ListOrdersByState(state string) []*readmodel.OrderReadModel
}

type Handler struct {
	readStore store.ReadStoreInterface
	formatter *money.Formatter
}

// NewHandler builds a query handler. A nil formatter renders US dollars.
func NewHandler(readStore store.ReadStoreInterface, formatter *money.Formatter) *Handler {
	if formatter == nil {
		formatter = money.NewFormatter(language.AmericanEnglish, money.MustCurrency("USD"))
	}
	return &Handler{readStore: readStore, formatter: formatter}
}

// Orders
func (h *Handler) GetOrder(number string) (*readmodel.OrderReadModel, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionOrders, number)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.OrderReadModel), true
}

// GetOrderSummary renders the order's totals with the shop's currency format.
func (h *Handler) GetOrderSummary(number string) (*OrderSummary, bool) {
	o, ok := h.GetOrder(number)
	if !ok {
		return nil, false
	}
	return &OrderSummary{
		Order:              o,
		ItemTotal:          h.formatter.Format(o.ItemTotal),
		AdjustmentTotal:    h.formatter.Format(o.AdjustmentTotal),
		PaymentTotal:       h.formatter.Format(o.PaymentTotal),
		Total:              h.formatter.Format(o.Total),
		OutstandingBalance: h.formatter.Format(o.OutstandingBalance()),
	}, true
}

func (h *Handler) ListOrdersByUser(userID string) []*readmodel.OrderReadModel {
	orders := make([]*readmodel.OrderReadModel, 0)
	for _, o := range h.ListAllOrders() {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders
}

// ListOrdersByState returns the orders currently in state.
func (h *Handler) ListOrdersByState(state string) []*readmodel.OrderReadModel {
	if sl, ok := h.readStore.(stateLister); ok {
		return sl.ListOrdersByState(state)
	}
	orders := make([]*readmodel.OrderReadModel, 0)
	for _, o := range h.ListAllOrders() {
		if o.State == state {
			orders = append(orders, o)
		}
	}
	return orders
}

// ListAllOrders returns all orders (for admin use)
func (h *Handler) ListAllOrders() []*readmodel.OrderReadModel {
	items := h.readStore.GetAll(readmodel.CollectionOrders)
	orders := make([]*readmodel.OrderReadModel, 0, len(items))
	for _, item := range items {
		orders = append(orders, item.(*readmodel.OrderReadModel))
	}
	return orders
}

// Catalog
func (h *Handler) GetVariant(id string) (*readmodel.VariantReadModel, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionVariants, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.VariantReadModel), true
}

func (h *Handler) ListVariants() []*readmodel.VariantReadModel {
	items := h.readStore.GetAll(readmodel.CollectionVariants)
	variants := make([]*readmodel.VariantReadModel, 0, len(items))
	for _, item := range items {
		variants = append(variants, item.(*readmodel.VariantReadModel))
	}
	return variants
}

// Stock locations
func (h *Handler) ListStockLocations(activeOnly bool) []*readmodel.StockLocationReadModel {
	items := h.readStore.GetAll(readmodel.CollectionLocations)
	locations := make([]*readmodel.StockLocationReadModel, 0, len(items))
	for _, item := range items {
		l := item.(*readmodel.StockLocationReadModel)
		if activeOnly && !l.Active {
			continue
		}
		locations = append(locations, l)
	}
	return locations
}

// Inventory
func (h *Handler) GetStockItem(stockLocationID, variantID string) (*readmodel.InventoryReadModel, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionInventory, stockLocationID+"/"+variantID)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.InventoryReadModel), true
}

// GetVariantStock sums a variant's stock over every location that carries it.
func (h *Handler) GetVariantStock(variantID string) VariantStock {
	vs := VariantStock{VariantID: variantID, Locations: []*readmodel.InventoryReadModel{}}
	for _, item := range h.readStore.GetAll(readmodel.CollectionInventory) {
		inv := item.(*readmodel.InventoryReadModel)
		if inv.VariantID != variantID {
			continue
		}
		vs.CountOnHand += inv.CountOnHand
		vs.Backordered += inv.Backordered
		vs.Locations = append(vs.Locations, inv)
	}
	return vs
}

// Users
func (h *Handler) GetUser(id string) (*readmodel.UserReadModel, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionUsers, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserReadModel), true
}
