package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated            = "OrderCreated"
	EventLineItemAdded           = "LineItemAdded"
	EventLineItemQuantityChanged = "LineItemQuantityChanged"
	EventLineItemRemoved         = "LineItemRemoved"
	EventOrderStateChanged       = "OrderStateChanged"
	EventOrderStateRestored      = "OrderStateRestored"
	EventResumeEntryRetracted    = "ResumeEntryRetracted"
	EventOrderCompleted          = "OrderCompleted"
	EventTotalsRecomputed        = "TotalsRecomputed"
	EventAdjustmentCreated       = "AdjustmentCreated"
	EventAdjustmentAmountChanged = "AdjustmentAmountChanged"
	EventAdjustmentDestroyed     = "AdjustmentDestroyed"
	EventPaymentRecorded         = "PaymentRecorded"
	EventPaymentStateChanged     = "PaymentStateChanged"
	EventShipmentsProposed       = "ShipmentsProposed"
	EventShipmentStateChanged    = "ShipmentStateChanged"
	EventShipmentCostChanged     = "ShipmentCostChanged"
	EventInventoryUnitsAllocated = "InventoryUnitsAllocated"
	EventInventoryUnitsAttached  = "InventoryUnitsAttached"
	EventInventoryUnitsRestocked = "InventoryUnitsRestocked"
	EventReturnAuthorized        = "ReturnAuthorized"
	EventReturnReceived          = "ReturnReceived"
	EventUserAssociated          = "UserAssociated"
	EventSpecialInstructionsSet  = "SpecialInstructionsSet"
	EventShipAddressSet          = "ShipAddressSet"
	EventOrderDeleted            = "OrderDeleted"
)

type OrderCreated struct {
	Number    string    `json:"number"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

type LineItemAdded struct {
	LineItem LineItem  `json:"line_item"`
	AddedAt  time.Time `json:"added_at"`
}

type LineItemQuantityChanged struct {
	LineItemID string    `json:"line_item_id"`
	Quantity   int       `json:"quantity"`
	ChangedAt  time.Time `json:"changed_at"`
}

type LineItemRemoved struct {
	LineItemID string    `json:"line_item_id"`
	RemovedAt  time.Time `json:"removed_at"`
}

// OrderStateChanged is one entry of the transition history.
type OrderStateChanged struct {
	From  State     `json:"from"`
	To    State     `json:"to"`
	Event Event     `json:"event"`
	At    time.Time `json:"at"`
}

// OrderStateRestored moves the order back to a state taken from its history.
// It is a compensation and does not add a history entry.
type OrderStateRestored struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// ResumeEntryRetracted drops the trailing resume entry from the derived history.
type ResumeEntryRetracted struct {
	At time.Time `json:"at"`
}

type OrderCompleted struct {
	CompletedAt time.Time `json:"completed_at"`
}

// TotalsRecomputed carries all four totals so they change together.
type TotalsRecomputed struct {
	ItemTotal       decimal.Decimal `json:"item_total"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	PaymentTotal    decimal.Decimal `json:"payment_total"`
	Total           decimal.Decimal `json:"total"`
	RecomputedAt    time.Time       `json:"recomputed_at"`
}

type AdjustmentCreated struct {
	Adjustment Adjustment `json:"adjustment"`
}

type AdjustmentAmountChanged struct {
	AdjustmentID string          `json:"adjustment_id"`
	Amount       decimal.Decimal `json:"amount"`
	ChangedAt    time.Time       `json:"changed_at"`
}

type AdjustmentDestroyed struct {
	AdjustmentID string    `json:"adjustment_id"`
	Reason       string    `json:"reason"`
	DestroyedAt  time.Time `json:"destroyed_at"`
}

type PaymentRecorded struct {
	Payment Payment `json:"payment"`
}

type PaymentStateChanged struct {
	PaymentID string       `json:"payment_id"`
	State     PaymentState `json:"state"`
	ChangedAt time.Time    `json:"changed_at"`
}

// ShipmentsProposed replaces the order's shipments with freshly packed ones.
type ShipmentsProposed struct {
	Shipments  []Shipment `json:"shipments"`
	ProposedAt time.Time  `json:"proposed_at"`
}

type ShipmentStateChanged struct {
	ShipmentID string        `json:"shipment_id"`
	State      ShipmentState `json:"state"`
	ChangedAt  time.Time     `json:"changed_at"`
}

type ShipmentCostChanged struct {
	ShipmentID string          `json:"shipment_id"`
	Cost       decimal.Decimal `json:"cost"`
	ChangedAt  time.Time       `json:"changed_at"`
}

type InventoryUnitsAllocated struct {
	Units       []InventoryUnit `json:"units"`
	AllocatedAt time.Time       `json:"allocated_at"`
}

// InventoryUnitsAttached moves units onto a shipment.
type InventoryUnitsAttached struct {
	ShipmentID string    `json:"shipment_id"`
	UnitIDs    []string  `json:"unit_ids"`
	AttachedAt time.Time `json:"attached_at"`
}

// InventoryUnitsRestocked removes units whose stock went back to its location.
type InventoryUnitsRestocked struct {
	UnitIDs     []string  `json:"unit_ids"`
	RestockedAt time.Time `json:"restocked_at"`
}

type ReturnAuthorized struct {
	ReturnAuthorization ReturnAuthorization `json:"return_authorization"`
}

type ReturnReceived struct {
	ReturnAuthorizationID string    `json:"return_authorization_id"`
	ReceivedAt            time.Time `json:"received_at"`
}

type UserAssociated struct {
	UserID       string    `json:"user_id"`
	AssociatedAt time.Time `json:"associated_at"`
}

type SpecialInstructionsSet struct {
	Instructions string    `json:"instructions"`
	SetAt        time.Time `json:"set_at"`
}

type ShipAddressSet struct {
	Address Address   `json:"address"`
	SetAt   time.Time `json:"set_at"`
}

type OrderDeleted struct {
	DeletedAt time.Time `json:"deleted_at"`
}
