package order

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

const AggregateType = "Order"

// State is a checkout state.
type State string

const (
	StateCart           State = "cart"
	StateAddress        State = "address"
	StateDelivery       State = "delivery"
	StatePayment        State = "payment"
	StateConfirm        State = "confirm"
	StateComplete       State = "complete"
	StateCanceled       State = "canceled"
	StateAwaitingReturn State = "awaiting_return"
	StateReturned       State = "returned"
	StateResumed        State = "resumed"
)

// RefKind names the entities an adjustment can point at.
type RefKind string

const (
	RefOrder    RefKind = "order"
	RefShipment RefKind = "shipment"
	RefLineItem RefKind = "line_item"
)

// Reference points at the order itself or one of its children.
type Reference struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}

func OrderRef(number string) Reference { return Reference{Kind: RefOrder, ID: number} }
func ShipmentRef(id string) Reference  { return Reference{Kind: RefShipment, ID: id} }
func LineItemRef(id string) Reference  { return Reference{Kind: RefLineItem, ID: id} }

func (r Reference) String() string { return string(r.Kind) + ":" + r.ID }

// Calculable is what a calculator sees of a resolved reference.
type Calculable struct {
	Ref      Reference
	Amount   decimal.Decimal
	Quantity int
}

type LineItem struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Weight    decimal.Decimal `json:"weight"`
}

// Amount is price times quantity.
func (l LineItem) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Adjustment is a signed delta against a target, produced by an originator.
type Adjustment struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Amount       decimal.Decimal `json:"amount"`
	Target       Reference       `json:"target"`
	Source       Reference       `json:"source"`
	OriginatorID string          `json:"originator_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PaymentState string

const (
	PaymentCheckout   PaymentState = "checkout"
	PaymentPending    PaymentState = "pending"
	PaymentProcessing PaymentState = "processing"
	PaymentCompleted  PaymentState = "completed"
	PaymentFailed     PaymentState = "failed"
	PaymentVoid       PaymentState = "void"
)

type Payment struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	State     PaymentState    `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Finalized reports whether the payment counts towards the payment total.
func (p Payment) Finalized() bool { return p.State == PaymentCompleted }

type ShipmentState string

const (
	ShipmentPending  ShipmentState = "pending"
	ShipmentReady    ShipmentState = "ready"
	ShipmentShipped  ShipmentState = "shipped"
	ShipmentCanceled ShipmentState = "canceled"
)

type Shipment struct {
	ID              string          `json:"id"`
	StockLocationID string          `json:"stock_location_id"`
	State           ShipmentState   `json:"state"`
	Cost            decimal.Decimal `json:"cost"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
}

type UnitState string

const (
	UnitOnHand      UnitState = "on_hand"
	UnitBackordered UnitState = "backordered"
	UnitShipped     UnitState = "shipped"
	UnitReturned    UnitState = "returned"
)

type InventoryUnit struct {
	ID              string    `json:"id"`
	VariantID       string    `json:"variant_id"`
	ShipmentID      string    `json:"shipment_id,omitempty"`
	StockLocationID string    `json:"stock_location_id"`
	State           UnitState `json:"state"`
	Restockable     bool      `json:"restockable"`
}

type ReturnState string

const (
	ReturnAuthorizedState ReturnState = "authorized"
	ReturnReceivedState   ReturnState = "received"
)

type ReturnAuthorization struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	UnitIDs   []string        `json:"unit_ids"`
	State     ReturnState     `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Address is the part of a ship address that zones match on: an ISO 3166-1
// country code and an optional ISO 3166-2 state code.
type Address struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
}

// StateChange is one entry of the transition history.
type StateChange struct {
	From  State     `json:"from"`
	To    State     `json:"to"`
	Event Event     `json:"event"`
	At    time.Time `json:"at"`
}

// Order is the checkout aggregate. Its number doubles as the aggregate ID.
type Order struct {
	Number               string                `json:"number"`
	State                State                 `json:"state"`
	UserID               string                `json:"user_id"`
	Currency             string                `json:"currency"`
	ItemTotal            decimal.Decimal       `json:"item_total"`
	AdjustmentTotal      decimal.Decimal       `json:"adjustment_total"`
	PaymentTotal         decimal.Decimal       `json:"payment_total"`
	Total                decimal.Decimal       `json:"total"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	SpecialInstructions  string                `json:"special_instructions,omitempty"`
	ShipAddress          *Address              `json:"ship_address,omitempty"`
	LineItems            []LineItem            `json:"line_items"`
	Adjustments          []Adjustment          `json:"adjustments"`
	Payments             []Payment             `json:"payments"`
	Shipments            []Shipment            `json:"shipments"`
	InventoryUnits       []InventoryUnit       `json:"inventory_units"`
	ReturnAuthorizations []ReturnAuthorization `json:"return_authorizations"`
	History              []StateChange         `json:"history"`
	Deleted              bool                  `json:"deleted,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	Version              int                   `json:"version"`
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.Number }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

// Complete reports whether checkout finished.
func (o *Order) Complete() bool { return o.CompletedAt != nil }

// ItemCount is the number of units across line items.
func (o *Order) ItemCount() int {
	n := 0
	for _, li := range o.LineItems {
		n += li.Quantity
	}
	return n
}

func (o *Order) Empty() bool { return o.ItemCount() == 0 }

// OutstandingBalance is what the customer still owes.
func (o *Order) OutstandingBalance() decimal.Decimal {
	return o.Total.Sub(o.PaymentTotal)
}

// Paid reports whether finalized payments cover the total.
func (o *Order) Paid() bool {
	hasFinalized := slices.ContainsFunc(o.Payments, Payment.Finalized)
	return hasFinalized && o.PaymentTotal.GreaterThanOrEqual(o.Total)
}

// PrimaryShipment is the most recently proposed shipment, or nil.
func (o *Order) PrimaryShipment() *Shipment {
	if len(o.Shipments) == 0 {
		return nil
	}
	return &o.Shipments[len(o.Shipments)-1]
}

// Contains reports whether a line item for variantID exists.
func (o *Order) Contains(variantID string) bool {
	return o.lineItemForVariant(variantID) != nil
}

// Totals returns the persisted totals.
func (o *Order) Totals() Totals {
	return Totals{
		ItemTotal:       o.ItemTotal,
		AdjustmentTotal: o.AdjustmentTotal,
		PaymentTotal:    o.PaymentTotal,
		Total:           o.Total,
	}
}

// LastStateChange returns the newest history entry.
func (o *Order) LastStateChange() (StateChange, bool) {
	if len(o.History) == 0 {
		return StateChange{}, false
	}
	return o.History[len(o.History)-1], true
}

// Resolve looks up what ref points at.
func (o *Order) Resolve(ref Reference) (Calculable, bool) {
	switch ref.Kind {
	case RefOrder:
		if ref.ID != o.Number {
			return Calculable{}, false
		}
		return Calculable{Ref: ref, Amount: money.Sum(o.LineItems, LineItem.Amount), Quantity: o.ItemCount()}, true
	case RefLineItem:
		if li := o.lineItem(ref.ID); li != nil {
			return Calculable{Ref: ref, Amount: li.Amount(), Quantity: li.Quantity}, true
		}
	case RefShipment:
		if s := o.shipment(ref.ID); s != nil {
			return Calculable{Ref: ref, Amount: s.Cost, Quantity: o.unitsOn(s.ID)}, true
		}
	}
	return Calculable{}, false
}

// AdjustmentsFrom lists the adjustments an originator produced for target.
func (o *Order) AdjustmentsFrom(originatorID string, target Reference) []Adjustment {
	var out []Adjustment
	for _, a := range o.Adjustments {
		if a.OriginatorID == originatorID && a.Target == target {
			out = append(out, a)
		}
	}
	return out
}

func (o *Order) lineItem(id string) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].ID == id {
			return &o.LineItems[i]
		}
	}
	return nil
}

func (o *Order) lineItemForVariant(variantID string) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].VariantID == variantID {
			return &o.LineItems[i]
		}
	}
	return nil
}

func (o *Order) shipment(id string) *Shipment {
	for i := range o.Shipments {
		if o.Shipments[i].ID == id {
			return &o.Shipments[i]
		}
	}
	return nil
}

func (o *Order) payment(id string) *Payment {
	for i := range o.Payments {
		if o.Payments[i].ID == id {
			return &o.Payments[i]
		}
	}
	return nil
}

func (o *Order) adjustment(id string) *Adjustment {
	for i := range o.Adjustments {
		if o.Adjustments[i].ID == id {
			return &o.Adjustments[i]
		}
	}
	return nil
}

func (o *Order) returnAuthorization(id string) *ReturnAuthorization {
	for i := range o.ReturnAuthorizations {
		if o.ReturnAuthorizations[i].ID == id {
			return &o.ReturnAuthorizations[i]
		}
	}
	return nil
}

func (o *Order) unitsOn(shipmentID string) int {
	n := 0
	for _, u := range o.InventoryUnits {
		if u.ShipmentID == shipmentID {
			n++
		}
	}
	return n
}

// shipmentFor picks the shipment leaving from a stock location, falling back
// to the primary shipment.
func (o *Order) shipmentFor(stockLocationID string) string {
	for _, s := range o.Shipments {
		if s.StockLocationID == stockLocationID {
			return s.ID
		}
	}
	if s := o.PrimaryShipment(); s != nil {
		return s.ID
	}
	return ""
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	if err := o.apply(event.EventType, event.Data, event.Timestamp); err != nil {
		return err
	}
	o.Version = event.Version
	return nil
}

func (o *Order) apply(eventType string, raw json.RawMessage, at time.Time) error {
	switch eventType {
	case EventOrderCreated:
		var data OrderCreated
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.Number = data.Number
		o.UserID = data.UserID
		o.Currency = data.Currency
		o.State = StateCart
		o.CreatedAt = data.CreatedAt
	case EventLineItemAdded:
		var data LineItemAdded
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.LineItems = append(o.LineItems, data.LineItem)
	case EventLineItemQuantityChanged:
		var data LineItemQuantityChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		if li := o.lineItem(data.LineItemID); li != nil {
			li.Quantity = data.Quantity
		}
	case EventLineItemRemoved:
		var data LineItemRemoved
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.LineItems = slices.DeleteFunc(o.LineItems, func(li LineItem) bool { return li.ID == data.LineItemID })
	case EventOrderStateChanged:
		var data OrderStateChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.State = data.To
		o.History = append(o.History, StateChange(data))
	case EventOrderStateRestored:
		var data OrderStateRestored
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.State = data.To
	case EventResumeEntryRetracted:
		if n := len(o.History); n > 0 && o.History[n-1].Event == Resume {
			o.History = o.History[:n-1]
		}
	case EventOrderCompleted:
		var data OrderCompleted
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		completedAt := data.CompletedAt
		o.CompletedAt = &completedAt
	case EventTotalsRecomputed:
		var data TotalsRecomputed
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.ItemTotal = data.ItemTotal
		o.AdjustmentTotal = data.AdjustmentTotal
		o.PaymentTotal = data.PaymentTotal
		o.Total = data.Total
	case EventAdjustmentCreated:
		var data AdjustmentCreated
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.Adjustments = append(o.Adjustments, data.Adjustment)
	case EventAdjustmentAmountChanged:
		var data AdjustmentAmountChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		if a := o.adjustment(data.AdjustmentID); a != nil {
			a.Amount = data.Amount
		}
	case EventAdjustmentDestroyed:
		var data AdjustmentDestroyed
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.Adjustments = slices.DeleteFunc(o.Adjustments, func(a Adjustment) bool { return a.ID == data.AdjustmentID })
	case EventPaymentRecorded:
		var data PaymentRecorded
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.Payments = append(o.Payments, data.Payment)
	case EventPaymentStateChanged:
		var data PaymentStateChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		if p := o.payment(data.PaymentID); p != nil {
			p.State = data.State
		}
	case EventShipmentsProposed:
		var data ShipmentsProposed
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.Shipments = data.Shipments
	case EventShipmentCostChanged:
		var data ShipmentCostChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		s := o.shipment(data.ShipmentID)
		if s == nil {
			return fmt.Errorf("%w: shipment %s", ErrUnknownChild, data.ShipmentID)
		}
		s.Cost = data.Cost
	case EventShipmentStateChanged:
		var data ShipmentStateChanged
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		s := o.shipment(data.ShipmentID)
		if s == nil {
			return fmt.Errorf("%w: shipment %s", ErrUnknownChild, data.ShipmentID)
		}
		s.State = data.State
		if data.State == ShipmentShipped {
			shippedAt := data.ChangedAt
			s.ShippedAt = &shippedAt
			for i := range o.InventoryUnits {
				if u := &o.InventoryUnits[i]; u.ShipmentID == s.ID {
					u.State = UnitShipped
					u.Restockable = false
				}
			}
		}
	case EventInventoryUnitsAllocated:
		var data InventoryUnitsAllocated
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.InventoryUnits = append(o.InventoryUnits, data.Units...)
	case EventInventoryUnitsAttached:
		var data InventoryUnitsAttached
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		for i := range o.InventoryUnits {
			if slices.Contains(data.UnitIDs, o.InventoryUnits[i].ID) {
				o.InventoryUnits[i].ShipmentID = data.ShipmentID
			}
		}
	case EventInventoryUnitsRestocked:
		var data InventoryUnitsRestocked
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.InventoryUnits = slices.DeleteFunc(o.InventoryUnits, func(u InventoryUnit) bool {
			return slices.Contains(data.UnitIDs, u.ID)
		})
	case EventReturnAuthorized:
		var data ReturnAuthorized
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.ReturnAuthorizations = append(o.ReturnAuthorizations, data.ReturnAuthorization)
	case EventReturnReceived:
		var data ReturnReceived
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		ra := o.returnAuthorization(data.ReturnAuthorizationID)
		if ra == nil {
			return fmt.Errorf("%w: return authorization %s", ErrUnknownChild, data.ReturnAuthorizationID)
		}
		ra.State = ReturnReceivedState
		for i := range o.InventoryUnits {
			if u := &o.InventoryUnits[i]; slices.Contains(ra.UnitIDs, u.ID) {
				u.State = UnitReturned
				u.Restockable = true
			}
		}
	case EventUserAssociated:
		var data UserAssociated
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.UserID = data.UserID
	case EventSpecialInstructionsSet:
		var data SpecialInstructionsSet
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		o.SpecialInstructions = data.Instructions
	case EventShipAddressSet:
		var data ShipAddressSet
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		addr := data.Address
		o.ShipAddress = &addr
	case EventOrderDeleted:
		o.Deleted = true
	default:
		return fmt.Errorf("order: unknown event type %q", eventType)
	}
	if !at.IsZero() {
		o.UpdatedAt = at
	}
	return nil
}
