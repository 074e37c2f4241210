package command

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/order"
)

// Command types carried in an Envelope
const (
	TypeCreateOrder            = "CreateOrder"
	TypeAddVariant             = "AddVariant"
	TypeSetQuantity            = "SetQuantity"
	TypeRemoveLineItem         = "RemoveLineItem"
	TypeFireEvent              = "FireEvent"
	TypeResumeOrder            = "ResumeOrder"
	TypeAuthorizeReturn        = "AuthorizeReturn"
	TypeRecordPayment          = "RecordPayment"
	TypeUpdatePaymentState     = "UpdatePaymentState"
	TypeShipShipment           = "ShipShipment"
	TypeApplyPromotion         = "ApplyPromotion"
	TypeAssociateUser          = "AssociateUser"
	TypeSetSpecialInstructions = "SetSpecialInstructions"
	TypeSetShipAddress         = "SetShipAddress"
	TypeDeleteOrder            = "DeleteOrder"
	TypeCreateVariant          = "CreateVariant"
	TypeChangeVariantPrice     = "ChangeVariantPrice"
	TypeCreateStockLocation    = "CreateStockLocation"
	TypeAddStock               = "AddStock"
	TypeRegisterUser           = "RegisterUser"
)

// Envelope is the wire form of a command on the command topic. Order
// commands are keyed by order number.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope wraps cmd for publishing.
func NewEnvelope(commandType string, cmd any) (Envelope, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", commandType, err)
	}
	return Envelope{Type: commandType, Payload: payload}, nil
}

// Order Commands
type CreateOrder struct {
	UserID string `json:"user_id"`
}

type AddVariant struct {
	OrderNumber string `json:"order_number"`
	VariantID   string `json:"variant_id"`
	Quantity    int    `json:"quantity"`
}

type SetQuantity struct {
	OrderNumber string `json:"order_number"`
	LineItemID  string `json:"line_item_id"`
	Quantity    int    `json:"quantity"`
}

type RemoveLineItem struct {
	OrderNumber string `json:"order_number"`
	LineItemID  string `json:"line_item_id"`
}

// FireEvent sends a state machine event (checkout, next, cancel, return) to an order.
type FireEvent struct {
	OrderNumber string      `json:"order_number"`
	Event       order.Event `json:"event"`
}

// ResumeOrder fires resume and then restores the pre-cancel state.
type ResumeOrder struct {
	OrderNumber string `json:"order_number"`
}

type AuthorizeReturn struct {
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	UnitIDs     []string        `json:"unit_ids"`
}

type DeleteOrder struct {
	OrderNumber string `json:"order_number"`
}

// Payment and fulfilment Commands
type RecordPayment struct {
	OrderNumber string             `json:"order_number"`
	Amount      decimal.Decimal    `json:"amount"`
	State       order.PaymentState `json:"state"`
}

type UpdatePaymentState struct {
	OrderNumber string             `json:"order_number"`
	PaymentID   string             `json:"payment_id"`
	State       order.PaymentState `json:"state"`
}

type ShipShipment struct {
	OrderNumber string `json:"order_number"`
	ShipmentID  string `json:"shipment_id"`
}

type ApplyPromotion struct {
	OrderNumber  string `json:"order_number"`
	OriginatorID string `json:"originator_id"`
}

type AssociateUser struct {
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
}

type SetSpecialInstructions struct {
	OrderNumber  string `json:"order_number"`
	Instructions string `json:"instructions"`
}

type SetShipAddress struct {
	OrderNumber string `json:"order_number"`
	Country     string `json:"country"`
	State       string `json:"state,omitempty"`
}

// Catalog and stock Commands
type CreateVariant struct {
	SKU    string          `json:"sku"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Weight decimal.Decimal `json:"weight"`
}

type ChangeVariantPrice struct {
	VariantID string          `json:"variant_id"`
	Price     decimal.Decimal `json:"price"`
}

type CreateStockLocation struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Priority int    `json:"priority"`
}

type AddStock struct {
	StockLocationID string `json:"stock_location_id"`
	VariantID       string `json:"variant_id"`
	Quantity        int    `json:"quantity"`
}

// User Commands
type RegisterUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
