package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order: not found")

	// ErrInvalidTransition means the event is not defined for the current state.
	ErrInvalidTransition = errors.New("order: invalid transition")
	// ErrGuardFailed means the event is defined but its precondition does not hold.
	ErrGuardFailed = errors.New("order: guard failed")

	ErrRecomputationFailed    = errors.New("order: totals recomputation failed")
	ErrConcurrentModification = errors.New("order: concurrent modification")

	ErrInvalidQuantity     = errors.New("order: quantity must be positive")
	ErrLineItemNotFound    = errors.New("order: line item not found")
	ErrPaymentNotFound     = errors.New("order: payment not found")
	ErrShipmentNotFound    = errors.New("order: shipment not found")
	ErrUnknownChild        = errors.New("order: unknown child entity")
	ErrUnknownOriginator   = errors.New("order: unknown adjustment originator")
	ErrDuplicateOriginator = errors.New("order: originator already registered")
	ErrNotEditable         = errors.New("order: line items can only change before completion")
	ErrAlreadyRegistered   = errors.New("order: already associated with a registered user")
	ErrInvalidAmount       = errors.New("order: amount must be positive")
	ErrNotShippable        = errors.New("order: shipment cannot be shipped")
	ErrInvalidAddress      = errors.New("order: ship address needs a country")
)

// TransitionError reports a rejected state machine event. It matches
// ErrInvalidTransition or ErrGuardFailed with errors.Is.
type TransitionError struct {
	Event  Event
	From   State
	Reason error
	// Cause is the guard's own explanation, if any.
	Cause error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%v: cannot %s from %s", e.Reason, e.Event, e.From)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}
