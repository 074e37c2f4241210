package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Event is a state machine event.
type Event string

const (
	Checkout        Event = "checkout"
	Next            Event = "next"
	Cancel          Event = "cancel"
	AuthorizeReturn Event = "authorize_return"
	Return          Event = "return"
	Resume          Event = "resume"
)

// Guard returns nil when the transition may proceed.
type Guard func(o *Order) error

// Action runs after the state change is recorded, inside the same mutation.
type Action func(ctx context.Context, m *Mutation) error

// Hooks are the side effects the machine triggers. Nil hooks are skipped.
type Hooks struct {
	OnDelivery Action // proposes shipments
	OnComplete Action // allocates inventory
	OnCancel   Action // restocks and resets shipments
	OnReturn   Action // receives returns
}

type rule struct {
	event   Event
	from    []State // nil matches any state
	to      State
	guard   Guard
	actions []Action
}

func (r rule) matches(event Event, state State) bool {
	return r.event == event && (r.from == nil || slices.Contains(r.from, state))
}

// Machine is the checkout state machine as a transition table.
type Machine struct {
	rules []rule
}

var (
	errAlreadyCanceled = errors.New("order is already canceled")
	errNoPriorState    = errors.New("no prior state to resume to")
)

func allowCancel(o *Order) error {
	if o.State == StateCanceled {
		return errAlreadyCanceled
	}
	return nil
}

// allowResume requires a last history entry that remembers where it came
// from; that entry is the one restore goes back to once resume is recorded.
func allowResume(o *Order) error {
	last, ok := o.LastStateChange()
	if !ok || last.From == "" {
		return errNoPriorState
	}
	return nil
}

func finalize(ctx context.Context, m *Mutation) error {
	return m.Record(EventOrderCompleted, OrderCompleted{CompletedAt: m.At})
}

// NewMachine builds the checkout transition table.
func NewMachine(h Hooks) *Machine {
	return &Machine{rules: []rule{
		{event: Checkout, from: []State{StateCart}, to: StateAddress},
		{event: Next, from: []State{StateAddress}, to: StateDelivery, actions: []Action{h.OnDelivery}},
		{event: Next, from: []State{StateDelivery}, to: StatePayment},
		{event: Next, from: []State{StatePayment}, to: StateConfirm},
		{event: Next, from: []State{StateConfirm}, to: StateComplete, actions: []Action{finalize, h.OnComplete}},
		{event: Cancel, to: StateCanceled, guard: allowCancel, actions: []Action{h.OnCancel}},
		{event: AuthorizeReturn, to: StateAwaitingReturn},
		{event: Return, from: []State{StateAwaitingReturn}, to: StateReturned, actions: []Action{h.OnReturn}},
		{event: Resume, from: []State{StateCanceled}, to: StateResumed, guard: allowResume},
	}}
}

func (mc *Machine) find(event Event, state State) (rule, bool) {
	for _, r := range mc.rules {
		if r.matches(event, state) {
			return r, true
		}
	}
	return rule{}, false
}

// Attempt fires event on the mutation's order. A rejected event leaves the
// order untouched and returns a *TransitionError.
func (mc *Machine) Attempt(ctx context.Context, m *Mutation, event Event) error {
	from := m.Order.State
	r, ok := mc.find(event, from)
	if !ok {
		return &TransitionError{Event: event, From: from, Reason: ErrInvalidTransition}
	}
	if r.guard != nil {
		if err := r.guard(m.Order); err != nil {
			return &TransitionError{Event: event, From: from, Reason: ErrGuardFailed, Cause: err}
		}
	}

	if err := m.Record(EventOrderStateChanged, OrderStateChanged{From: from, To: r.to, Event: event, At: m.At}); err != nil {
		return err
	}
	for _, action := range r.actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m); err != nil {
			return fmt.Errorf("order: %s %s->%s: %w", event, from, r.to, err)
		}
	}
	return nil
}

// Can reports whether event would currently be accepted.
func (mc *Machine) Can(o *Order, event Event) bool {
	r, ok := mc.find(event, o.State)
	return ok && (r.guard == nil || r.guard(o) == nil)
}

// Permitted lists the events the order accepts right now.
func (mc *Machine) Permitted(o *Order) []Event {
	var out []Event
	for _, r := range mc.rules {
		if slices.Contains(out, r.event) {
			continue
		}
		if mc.Can(o, r.event) {
			out = append(out, r.event)
		}
	}
	return out
}
