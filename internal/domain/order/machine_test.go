package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var machineNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func orderIn(state State, history ...StateChange) *Order {
	return &Order{Number: "R000000001", State: state, History: history}
}

// ============================================
// Transition Table Tests
// ============================================

func TestMachine_Attempt(t *testing.T) {
	tests := []struct {
		name    string
		order   *Order
		event   Event
		want    State
		wantErr error
	}{
		{"checkout from cart", orderIn(StateCart), Checkout, StateAddress, nil},
		{"next from address", orderIn(StateAddress), Next, StateDelivery, nil},
		{"next from delivery", orderIn(StateDelivery), Next, StatePayment, nil},
		{"next from payment", orderIn(StatePayment), Next, StateConfirm, nil},
		{"next from confirm", orderIn(StateConfirm), Next, StateComplete, nil},
		{"next from cart", orderIn(StateCart), Next, StateCart, ErrInvalidTransition},
		{"next from complete", orderIn(StateComplete), Next, StateComplete, ErrInvalidTransition},
		{"checkout from address", orderIn(StateAddress), Checkout, StateAddress, ErrInvalidTransition},
		{"cancel from complete", orderIn(StateComplete), Cancel, StateCanceled, nil},
		{"cancel from cart", orderIn(StateCart), Cancel, StateCanceled, nil},
		{"cancel twice", orderIn(StateCanceled), Cancel, StateCanceled, ErrGuardFailed},
		{"authorize return from complete", orderIn(StateComplete), AuthorizeReturn, StateAwaitingReturn, nil},
		{"return from awaiting", orderIn(StateAwaitingReturn), Return, StateReturned, nil},
		{"return from complete", orderIn(StateComplete), Return, StateComplete, ErrInvalidTransition},
		{
			"resume after cancel",
			orderIn(StateCanceled, StateChange{From: StateComplete, To: StateCanceled, Event: Cancel}),
			Resume, StateResumed, nil,
		},
		{"resume without history", orderIn(StateCanceled), Resume, StateCanceled, ErrGuardFailed},
		{
			"resume when last entry has no prior state",
			orderIn(StateCanceled, StateChange{To: StateCanceled, Event: Cancel}),
			Resume, StateCanceled, ErrGuardFailed,
		},
		{"resume from complete", orderIn(StateComplete), Resume, StateComplete, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := NewMachine(Hooks{})
			historyBefore := len(tt.order.History)
			m := NewMutation(tt.order, machineNow)

			err := machine.Attempt(context.Background(), m, tt.event)

			assert.Equal(t, tt.want, tt.order.State)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var terr *TransitionError
				require.True(t, errors.As(err, &terr))
				assert.Equal(t, tt.event, terr.Event)
				assert.Empty(t, m.Changes())
				assert.Len(t, tt.order.History, historyBefore)
				return
			}
			require.NoError(t, err)
			require.Len(t, tt.order.History, historyBefore+1)
			last, _ := tt.order.LastStateChange()
			assert.Equal(t, tt.event, last.Event)
			assert.Equal(t, tt.want, last.To)
		})
	}
}

func TestMachine_InvalidAndGuardAreDistinct(t *testing.T) {
	machine := NewMachine(Hooks{})

	err := machine.Attempt(context.Background(), NewMutation(orderIn(StateCanceled), machineNow), Cancel)
	assert.ErrorIs(t, err, ErrGuardFailed)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	err = machine.Attempt(context.Background(), NewMutation(orderIn(StateDelivery), machineNow), Return)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrGuardFailed)
}

func TestMachine_CompleteSetsCompletedAtAndRunsHook(t *testing.T) {
	var calls []string
	machine := NewMachine(Hooks{
		OnComplete: func(ctx context.Context, m *Mutation) error {
			calls = append(calls, "complete")
			assert.NotNil(t, m.Order.CompletedAt, "finalize runs before the hook")
			return nil
		},
	})
	o := orderIn(StateConfirm)

	require.NoError(t, machine.Attempt(context.Background(), NewMutation(o, machineNow), Next))

	require.NotNil(t, o.CompletedAt)
	assert.Equal(t, machineNow, *o.CompletedAt)
	assert.True(t, o.Complete())
	assert.Equal(t, []string{"complete"}, calls)
}

func TestMachine_ActionErrorPropagates(t *testing.T) {
	boom := errors.New("ledger down")
	machine := NewMachine(Hooks{
		OnCancel: func(ctx context.Context, m *Mutation) error { return boom },
	})

	err := machine.Attempt(context.Background(), NewMutation(orderIn(StateComplete), machineNow), Cancel)

	assert.ErrorIs(t, err, boom)
}

func TestMachine_Permitted(t *testing.T) {
	machine := NewMachine(Hooks{})

	assert.ElementsMatch(t, []Event{Checkout, Cancel, AuthorizeReturn}, machine.Permitted(orderIn(StateCart)))
	assert.ElementsMatch(t, []Event{Next, Cancel, AuthorizeReturn}, machine.Permitted(orderIn(StateConfirm)))
	assert.ElementsMatch(t, []Event{AuthorizeReturn}, machine.Permitted(orderIn(StateCanceled)))
	assert.ElementsMatch(t, []Event{Resume, AuthorizeReturn}, machine.Permitted(orderIn(StateCanceled,
		StateChange{From: StateComplete, To: StateCanceled, Event: Cancel})))
}
