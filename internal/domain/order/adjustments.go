package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/badogar/solidus/internal/domain/money"
)

// Originator is a promotion or tax rule that produces adjustments.
type Originator interface {
	ID() string
	Label() string
	// Eligible reports whether adj still applies to the order as it is now.
	Eligible(o *Order, adj Adjustment) bool
	// Compute returns the unrounded amount for the calculable.
	Compute(ctx context.Context, o *Order, c Calculable) (decimal.Decimal, error)
}

// Performer is implemented by originators that decide themselves where
// their adjustments go, such as free shipping.
type Performer interface {
	Perform(ctx context.Context, m *Mutation, engine *AdjustmentEngine) (applied bool, err error)
}

// AdjustmentEngine keeps adjustments in line with the originators that made them.
type AdjustmentEngine struct {
	originators map[string]Originator
	ids         IDGenerator
	currency    money.Currency
}

// NewAdjustmentEngine registers originators by ID.
func NewAdjustmentEngine(ids IDGenerator, cur money.Currency, originators ...Originator) (*AdjustmentEngine, error) {
	e := &AdjustmentEngine{
		originators: make(map[string]Originator, len(originators)),
		ids:         ids,
		currency:    cur,
	}
	for _, o := range originators {
		if _, exists := e.originators[o.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOriginator, o.ID())
		}
		e.originators[o.ID()] = o
	}
	return e, nil
}

// Originator returns a registered originator.
func (e *AdjustmentEngine) Originator(id string) (Originator, bool) {
	o, ok := e.originators[id]
	return o, ok
}

// Reconcile destroys adjustments that no longer apply and refreshes the
// amounts of the rest. Run it before totals are recomputed.
func (e *AdjustmentEngine) Reconcile(ctx context.Context, m *Mutation) error {
	current := append([]Adjustment(nil), m.Order.Adjustments...)
	for _, adj := range current {
		orig, calculable, reason := e.check(m.Order, adj)
		if reason != "" {
			if err := m.Record(EventAdjustmentDestroyed, AdjustmentDestroyed{
				AdjustmentID: adj.ID,
				Reason:       reason,
				DestroyedAt:  m.At,
			}); err != nil {
				return err
			}
			continue
		}

		amount, err := orig.Compute(ctx, m.Order, calculable)
		if err != nil {
			return fmt.Errorf("compute %s for %s: %w", orig.ID(), adj.ID, err)
		}
		amount = e.currency.Round(amount)
		if amount.Equal(adj.Amount) {
			continue
		}
		if err := m.Record(EventAdjustmentAmountChanged, AdjustmentAmountChanged{
			AdjustmentID: adj.ID,
			Amount:       amount,
			ChangedAt:    m.At,
		}); err != nil {
			return err
		}
	}
	return nil
}

// check resolves an adjustment's originator and source, or says why it no
// longer applies.
func (e *AdjustmentEngine) check(o *Order, adj Adjustment) (Originator, Calculable, string) {
	orig, ok := e.originators[adj.OriginatorID]
	if !ok {
		return nil, Calculable{}, "originator removed"
	}
	calculable, ok := o.Resolve(adj.Source)
	if !ok {
		return nil, Calculable{}, "source " + adj.Source.String() + " no longer exists"
	}
	if !orig.Eligible(o, adj) {
		return nil, Calculable{}, "no longer eligible"
	}
	return orig, calculable, ""
}

// Create computes and records a new adjustment from orig against target.
func (e *AdjustmentEngine) Create(ctx context.Context, m *Mutation, orig Originator, target, source Reference) (Adjustment, error) {
	calculable, ok := m.Order.Resolve(source)
	if !ok {
		return Adjustment{}, fmt.Errorf("%w: %s", ErrUnknownChild, source)
	}
	amount, err := orig.Compute(ctx, m.Order, calculable)
	if err != nil {
		return Adjustment{}, fmt.Errorf("compute %s: %w", orig.ID(), err)
	}
	adj := Adjustment{
		ID:           e.ids("adj"),
		Label:        orig.Label(),
		Amount:       e.currency.Round(amount),
		Target:       target,
		Source:       source,
		OriginatorID: orig.ID(),
		CreatedAt:    m.At,
	}
	if err := m.Record(EventAdjustmentCreated, AdjustmentCreated{Adjustment: adj}); err != nil {
		return Adjustment{}, err
	}
	return adj, nil
}

// Apply runs an originator against the order. Plain originators add one
// order-level adjustment unless they already have one or are not eligible.
func (e *AdjustmentEngine) Apply(ctx context.Context, m *Mutation, originatorID string) (bool, error) {
	orig, ok := e.originators[originatorID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownOriginator, originatorID)
	}
	if p, ok := orig.(Performer); ok {
		return p.Perform(ctx, m, e)
	}

	ref := OrderRef(m.Order.Number)
	if len(m.Order.AdjustmentsFrom(orig.ID(), ref)) > 0 {
		return false, nil
	}
	if !orig.Eligible(m.Order, Adjustment{Target: ref, Source: ref, OriginatorID: orig.ID()}) {
		return false, nil
	}
	if _, err := e.Create(ctx, m, orig, ref, ref); err != nil {
		return false, err
	}
	return true, nil
}
