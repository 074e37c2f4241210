package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/domain/aggregate"
	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/infrastructure/lock"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

var tracer = otel.Tracer("github.com/badogar/solidus/internal/domain/order")

const defaultNumberAttempts = 10

// IDGenerator returns a new child entity ID such as "li_01J...".
type IDGenerator func(prefix string) string

// NewIDGenerator prefixes ULIDs.
func NewIDGenerator() IDGenerator {
	return func(prefix string) string {
		return prefix + "_" + ulid.Make().String()
	}
}

// NewOrderNumber returns "R" followed by nine random digits.
func NewOrderNumber() string {
	return fmt.Sprintf("R%09d", rand.IntN(1_000_000_000))
}

// VariantInfo is what an order copies from the catalog when an item is added.
type VariantInfo struct {
	ID     string
	SKU    string
	Name   string
	Price  decimal.Decimal
	Weight decimal.Decimal
}

// VariantCatalog is the catalog collaborator.
type VariantCatalog interface {
	Variant(ctx context.Context, id string) (VariantInfo, error)
}

// UserDirectory is the user collaborator.
type UserDirectory interface {
	CreateGuest(ctx context.Context) (string, error)
	IsGuest(ctx context.Context, userID string) (bool, error)
}

// ServiceDeps wires the order service. EventStore and Catalog are required.
type ServiceDeps struct {
	EventStore        store.EventStoreInterface
	Catalog           VariantCatalog
	Users             UserDirectory
	Ledger            StockLedger
	Rater             ShippingRater
	Originators       []Originator
	Locker            lock.Locker
	Currency          money.Currency
	Clock             func() time.Time
	IDGenerator       IDGenerator
	NumberGenerator   func() string
	NumberAttempts    int
	SnapshotThreshold int
	Logger            *zap.Logger
}

// Service runs checkout operations. Every mutation holds the order's lock,
// replays the order, applies the operation, reconciles adjustments and
// totals, and appends all resulting events at the loaded version.
type Service struct {
	eventStore        store.EventStoreInterface
	catalog           VariantCatalog
	users             UserDirectory
	locker            lock.Locker
	machine           *Machine
	engine            *AdjustmentEngine
	allocator         *Allocator
	currency          money.Currency
	clock             func() time.Time
	newNumber         func() string
	numberAttempts    int
	snapshotThreshold int
	logger            *zap.Logger
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.EventStore == nil {
		return nil, errors.New("order service: event store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := deps.IDGenerator
	if ids == nil {
		ids = NewIDGenerator()
	}
	numbers := deps.NumberGenerator
	if numbers == nil {
		numbers = NewOrderNumber
	}
	attempts := deps.NumberAttempts
	if attempts <= 0 {
		attempts = defaultNumberAttempts
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	cur := deps.Currency
	if cur == (money.Currency{}) {
		cur = money.MustCurrency("USD")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("order")

	engine, err := NewAdjustmentEngine(ids, cur, deps.Originators...)
	if err != nil {
		return nil, err
	}

	s := &Service{
		eventStore: deps.EventStore,
		catalog:    deps.Catalog,
		users:      deps.Users,
		locker:     locker,
		engine:     engine,
		allocator:  NewAllocator(deps.Ledger, deps.Rater, ids, logger),
		currency:   cur,
		clock: func() time.Time {
			return clock().UTC()
		},
		newNumber:         numbers,
		numberAttempts:    attempts,
		snapshotThreshold: deps.SnapshotThreshold,
		logger:            logger,
	}
	s.machine = NewMachine(Hooks{
		OnDelivery: s.allocator.ProposeShipments,
		OnComplete: s.completeInventory,
		OnCancel:   s.cancelFulfillment,
		OnReturn:   s.receiveReturns,
	})
	return s, nil
}

// Machine exposes the transition table for queries.
func (s *Service) Machine() *Machine { return s.machine }

// ============================================
// Lifecycle
// ============================================

// Create starts an order in the cart state. Without a user a guest is created.
func (s *Service) Create(ctx context.Context, userID string) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.create")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" && s.users != nil {
		guestID, err := s.users.CreateGuest(ctx)
		if err != nil {
			return nil, fail(span, fmt.Errorf("create guest user: %w", err))
		}
		userID = guestID
	}

	now := s.clock()
	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		number := s.newNumber()
		created := OrderCreated{Number: number, UserID: userID, Currency: s.currency.Code(), CreatedAt: now}
		events, err := s.eventStore.Append(ctx, number, AggregateType, 0, store.Change{EventType: EventOrderCreated, Data: created})
		if errors.Is(err, store.ErrVersionConflict) {
			s.logger.Debug("order number taken", zap.String("number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fail(span, fmt.Errorf("create order: %w", err))
		}

		o := &Order{}
		if err := aggregate.ApplyAll(o, events); err != nil {
			return nil, fail(span, err)
		}
		span.SetAttributes(attribute.String("order.number", number))
		s.logger.Info("order created", zap.String("number", number), zap.String("user_id", userID))
		return o, nil
	}
	return nil, fail(span, fmt.Errorf("create order: no free order number after %d attempts", s.numberAttempts))
}

// Delete removes the order. It is not a business event; the order is then
// treated as not found.
func (s *Service) Delete(ctx context.Context, number string) error {
	_, err := s.mutate(ctx, "delete", number, func(ctx context.Context, m *Mutation) error {
		return m.Record(EventOrderDeleted, OrderDeleted{DeletedAt: m.At})
	})
	return err
}

// ============================================
// Line items
// ============================================

// AddVariant adds quantity of a variant, merging into an existing line item.
func (s *Service) AddVariant(ctx context.Context, number, variantID string, quantity int) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, "add_variant", number, func(ctx context.Context, m *Mutation) error {
		if err := editable(m.Order); err != nil {
			return err
		}
		if li := m.Order.lineItemForVariant(variantID); li != nil {
			return m.Record(EventLineItemQuantityChanged, LineItemQuantityChanged{
				LineItemID: li.ID,
				Quantity:   li.Quantity + quantity,
				ChangedAt:  m.At,
			})
		}

		variant, err := s.catalog.Variant(ctx, variantID)
		if err != nil {
			return err
		}
		return m.Record(EventLineItemAdded, LineItemAdded{
			LineItem: LineItem{
				ID:        s.allocator.ids("li"),
				VariantID: variant.ID,
				Name:      variant.Name,
				Quantity:  quantity,
				Price:     variant.Price,
				Weight:    variant.Weight,
			},
			AddedAt: m.At,
		})
	})
}

// SetQuantity changes a line item's quantity; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, number, lineItemID string, quantity int) (*Order, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveLineItem(ctx, number, lineItemID)
	}
	return s.mutate(ctx, "set_quantity", number, func(ctx context.Context, m *Mutation) error {
		if err := editable(m.Order); err != nil {
			return err
		}
		li := m.Order.lineItem(lineItemID)
		if li == nil {
			return fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
		}
		if li.Quantity == quantity {
			return nil
		}
		return m.Record(EventLineItemQuantityChanged, LineItemQuantityChanged{
			LineItemID: lineItemID,
			Quantity:   quantity,
			ChangedAt:  m.At,
		})
	})
}

// RemoveLineItem deletes a line item.
func (s *Service) RemoveLineItem(ctx context.Context, number, lineItemID string) (*Order, error) {
	return s.mutate(ctx, "remove_line_item", number, func(ctx context.Context, m *Mutation) error {
		if err := editable(m.Order); err != nil {
			return err
		}
		if m.Order.lineItem(lineItemID) == nil {
			return fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
		}
		return m.Record(EventLineItemRemoved, LineItemRemoved{LineItemID: lineItemID, RemovedAt: m.At})
	})
}

func editable(o *Order) error {
	switch o.State {
	case StateCart, StateAddress, StateDelivery, StatePayment, StateConfirm:
		return nil
	}
	return fmt.Errorf("%w: order is %s", ErrNotEditable, o.State)
}

// ============================================
// Transitions
// ============================================

// Fire attempts a state machine event.
func (s *Service) Fire(ctx context.Context, number string, event Event) (*Order, error) {
	return s.mutate(ctx, string(event), number, func(ctx context.Context, m *Mutation) error {
		return s.machine.Attempt(ctx, m, event)
	})
}

func (s *Service) Checkout(ctx context.Context, number string) (*Order, error) {
	return s.Fire(ctx, number, Checkout)
}

func (s *Service) Next(ctx context.Context, number string) (*Order, error) {
	return s.Fire(ctx, number, Next)
}

func (s *Service) Cancel(ctx context.Context, number string) (*Order, error) {
	return s.Fire(ctx, number, Cancel)
}

func (s *Service) Resume(ctx context.Context, number string) (*Order, error) {
	return s.Fire(ctx, number, Resume)
}

func (s *Service) Return(ctx context.Context, number string) (*Order, error) {
	return s.Fire(ctx, number, Return)
}

// AuthorizeReturn moves the order to awaiting_return and records a return
// authorization. Without unitIDs every shipped unit is covered.
func (s *Service) AuthorizeReturn(ctx context.Context, number string, amount decimal.Decimal, reason string, unitIDs []string) (*Order, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return s.mutate(ctx, string(AuthorizeReturn), number, func(ctx context.Context, m *Mutation) error {
		units, err := returnableUnits(m.Order, unitIDs)
		if err != nil {
			return err
		}
		if err := s.machine.Attempt(ctx, m, AuthorizeReturn); err != nil {
			return err
		}
		return m.Record(EventReturnAuthorized, ReturnAuthorized{ReturnAuthorization: ReturnAuthorization{
			ID:        s.allocator.ids("ra"),
			Amount:    s.currency.Round(amount),
			Reason:    reason,
			UnitIDs:   units,
			State:     ReturnAuthorizedState,
			CreatedAt: m.At,
		}})
	})
}

func returnableUnits(o *Order, unitIDs []string) ([]string, error) {
	if len(unitIDs) == 0 {
		var shipped []string
		for _, u := range o.InventoryUnits {
			if u.State == UnitShipped {
				shipped = append(shipped, u.ID)
			}
		}
		return shipped, nil
	}
	for _, id := range unitIDs {
		if !slices.ContainsFunc(o.InventoryUnits, func(u InventoryUnit) bool { return u.ID == id }) {
			return nil, fmt.Errorf("%w: inventory unit %s", ErrUnknownChild, id)
		}
	}
	return unitIDs, nil
}

// RestoreState undoes a cancellation: it retracts a trailing resume entry,
// puts the order back in the state it had before its last transition and,
// for paid orders, makes sure inventory is allocated and the primary
// shipment is ready. Repeated calls append nothing further.
func (s *Service) RestoreState(ctx context.Context, number string) (*Order, error) {
	return s.mutate(ctx, "restore_state", number, func(ctx context.Context, m *Mutation) error {
		o := m.Order
		last, ok := o.LastStateChange()
		if !ok {
			return fmt.Errorf("%w: no state history to restore from", ErrGuardFailed)
		}
		if last.Event == Resume {
			if err := m.Record(EventResumeEntryRetracted, ResumeEntryRetracted{At: m.At}); err != nil {
				return err
			}
			if last, ok = o.LastStateChange(); !ok {
				return fmt.Errorf("%w: resume was the only history entry", ErrGuardFailed)
			}
		}
		if last.From == "" {
			return fmt.Errorf("%w: history entry has no previous state", ErrGuardFailed)
		}
		if o.State != last.From {
			if err := m.Record(EventOrderStateRestored, OrderStateRestored{From: o.State, To: last.From, At: m.At}); err != nil {
				return err
			}
		}

		if !o.Paid() {
			return nil
		}
		if len(o.InventoryUnits) == 0 {
			if err := s.allocator.Allocate(ctx, m); err != nil {
				return err
			}
		}
		return readyPrimaryShipment(m)
	})
}

// readyPrimaryShipment attaches every unit to the primary shipment and marks it ready.
func readyPrimaryShipment(m *Mutation) error {
	primary := m.Order.PrimaryShipment()
	if primary == nil {
		return nil
	}
	var detached []string
	for _, u := range m.Order.InventoryUnits {
		if u.ShipmentID != primary.ID {
			detached = append(detached, u.ID)
		}
	}
	if len(detached) > 0 {
		if err := m.Record(EventInventoryUnitsAttached, InventoryUnitsAttached{
			ShipmentID: primary.ID,
			UnitIDs:    detached,
			AttachedAt: m.At,
		}); err != nil {
			return err
		}
	}
	if primary.State == ShipmentReady {
		return nil
	}
	return m.Record(EventShipmentStateChanged, ShipmentStateChanged{ShipmentID: primary.ID, State: ShipmentReady, ChangedAt: m.At})
}

func (s *Service) completeInventory(ctx context.Context, m *Mutation) error {
	if err := s.allocator.Allocate(ctx, m); err != nil {
		return err
	}
	if !m.Order.Paid() {
		return nil
	}
	for _, sh := range m.Order.Shipments {
		if sh.State != ShipmentPending {
			continue
		}
		if err := m.Record(EventShipmentStateChanged, ShipmentStateChanged{ShipmentID: sh.ID, State: ShipmentReady, ChangedAt: m.At}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) cancelFulfillment(ctx context.Context, m *Mutation) error {
	if err := s.allocator.RestockAll(ctx, m); err != nil {
		return err
	}
	for _, sh := range m.Order.Shipments {
		if sh.State == ShipmentPending || sh.State == ShipmentShipped {
			continue
		}
		if err := m.Record(EventShipmentStateChanged, ShipmentStateChanged{ShipmentID: sh.ID, State: ShipmentPending, ChangedAt: m.At}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) receiveReturns(ctx context.Context, m *Mutation) error {
	var returned []string
	for _, ra := range slices.Clone(m.Order.ReturnAuthorizations) {
		if ra.State != ReturnAuthorizedState {
			continue
		}
		if err := m.Record(EventReturnReceived, ReturnReceived{ReturnAuthorizationID: ra.ID, ReceivedAt: m.At}); err != nil {
			return err
		}
		returned = append(returned, ra.UnitIDs...)
	}
	var units []InventoryUnit
	for _, u := range m.Order.InventoryUnits {
		if slices.Contains(returned, u.ID) {
			units = append(units, u)
		}
	}
	return s.allocator.Restock(ctx, m, units)
}

// ============================================
// Totals, adjustments and payments
// ============================================

// Recompute reconciles adjustments and persists the totals if they moved.
func (s *Service) Recompute(ctx context.Context, number string) (Totals, error) {
	o, err := s.mutate(ctx, "recompute", number, func(ctx context.Context, m *Mutation) error { return nil })
	if err != nil {
		return Totals{}, err
	}
	return o.Totals(), nil
}

// ApplyAdjustment runs a registered originator against the order.
func (s *Service) ApplyAdjustment(ctx context.Context, number, originatorID string) (bool, error) {
	var applied bool
	_, err := s.mutate(ctx, "apply_adjustment", number, func(ctx context.Context, m *Mutation) error {
		var err error
		applied, err = s.engine.Apply(ctx, m, originatorID)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// RecordPayment stores a payment reported by the payment collaborator.
func (s *Service) RecordPayment(ctx context.Context, number string, amount decimal.Decimal, state PaymentState) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}
	if state == "" {
		state = PaymentCheckout
	}
	var payment Payment
	_, err := s.mutate(ctx, "record_payment", number, func(ctx context.Context, m *Mutation) error {
		payment = Payment{
			ID:        s.allocator.ids("pay"),
			Amount:    s.currency.Round(amount),
			State:     state,
			CreatedAt: m.At,
		}
		return m.Record(EventPaymentRecorded, PaymentRecorded{Payment: payment})
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// UpdatePaymentState records a payment state reported by the payment collaborator.
func (s *Service) UpdatePaymentState(ctx context.Context, number, paymentID string, state PaymentState) (*Order, error) {
	return s.mutate(ctx, "update_payment_state", number, func(ctx context.Context, m *Mutation) error {
		p := m.Order.payment(paymentID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		if p.State == state {
			return nil
		}
		return m.Record(EventPaymentStateChanged, PaymentStateChanged{PaymentID: paymentID, State: state, ChangedAt: m.At})
	})
}

// ============================================
// Fulfillment and customer details
// ============================================

// Ship marks a shipment of a completed order as shipped. Its units can no
// longer be restocked.
func (s *Service) Ship(ctx context.Context, number, shipmentID string) (*Order, error) {
	return s.mutate(ctx, "ship", number, func(ctx context.Context, m *Mutation) error {
		sh := m.Order.shipment(shipmentID)
		if sh == nil {
			return fmt.Errorf("%w: %s", ErrShipmentNotFound, shipmentID)
		}
		if !m.Order.Complete() || sh.State != ShipmentReady {
			return fmt.Errorf("%w: shipment %s is %s", ErrNotShippable, shipmentID, sh.State)
		}
		return m.Record(EventShipmentStateChanged, ShipmentStateChanged{ShipmentID: shipmentID, State: ShipmentShipped, ChangedAt: m.At})
	})
}

// AssociateUser hands a guest order to a registered user.
func (s *Service) AssociateUser(ctx context.Context, number, userID string) (*Order, error) {
	return s.mutate(ctx, "associate_user", number, func(ctx context.Context, m *Mutation) error {
		if m.Order.UserID == userID {
			return nil
		}
		if m.Order.UserID != "" && s.users != nil {
			guest, err := s.users.IsGuest(ctx, m.Order.UserID)
			if err != nil {
				return err
			}
			if !guest {
				return ErrAlreadyRegistered
			}
		}
		return m.Record(EventUserAssociated, UserAssociated{UserID: userID, AssociatedAt: m.At})
	})
}

func (s *Service) SetSpecialInstructions(ctx context.Context, number, instructions string) (*Order, error) {
	return s.mutate(ctx, "set_special_instructions", number, func(ctx context.Context, m *Mutation) error {
		if m.Order.SpecialInstructions == instructions {
			return nil
		}
		return m.Record(EventSpecialInstructionsSet, SpecialInstructionsSet{Instructions: instructions, SetAt: m.At})
	})
}

// SetShipAddress records where the order ships to. Zoned adjustments are
// reconciled against the new address in the same mutation.
func (s *Service) SetShipAddress(ctx context.Context, number string, addr Address) (*Order, error) {
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	addr.State = strings.ToUpper(strings.TrimSpace(addr.State))
	if addr.Country == "" {
		return nil, ErrInvalidAddress
	}
	return s.mutate(ctx, "set_ship_address", number, func(ctx context.Context, m *Mutation) error {
		if err := editable(m.Order); err != nil {
			return err
		}
		if m.Order.ShipAddress != nil && *m.Order.ShipAddress == addr {
			return nil
		}
		return m.Record(EventShipAddressSet, ShipAddressSet{Address: addr, SetAt: m.At})
	})
}

// ============================================
// Queries
// ============================================

func (s *Service) Get(ctx context.Context, number string) (*Order, error) {
	return s.load(ctx, number)
}

// History returns the transition history, oldest first.
func (s *Service) History(ctx context.Context, number string) ([]StateChange, error) {
	o, err := s.load(ctx, number)
	if err != nil {
		return nil, err
	}
	return o.History, nil
}

// Permitted lists the events the order currently accepts.
func (s *Service) Permitted(ctx context.Context, number string) ([]Event, error) {
	o, err := s.load(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.machine.Permitted(o), nil
}

// ============================================
// Unit of work
// ============================================

func (s *Service) load(ctx context.Context, number string) (*Order, error) {
	o, found, err := aggregate.LoadAggregate(ctx, s.eventStore, number, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found || o.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
	}
	return o, nil
}

func (s *Service) mutate(ctx context.Context, op, number string, fn func(ctx context.Context, m *Mutation) error) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order."+op, trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	unlock, err := s.locker.Lock(ctx, number)
	if err != nil {
		return nil, fail(span, fmt.Errorf("lock order %s: %w", number, err))
	}
	defer unlock()

	o, err := s.load(ctx, number)
	if err != nil {
		return nil, fail(span, err)
	}
	loaded := o.Version
	m := NewMutation(o, s.clock())

	if err := fn(ctx, m); err != nil {
		s.rollback(ctx, m, op)
		return nil, fail(span, err)
	}
	if !o.Deleted {
		if lineItemsChanged(m) {
			if err := s.allocator.RepriceShipments(ctx, m); err != nil {
				s.rollback(ctx, m, op)
				return nil, fail(span, err)
			}
		}
		if err := s.engine.Reconcile(ctx, m); err != nil {
			s.rollback(ctx, m, op)
			return nil, fail(span, err)
		}
		if err := recordTotals(m); err != nil {
			s.rollback(ctx, m, op)
			return nil, fail(span, err)
		}
	}
	if len(m.Changes()) == 0 {
		return o, nil
	}

	events, err := s.eventStore.Append(ctx, number, AggregateType, loaded, m.Changes()...)
	if err != nil {
		s.rollback(ctx, m, op)
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			err = fmt.Errorf("%w: %w", ErrConcurrentModification, err)
		case m.Recorded(EventTotalsRecomputed):
			err = fmt.Errorf("%w: %w", ErrRecomputationFailed, err)
		default:
			err = fmt.Errorf("append %s: %w", op, err)
		}
		return nil, fail(span, err)
	}
	o.Version = events[len(events)-1].Version

	span.SetAttributes(attribute.String("order.state", string(o.State)), attribute.Int("order.version", o.Version))
	s.logger.Debug("order updated",
		zap.String("number", number),
		zap.String("op", op),
		zap.String("state", string(o.State)),
		zap.Int("events", len(events)),
		zap.Int("version", o.Version),
	)

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, o, AggregateType, loaded, s.snapshotThreshold); err != nil {
		s.logger.Warn("snapshot failed", zap.String("number", number), zap.Error(err))
	}
	return o, nil
}

func lineItemsChanged(m *Mutation) bool {
	return m.Recorded(EventLineItemAdded) || m.Recorded(EventLineItemQuantityChanged) || m.Recorded(EventLineItemRemoved)
}

func (s *Service) rollback(ctx context.Context, m *Mutation, op string) {
	if err := m.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("compensation failed",
			zap.String("number", m.Order.Number),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
