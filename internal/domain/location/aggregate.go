package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/badogar/solidus/internal/domain/aggregate"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

const AggregateType = "StockLocation"

var (
	ErrLocationNotFound = errors.New("stock location not found")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidCode      = errors.New("invalid code format")
	ErrDuplicateCode    = errors.New("code already in use")
)

// codeRegex validates code format (lowercase letters, numbers, hyphens)
var codeRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	invalidCodeChars = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphens  = regexp.MustCompile(`-+`)
)

// StockLocation is a warehouse or store that holds stock. Lower priority
// values are allocated from first.
type StockLocation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func (l *StockLocation) GetID() string    { return l.ID }
func (l *StockLocation) GetVersion() int  { return l.Version }
func (l *StockLocation) SetVersion(v int) { l.Version = v }

func (l *StockLocation) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventStockLocationCreated:
		var data StockLocationCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.ID = data.LocationID
		l.Name = data.Name
		l.Code = data.Code
		l.Priority = data.Priority
		l.IsActive = true
		l.CreatedAt = data.CreatedAt
		l.UpdatedAt = data.CreatedAt
	case EventStockLocationUpdated:
		var data StockLocationUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.Name = data.Name
		l.Priority = data.Priority
		l.UpdatedAt = data.UpdatedAt
	case EventStockLocationDeactivated:
		var data StockLocationDeactivated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.IsActive = false
		l.UpdatedAt = data.DeactivatedAt
	default:
		return fmt.Errorf("unknown stock location event %q", event.EventType)
	}
	l.Version = event.Version
	return nil
}

// Service handles stock location operations
type Service struct {
	eventStore store.EventStoreInterface
	ids        order.IDGenerator
	now        func() time.Time
}

func NewService(es store.EventStoreInterface, ids order.IDGenerator) *Service {
	if ids == nil {
		ids = order.NewIDGenerator()
	}
	return &Service{eventStore: es, ids: ids, now: time.Now}
}

// Create adds an active stock location. The code is derived from the name
// when empty and must be unique.
func (s *Service) Create(ctx context.Context, name, code string, priority int) (*StockLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if code == "" {
		code = generateCode(name)
	}
	if !codeRegex.MatchString(code) {
		return nil, ErrInvalidCode
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range all {
		if l.Code == code {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
	}

	id := s.ids("loc")
	events, err := s.eventStore.Append(ctx, id, AggregateType, 0, store.Change{
		EventType: EventStockLocationCreated,
		Data: StockLocationCreated{
			LocationID: id,
			Name:       name,
			Code:       code,
			Priority:   priority,
			CreatedAt:  s.now().UTC(),
		},
	})
	if err != nil {
		return nil, err
	}
	l := &StockLocation{}
	if err := aggregate.ApplyAll(l, events); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Update(ctx context.Context, locationID, name string, priority int) (*StockLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	l, err := s.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	events, err := s.eventStore.Append(ctx, locationID, AggregateType, l.Version, store.Change{
		EventType: EventStockLocationUpdated,
		Data: StockLocationUpdated{
			LocationID: locationID,
			Name:       name,
			Priority:   priority,
			UpdatedAt:  s.now().UTC(),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := aggregate.ApplyAll(l, events); err != nil {
		return nil, err
	}
	return l, nil
}

// Deactivate stops allocation from the location. Stock already there stays.
func (s *Service) Deactivate(ctx context.Context, locationID string) error {
	l, err := s.Get(ctx, locationID)
	if err != nil {
		return err
	}
	if !l.IsActive {
		return nil
	}
	_, err = s.eventStore.Append(ctx, locationID, AggregateType, l.Version, store.Change{
		EventType: EventStockLocationDeactivated,
		Data:      StockLocationDeactivated{LocationID: locationID, DeactivatedAt: s.now().UTC()},
	})
	return err
}

func (s *Service) Get(ctx context.Context, locationID string) (*StockLocation, error) {
	l, found, err := aggregate.LoadAggregate(ctx, s.eventStore, locationID, func() *StockLocation {
		return &StockLocation{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}
	return l, nil
}

// List returns every location ordered by priority, then creation.
func (s *Service) List(ctx context.Context) ([]*StockLocation, error) {
	events, err := s.eventStore.GetEventsByType(ctx, AggregateType)
	if err != nil {
		return nil, err
	}
	byID := map[string]*StockLocation{}
	var out []*StockLocation
	for _, e := range events {
		l, ok := byID[e.AggregateID]
		if !ok {
			l = &StockLocation{}
			byID[e.AggregateID] = l
			out = append(out, l)
		}
		if err := l.ApplyEvent(e); err != nil {
			return nil, fmt.Errorf("stock location %s: %w", e.AggregateID, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Active returns the locations that fulfil orders, highest priority first.
func (s *Service) Active(ctx context.Context) ([]*StockLocation, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, l := range all {
		if l.IsActive {
			active = append(active, l)
		}
	}
	return active, nil
}

// generateCode creates a code from a name
func generateCode(name string) string {
	code := strings.ToLower(name)
	code = strings.ReplaceAll(code, " ", "-")
	code = strings.ReplaceAll(code, "_", "-")
	code = invalidCodeChars.ReplaceAllString(code, "")
	code = repeatedHyphens.ReplaceAllString(code, "-")
	return strings.Trim(code, "-")
}
