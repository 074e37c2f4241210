package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/badogar/solidus/internal/domain/aggregate"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

const AggregateType = "User"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidName       = errors.New("name is required")
	ErrEmailTaken        = errors.New("email already registered")
	ErrAlreadyRegistered = errors.New("user is already registered")
	ErrUserDeactivated   = errors.New("user account is deactivated")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

// User is a customer account. Guests have no email and stand in for
// shoppers who have not signed up.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	IsGuest   bool      `json:"is_guest"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func (u *User) GetID() string    { return u.ID }
func (u *User) GetVersion() int  { return u.Version }
func (u *User) SetVersion(v int) { u.Version = v }

func (u *User) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUserCreated:
		var data UserCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UserID
		u.Email = data.Email
		u.Name = data.Name
		u.IsGuest = data.Guest
		u.IsActive = true
		u.CreatedAt = data.CreatedAt
		u.UpdatedAt = data.CreatedAt
	case EventUserRegistered:
		var data UserRegistered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Email = data.Email
		u.Name = data.Name
		u.IsGuest = false
		u.UpdatedAt = data.RegisteredAt
	case EventUserUpdated:
		var data UserUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Name = data.Name
		u.UpdatedAt = data.UpdatedAt
	case EventUserDeactivated:
		var data UserDeactivated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.IsActive = false
		u.UpdatedAt = data.DeactivatedAt
	case EventUserActivated:
		var data UserActivated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.IsActive = true
		u.UpdatedAt = data.ActivatedAt
	default:
		return fmt.Errorf("unknown user event %q", event.EventType)
	}
	u.Version = event.Version
	return nil
}

// Service handles user domain operations
type Service struct {
	eventStore store.EventStoreInterface
	ids        order.IDGenerator
	now        func() time.Time
}

// NewService creates a new user service
func NewService(es store.EventStoreInterface, ids order.IDGenerator) *Service {
	if ids == nil {
		ids = order.NewIDGenerator()
	}
	return &Service{eventStore: es, ids: ids, now: time.Now}
}

// CreateGuest creates a placeholder user for an anonymous order.
func (s *Service) CreateGuest(ctx context.Context) (string, error) {
	id := s.ids("usr")
	_, err := s.eventStore.Append(ctx, id, AggregateType, 0, store.Change{
		EventType: EventUserCreated,
		Data:      UserCreated{UserID: id, Guest: true, CreatedAt: s.now().UTC()},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Register creates a registered user.
func (s *Service) Register(ctx context.Context, email, name string) (*User, error) {
	email, name, err := s.checkSignup(ctx, email, name)
	if err != nil {
		return nil, err
	}

	id := s.ids("usr")
	events, err := s.eventStore.Append(ctx, id, AggregateType, 0, store.Change{
		EventType: EventUserCreated,
		Data:      UserCreated{UserID: id, Email: email, Name: name, CreatedAt: s.now().UTC()},
	})
	if err != nil {
		return nil, err
	}
	u := &User{}
	if err := aggregate.ApplyAll(u, events); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterGuest turns a guest into a registered user, keeping its ID and
// therefore its orders.
func (s *Service) RegisterGuest(ctx context.Context, userID, email, name string) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsGuest {
		return nil, ErrAlreadyRegistered
	}
	email, name, err = s.checkSignup(ctx, email, name)
	if err != nil {
		return nil, err
	}
	events, err := s.eventStore.Append(ctx, userID, AggregateType, u.Version, store.Change{
		EventType: EventUserRegistered,
		Data:      UserRegistered{UserID: userID, Email: email, Name: name, RegisteredAt: s.now().UTC()},
	})
	if err != nil {
		return nil, err
	}
	if err := aggregate.ApplyAll(u, events); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) checkSignup(ctx context.Context, email, name string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if !isValidEmail(email) {
		return "", "", ErrInvalidEmail
	}
	if name == "" {
		return "", "", ErrInvalidName
	}
	if _, err := s.FindByEmail(ctx, email); err == nil {
		return "", "", ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return "", "", err
	}
	return email, name, nil
}

// UpdateProfile updates user profile information
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrUserDeactivated
	}
	_, err = s.eventStore.Append(ctx, userID, AggregateType, u.Version, store.Change{
		EventType: EventUserUpdated,
		Data:      UserUpdated{UserID: userID, Name: name, UpdatedAt: s.now().UTC()},
	})
	return err
}

// Deactivate deactivates a user account
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return nil
	}
	_, err = s.eventStore.Append(ctx, userID, AggregateType, u.Version, store.Change{
		EventType: EventUserDeactivated,
		Data:      UserDeactivated{UserID: userID, DeactivatedAt: s.now().UTC()},
	})
	return err
}

// Activate activates a user account
func (s *Service) Activate(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsActive {
		return nil
	}
	_, err = s.eventStore.Append(ctx, userID, AggregateType, u.Version, store.Change{
		EventType: EventUserActivated,
		Data:      UserActivated{UserID: userID, ActivatedAt: s.now().UTC()},
	})
	return err
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, found, err := aggregate.LoadAggregate(ctx, s.eventStore, userID, func() *User {
		return &User{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, nil
}

// FindByEmail scans the user streams for a registered email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	events, err := s.eventStore.GetEventsByType(ctx, AggregateType)
	if err != nil {
		return nil, err
	}
	users := map[string]*User{}
	var ids []string
	for _, e := range events {
		u, ok := users[e.AggregateID]
		if !ok {
			u = &User{}
			users[e.AggregateID] = u
			ids = append(ids, e.AggregateID)
		}
		if err := u.ApplyEvent(e); err != nil {
			return nil, err
		}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range ids {
		if users[id].Email == email {
			return users[id], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
}

// IsGuest reports whether the order belongs to a guest and may be handed to
// a registered user. Deactivated users count as registered.
func (s *Service) IsGuest(ctx context.Context, userID string) (bool, error) {
	u, err := s.Get(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsGuest, nil
}
