package user

import "time"

const (
	EventUserCreated     = "UserCreated"
	EventUserRegistered  = "UserRegistered"
	EventUserUpdated     = "UserUpdated"
	EventUserDeactivated = "UserDeactivated"
	EventUserActivated   = "UserActivated"
)

// UserCreated is emitted for both guests and registered users
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRegistered is emitted when a guest signs up with an email
type UserRegistered struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserUpdated is emitted when user profile is updated
type UserUpdated struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserDeactivated is emitted when user account is deactivated
type UserDeactivated struct {
	UserID        string    `json:"user_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// UserActivated is emitted when user account is reactivated
type UserActivated struct {
	UserID      string    `json:"user_id"`
	ActivatedAt time.Time `json:"activated_at"`
}
