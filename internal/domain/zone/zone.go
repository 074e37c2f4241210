// Package zone groups countries and states into the regions that tax rates
// apply to.
package zone

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidName   = errors.New("zone name is required")
	ErrNoMembers     = errors.New("zone needs at least one member")
	ErrInvalidMember = errors.New("invalid zone member")
)

// Kind says what a member refers to.
type Kind string

const (
	KindCountry Kind = "country"
	KindState   Kind = "state"
)

// Member refers to a country (ISO 3166-1 code, "US") or a state
// (ISO 3166-2 code, "US-CA").
type Member struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (m Member) String() string { return string(m.Kind) + ":" + m.ID }

func (m Member) validate() error {
	if m.Kind != KindCountry && m.Kind != KindState {
		return fmt.Errorf("%w: kind %q", ErrInvalidMember, m.Kind)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidMember, m.Kind)
	}
	return nil
}

// Zone is a named set of members.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Members     []Member `json:"members"`
}

// New builds a zone. Member IDs are upper-cased and duplicates dropped.
func New(id, name, description string, members ...Member) (*Zone, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	z := &Zone{ID: id, Name: name, Description: description}
	for _, m := range members {
		m.ID = strings.ToUpper(strings.TrimSpace(m.ID))
		if err := m.validate(); err != nil {
			return nil, err
		}
		if !slices.Contains(z.Members, m) {
			z.Members = append(z.Members, m)
		}
	}
	return z, nil
}

// Kind is the kind of the first member, or empty for a zone without members.
func (z *Zone) Kind() Kind {
	if len(z.Members) == 0 {
		return ""
	}
	return z.Members[0].Kind
}

// Contains looks a member up by (kind, id).
func (z *Zone) Contains(kind Kind, id string) bool {
	return slices.Contains(z.Members, Member{Kind: kind, ID: strings.ToUpper(id)})
}

// Includes reports whether an address in country and state falls inside the
// zone. Either code may be empty.
func (z *Zone) Includes(country, state string) bool {
	if z == nil {
		return false
	}
	return (country != "" && z.Contains(KindCountry, country)) ||
		(state != "" && z.Contains(KindState, state))
}

// ParseMembers reads a comma separated member list such as
// "country:US,state:CA-QC".
func ParseMembers(s string) ([]Member, error) {
	var members []Member
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		kind, id, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q, want kind:id", ErrInvalidMember, field)
		}
		m := Member{Kind: Kind(strings.ToLower(strings.TrimSpace(kind))), ID: strings.ToUpper(strings.TrimSpace(id))}
		if err := m.validate(); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
