// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen = 36
	MaxNameLen   = 64
)

var (
	ErrUserIDEmpty = errors.New("user id empty")
	ErrNameTooLong = errors.New("name too long")
)

type UserID string

// User is the identity bound to a connection. It is resolved by the
// authenticator and never constructed inside the presence core.
type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, name string) (*User, error) {
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &User{ID: id, Name: name}, nil
}
