package core

import "github.com/dkeye/Presence/internal/domain"

const (
	EventJoined   = "joined"
	EventLeft     = "left"
	EventSnapshot = "snapshot"
)

// Event is one presence change as seen by observers.
// Exactly one of User/Users is set depending on Type.
type Event struct {
	Type  string        `json:"type"`
	User  *domain.User  `json:"user,omitempty"`
	Users []domain.User `json:"users,omitempty"`
}

func Joined(u *domain.User) Event { return Event{Type: EventJoined, User: u} }

func Left(u *domain.User) Event { return Event{Type: EventLeft, User: u} }

func Snapshot(us []domain.User) Event { return Event{Type: EventSnapshot, Users: us} }
