package core

import (
	"time"

	"github.com/dkeye/Presence/internal/domain"
)

// ConnectionHandle is the registry's record of one live connection.
// Metadata only: the transport endpoint stays with the adapter and is
// addressed by ConnID.
type ConnectionHandle struct {
	ID          ConnID
	User        *domain.User
	RemoteAddr  string
	UserAgent   string
	ConnectedAt time.Time
	LastActive  time.Time
}
