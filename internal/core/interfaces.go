package core

import (
	"context"

	"github.com/dkeye/Presence/internal/domain"
)

// Frame is a serialized event payload ready for the wire.
type Frame []byte

// ConnID identifies one live connection. Generated on admission,
// unique for the lifetime of the process, never reused.
type ConnID string

// ObserverConn abstracts a transport endpoint for event fan-out.
// Owned by the adapter; the adapter must Close() it.
type ObserverConn interface {
	TrySend(Frame) error
	Close()
}

// Credentials is what a client presents on admission.
type Credentials struct {
	Token     string
	UserAgent string
}

// Authenticator resolves presented credentials into a user identity.
// May involve network I/O; the hub calls it before taking its dispatch lock.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*domain.User, error)
}

// AuditRecord is one admission/removal fact for the audit log.
type AuditRecord struct {
	ConnID    ConnID        `json:"conn_id"`
	UserID    domain.UserID `json:"user_id"`
	Event     string        `json:"event"`
	IP        string        `json:"ip,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	At        int64         `json:"at"`
}

// AuditSink consumes audit records. Record must never block.
type AuditSink interface {
	Record(rec AuditRecord)
}
