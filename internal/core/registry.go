package core

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrDuplicateConn = errors.New("duplicate connection id")

// Registry is the authoritative threadsafe table of live connections.
// A user may hold several connections at once; the registry keeps the
// per-user count so the hub can detect 0->1 and 1->0 transitions.
type Registry struct {
	mu     sync.RWMutex
	conns  map[ConnID]*ConnectionHandle
	counts map[domain.UserID]int
	users  map[domain.UserID]*domain.User
	order  []domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[ConnID]*ConnectionHandle),
		counts: make(map[domain.UserID]int),
		users:  make(map[domain.UserID]*domain.User),
	}
}

// Admit inserts a handle for an already-authenticated connection.
// ErrDuplicateConn means id generation is broken; callers log and drop.
func (r *Registry) Admit(id ConnID, user *domain.User, addr, userAgent string, now time.Time) (*ConnectionHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		return nil, ErrDuplicateConn
	}
	h := &ConnectionHandle{
		ID:          id,
		User:        user,
		RemoteAddr:  addr,
		UserAgent:   userAgent,
		ConnectedAt: now,
		LastActive:  now,
	}
	r.conns[id] = h
	r.counts[user.ID]++
	if r.counts[user.ID] == 1 {
		r.users[user.ID] = user
		r.order = append(r.order, user.ID)
	}
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Str("user", string(user.ID)).Msg("connection admitted")
	return h, nil
}

// Remove deletes the handle and returns the bound identity so the caller
// can decide whether this was the user's last connection.
func (r *Registry) Remove(id ConnID) (*domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	uid := h.User.ID
	r.counts[uid]--
	if r.counts[uid] <= 0 {
		delete(r.counts, uid)
		delete(r.users, uid)
		for i, o := range r.order {
			if o == uid {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Str("user", string(uid)).Msg("connection removed")
	return h.User, true
}

// Touch refreshes the last-activity timestamp. Returning false means the
// connection is already gone; callers treat that as a no-op.
func (r *Registry) Touch(id ConnID, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.conns[id]
	if !ok {
		return false
	}
	h.LastActive = now
	return true
}

// Snapshot returns the distinct users currently present, first-seen order.
func (r *Registry) Snapshot() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.order))
	for _, uid := range r.order {
		if u, ok := r.users[uid]; ok {
			out = append(out, *u)
		}
	}
	return out
}

func (r *Registry) CountFor(uid domain.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[uid]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Conns returns the ids of every live connection.
func (r *Registry) Conns() []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Stale returns connections whose last activity precedes cutoff.
func (r *Registry) Stale(cutoff time.Time) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ConnID
	for id, h := range r.conns {
		if h.LastActive.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}
