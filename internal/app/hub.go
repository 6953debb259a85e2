package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrAccessDenied = errors.New("access denied")
	ErrAuthRejected = errors.New("auth rejected")
	ErrShuttingDown = errors.New("shutting down")
)

// Hub orchestrates admission and removal and fans presence events out to
// every observer. All count transitions and broadcasts are linearized
// through a single mutex, so every observer sees events in the same order.
type Hub struct {
	registry *core.Registry
	gate     *AccessGate
	auth     core.Authenticator
	policy   Policy
	sink     core.AuditSink
	clock    clock.Clock

	mu        sync.Mutex
	observers map[core.ConnID]core.ObserverConn
	cancels   map[core.ConnID]context.CancelFunc
	closed    bool
}

func NewHub(reg *core.Registry, gate *AccessGate, auth core.Authenticator, policy Policy, sink core.AuditSink, clk clock.Clock) *Hub {
	if policy == nil {
		policy = SimplePolicy{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Hub{
		registry:  reg,
		gate:      gate,
		auth:      auth,
		policy:    policy,
		sink:      sink,
		clock:     clk,
		observers: make(map[core.ConnID]core.ObserverConn),
		cancels:   make(map[core.ConnID]context.CancelFunc),
	}
}

// Connect admits one connection: network gate, then identity, then registry
// insert. Authentication runs before the hub lock is taken so a slow
// identity provider never serializes behind unrelated registry traffic.
// On the user's 0->1 connection transition a joined event is broadcast.
func (h *Hub) Connect(ctx context.Context, creds core.Credentials, addr string) (core.ConnID, *domain.User, error) {
	if !h.gate.Allow(addr) {
		log.Warn().Str("module", "app.hub").Str("addr", addr).Msg("connection refused by gate")
		return "", nil, ErrAccessDenied
	}
	user, err := h.auth.Authenticate(ctx, creds)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrAuthRejected, err)
	}

	id := core.ConnID(uuid.NewString())
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", nil, ErrShuttingDown
	}
	wasOffline := h.registry.CountFor(user.ID) == 0
	if _, err := h.registry.Admit(id, user, addr, creds.UserAgent, h.clock.Now()); err != nil {
		h.mu.Unlock()
		// Duplicate ids mean id generation is broken; drop the connection.
		log.Error().Err(err).Str("module", "app.hub").Str("conn", string(id)).Msg("admission invariant violated")
		return "", nil, err
	}
	if wasOffline {
		h.broadcastLocked(core.Joined(user))
	}
	h.mu.Unlock()

	h.record(id, user.ID, "connect", addr, creds.UserAgent)
	return id, user, nil
}

// Disconnect removes a connection. Safe to call for ids that are already
// gone; eviction and client close race benignly.
func (h *Hub) Disconnect(id core.ConnID) {
	h.mu.Lock()
	h.removeLocked(id)
	h.mu.Unlock()
}

// Subscribe registers the connection as an observer. Its first event is a
// snapshot consistent with the registry at subscribe time; every later
// event arrives in broadcast order.
func (h *Hub) Subscribe(id core.ConnID, obs core.ObserverConn, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		if cancel != nil {
			cancel()
		}
		obs.Close()
		return
	}
	h.observers[id] = obs
	h.cancels[id] = cancel
	frame, err := json.Marshal(core.Snapshot(h.registry.Snapshot()))
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("snapshot marshal")
		return
	}
	if err := obs.TrySend(core.Frame(frame)); err != nil {
		log.Warn().Str("module", "app.hub").Str("conn", string(id)).Msg("snapshot dropped on subscribe")
	}
}

// Touch refreshes the connection's last-activity timestamp.
func (h *Hub) Touch(id core.ConnID) bool {
	return h.registry.Touch(id, h.clock.Now())
}

// Snapshot returns the distinct users currently present.
func (h *Hub) Snapshot() []domain.User {
	return h.registry.Snapshot()
}

// Shutdown drains the hub: new connects are rejected, every remaining
// handle is removed (emitting left per identity), observers are closed.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	// Remove every handle first so each identity's final left is seen by
	// observers that are themselves about to be torn down.
	for _, id := range h.registry.Conns() {
		user, ok := h.registry.Remove(id)
		if !ok {
			continue
		}
		if h.registry.CountFor(user.ID) == 0 {
			h.broadcastLocked(core.Left(user))
		}
		h.record(id, user.ID, "disconnect", "", "")
	}
	for id, obs := range h.observers {
		if cancel := h.cancels[id]; cancel != nil {
			cancel()
		}
		delete(h.cancels, id)
		delete(h.observers, id)
		obs.Close()
	}
	log.Info().Str("module", "app.hub").Msg("hub drained")
}

func (h *Hub) removeLocked(id core.ConnID) {
	if cancel := h.cancels[id]; cancel != nil {
		cancel()
	}
	delete(h.cancels, id)
	if obs, ok := h.observers[id]; ok {
		delete(h.observers, id)
		obs.Close()
	}
	user, ok := h.registry.Remove(id)
	if !ok {
		return
	}
	if h.registry.CountFor(user.ID) == 0 {
		h.broadcastLocked(core.Left(user))
	}
	h.record(id, user.ID, "disconnect", "", "")
}

// broadcastLocked fans one event out to every observer. TrySend never
// blocks; observers that cannot keep up go through the backpressure policy.
func (h *Hub) broadcastLocked(ev core.Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("event marshal")
		return
	}
	var kicked []core.ConnID
	for id, obs := range h.observers {
		if err := obs.TrySend(core.Frame(frame)); err != nil {
			switch h.policy.OnBackPressure(id, obs) {
			case KickObserver:
				kicked = append(kicked, id)
			case MarkSlow, DropEvent, NoAction:
			}
		}
	}
	for _, id := range kicked {
		log.Warn().Str("module", "app.hub").Str("conn", string(id)).Msg("kicking slow observer")
		h.removeLocked(id)
	}
}

func (h *Hub) record(id core.ConnID, uid domain.UserID, event, ip, userAgent string) {
	if h.sink == nil {
		return
	}
	h.sink.Record(core.AuditRecord{
		ConnID:    id,
		UserID:    uid,
		Event:     event,
		IP:        ip,
		UserAgent: userAgent,
		At:        h.clock.Now().UnixNano(),
	})
}
