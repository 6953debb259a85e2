package app

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Presence/internal/core"
	"github.com/rs/zerolog/log"
)

// HeartbeatMonitor reclaims connections whose transport close was lost.
// It scans the registry on a fixed interval and disconnects any handle
// idle past the timeout, with the same semantics as a clean close.
// Eviction is not retried; an evicted client must reconnect.
type HeartbeatMonitor struct {
	hub      *Hub
	registry *core.Registry
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
}

func NewHeartbeatMonitor(hub *Hub, reg *core.Registry, clk clock.Clock, interval, timeout time.Duration) *HeartbeatMonitor {
	if clk == nil {
		clk = clock.New()
	}
	return &HeartbeatMonitor{
		hub:      hub,
		registry: reg,
		clock:    clk,
		interval: interval,
		timeout:  timeout,
	}
}

// Run executes the scan loop until ctx is canceled.
func (m *HeartbeatMonitor) Run(ctx context.Context) error {
	log.Info().Str("module", "app.monitor").Dur("interval", m.interval).Dur("timeout", m.timeout).Msg("heartbeat monitor started")
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *HeartbeatMonitor) sweep() {
	cutoff := m.clock.Now().Add(-m.timeout)
	for _, id := range m.registry.Stale(cutoff) {
		log.Info().Str("module", "app.monitor").Str("conn", string(id)).Msg("evicting idle connection")
		m.hub.Disconnect(id)
	}
}
