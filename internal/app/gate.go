package app

import (
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultSubnets is loopback plus the three RFC 1918 private ranges.
var DefaultSubnets = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// AccessGate decides whether a remote address may connect at all.
// Pure predicate: no state, no I/O.
type AccessGate struct {
	enforce bool
	nets    []netip.Prefix
}

// NewAccessGate parses the given CIDR ranges. Invalid entries are logged
// and skipped rather than failing startup, matching how the gate treats
// malformed remote addresses.
func NewAccessGate(enforce bool, subnets []string) *AccessGate {
	g := &AccessGate{enforce: enforce}
	for _, raw := range subnets {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			log.Warn().Str("module", "app.gate").Str("subnet", raw).Msg("skipping invalid subnet")
			continue
		}
		g.nets = append(g.nets, p.Masked())
	}
	return g
}

// Allow reports whether address falls inside one of the configured ranges.
// Accepts bare addresses and host:port forms. Malformed input is denied.
func (g *AccessGate) Allow(address string) bool {
	if !g.enforce {
		return true
	}
	host := address
	if ap, err := netip.ParseAddrPort(address); err == nil {
		host = ap.Addr().String()
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, n := range g.nets {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}
