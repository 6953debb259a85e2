package presence

import (
	"sync"
	"time"
)

// ConnRateLimiter bounds connection attempts per remote host with a
// sliding window. Keeps a reconnect storm from one machine off the hub.
type ConnRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
}

func NewConnRateLimiter(limit int, interval time.Duration) *ConnRateLimiter {
	return &ConnRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *ConnRateLimiter) Allow(host string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[host]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[host] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[host] = fresh
	return true
}
