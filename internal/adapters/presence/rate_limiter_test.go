package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnRateLimiter_BlocksOverLimit(t *testing.T) {
	req := require.New(t)
	rl := NewConnRateLimiter(3, time.Minute)

	req.True(rl.Allow("192.168.1.10"))
	req.True(rl.Allow("192.168.1.10"))
	req.True(rl.Allow("192.168.1.10"))
	req.False(rl.Allow("192.168.1.10"))

	// Other hosts have their own window.
	req.True(rl.Allow("192.168.1.11"))
}

func TestConnRateLimiter_WindowExpires(t *testing.T) {
	req := require.New(t)
	rl := NewConnRateLimiter(1, 20*time.Millisecond)

	req.True(rl.Allow("10.0.0.1"))
	req.False(rl.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)
	req.True(rl.Allow("10.0.0.1"))
}
