package presence

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Hub       *app.Hub
	Limiter   *ConnRateLimiter
	ReadLimit int64
}

func NewController(hub *app.Hub, limiter *ConnRateLimiter, readLimit int64) *Controller {
	return &Controller{
		Hub:       hub,
		Limiter:   limiter,
		ReadLimit: readLimit,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandlePresence admits one WebSocket connection and runs its pumps.
// Admission is settled before the upgrade so rejections carry a proper
// HTTP status instead of a post-accept close frame.
func (ctl *Controller) HandlePresence(ctx context.Context, c *gin.Context) {
	remote := c.Request.RemoteAddr
	if ctl.Limiter != nil && !ctl.Limiter.Allow(hostOf(remote)) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return
	}

	creds := core.Credentials{
		Token:     c.Query("token"),
		UserAgent: c.Request.UserAgent(),
	}
	connID, user, err := ctl.Hub.Connect(ctx, creds, remote)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "lan access only"})
		case errors.Is(err, app.ErrAuthRejected):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		case errors.Is(err, app.ErrShuttingDown):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "admission failed"})
		}
		return
	}
	log.Info().Str("module", "presence").Str("conn", string(connID)).Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "presence").Msg("ws upgrade")
		ctl.Hub.Disconnect(connID)
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Subscribe(connID, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, connID, conn)
}

func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
