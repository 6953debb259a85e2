package presence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Presence/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "presence").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "presence").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "presence").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "presence").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, id core.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "presence").Str("conn", string(id)).Msg("readPump closing")
		ctl.Hub.Disconnect(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "presence").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "presence").Str("conn", string(id)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(id, c, data)
		}
	}
}

func (ctl *Controller) handleFrame(id core.ConnID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "presence").Msg("bad json")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(id, c)
	default:
		log.Warn().Str("module", "presence").Str("type", env.Type).Msg("unknown frame")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "presence").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
