package presence

import "github.com/dkeye/Presence/internal/core"

func (ctl *Controller) handlePing(id core.ConnID, conn *wsConn) {
	// A ping is the client's liveness signal; refresh before replying.
	ctl.Hub.Touch(id)
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
