package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aide-chat/aide/internal/agent"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API carries no credentials, so cross-origin upgrades are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 30 * time.Second

// handleChatWS serves chat over a WebSocket. Each client text frame is
// one ChatRequest; the server answers with the same event frames the
// SSE endpoint emits, as JSON, ending each exchange with a meta event.
// The connection stays open for further requests until the client
// closes it.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		if req.Message == "" {
			s.writeWSEvent(conn, agent.Event{Type: agent.EventError, Error: "message is required"})
			continue
		}

		err := s.agent.ProcessStream(r.Context(), req.toAgent(), func(e agent.Event) {
			s.writeWSEvent(conn, e)
		})
		if err != nil {
			// Structural failures (unknown session id) have produced no
			// events yet; report them in-band so the client is not left
			// waiting.
			msg := "agent error"
			if errors.Is(err, agent.ErrSessionNotFound) {
				msg = err.Error()
			} else {
				s.logger.Error("websocket chat failed", "error", err)
			}
			s.writeWSEvent(conn, agent.Event{Type: agent.EventError, Error: msg})
			s.writeWSEvent(conn, agent.Event{Type: agent.EventMeta, FinishReason: "stop"})
		}
	}
}

func (s *Server) writeWSEvent(conn *websocket.Conn, e agent.Event) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(e); err != nil {
		s.logger.Debug("failed to write websocket event", "error", err)
	}
}
