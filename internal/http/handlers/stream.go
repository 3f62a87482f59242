package handlers

import (
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	"github.com/wolfman30/clinic-calendar/internal/sessions"
)

const streamBuffer = 16

// StreamMessage is pushed to websocket subscribers of a session.
type StreamMessage struct {
	Type  string           `json:"type"` // "state", "pong", "error"
	State *viewstate.State `json:"state,omitempty"`
	Query string           `json:"query,omitempty"`
	Error string           `json:"error,omitempty"`
}

type streamInbound struct {
	Type string `json:"type"` // "ping"
}

// Stream handles GET /api/sessions/{id}/stream. It sends the current state on
// connect and every committed state after it.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveStream(conn, r, sess)
	}).ServeHTTP(w, r)
}

func (h *SessionHandler) serveStream(conn *websocket.Conn, r *http.Request, sess *sessions.Session) {
	// hijacked connections keep the server's write timeout
	_ = conn.SetDeadline(time.Time{})
	updates, cancel := sess.Controller.Store().Subscribe(streamBuffer)
	defer cancel()

	if err := sendState(conn, sess.Controller.State()); err != nil {
		return
	}
	h.logger.Debug("session stream opened", "session_id", sess.ID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg streamInbound
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				h.manager.Touch(sess.ID)
				_ = websocket.JSON.Send(conn, StreamMessage{Type: "pong"})
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debug("session stream closed", "session_id", sess.ID)
			return
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := sendState(conn, st); err != nil {
				h.logger.Debug("session stream send failed", "session_id", sess.ID, "error", err)
				return
			}
		}
	}
}

func sendState(conn *websocket.Conn, st viewstate.State) error {
	return websocket.JSON.Send(conn, StreamMessage{Type: "state", State: &st, Query: st.QueryValues().Encode()})
}
