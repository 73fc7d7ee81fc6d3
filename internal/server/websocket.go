package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unclealek/SmartHome/internal/poller"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// wsEnvelope is the frame written to websocket clients.
type wsEnvelope struct {
	Type string       `json:"type"`
	Data poller.State `json:"data"`
}

// The dashboard is served to the local network only.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS streams the current state and then every state the poller
// publishes. Clients only need to answer pings.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	updates, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go s.readPump(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.send(conn, s.ctrl.State()); err != nil {
		s.log.Infow("ws write failed", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Infow("ws ping failed", "err", err)
				return
			}
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := s.send(conn, st); err != nil {
				s.log.Infow("ws write failed", "err", err)
				return
			}
		}
	}
}

// readPump drains incoming frames so control frames are handled and a
// closed connection is noticed.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debugw("ws read closed", "err", err)
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, st poller.State) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}
