package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/nkoterov/breeze/internal/agent"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/session"
)

const writeTimeout = 10 * time.Second

// wsHandler upgrades /ws/{sessionID} and pumps frames between the socket and
// the session controller.
type wsHandler struct {
	manager *agent.Manager
	logger  log.Logger
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !session.ValidID(sessionID) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "session_id", sessionID, "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "session ended") }()

	logger := h.logger.With("session_id", sessionID)
	logger.Info("websocket connected", "remote", r.RemoteAddr)

	ctx := r.Context()
	sink := &wsSink{conn: conn, logger: logger}
	ctrl := h.manager.Get(sessionID)
	ctrl.OnConnect(ctx, sink)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			logger.Info("websocket closed", "error", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var ev agent.ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			// Malformed frames are dropped, not fatal.
			logger.Debug("ignoring malformed frame", "bytes", len(data))
			continue
		}

		ctrl.OnEvent(ctx, sink, ev)
	}
}

// wsSink serialises outbound event writes onto the connection. Events are
// text frames; a stalled client fails the write after writeTimeout rather
// than wedging the session handler.
type wsSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger log.Logger
}

func (s *wsSink) Send(ev agent.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}
