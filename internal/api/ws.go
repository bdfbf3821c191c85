package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventPollInterval is how often a stream checks the session's event log.
var eventPollInterval = 200 * time.Millisecond

// StreamSessionEvents streams session change events over WebSocket as JSON
// messages. ?offset=n skips the first n events. The stream ends when the
// session is deleted or the client goes away.
func (s *Server) StreamSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events := s.Sessions.Events(id)
	if events == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader loop: notices client close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			for _, e := range events.Since(offset) {
				if err := conn.WriteJSON(e); err != nil {
					return
				}
				offset++
			}
			if s.Sessions.Get(id) == nil {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session deleted"))
				return
			}
		}
	}
}
