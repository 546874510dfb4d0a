package monitor

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a WebSocket and streams events until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("monitor: ws upgrade", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	events, unsub := h.Subscribe()
	defer unsub()

	h.log.Debug("monitor: client connected", zap.String("remote", r.RemoteAddr))
	defer h.log.Debug("monitor: client disconnected", zap.String("remote", r.RemoteAddr))

	// Reads only serve to notice the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				h.log.Debug("monitor: ws write", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// Handler returns a mux serving the event stream on /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return withLogging(h.log, mux)
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("monitor",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
