package live

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dropkit-go/dropkit/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Staging and live traffic share an origin; the default same-origin
	// check applies.
}

// Handler upgrades requests to WebSocket sessions. Each connection gets
// a fresh control configured from cfg.
func Handler(cfg Config) http.Handler {
	cfg.applyDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "error", err)
			middleware.RecordWebSocketError("upgrade")
			return
		}

		session, err := NewSession(conn, cfg)
		if err != nil {
			cfg.Logger.Error("session setup failed", "error", err)
			conn.Close()
			return
		}
		session.Start()
	})
}
