package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"scorekit/core"
	"scorekit/realtime"
)

// Handler returns an http.Handler that upgrades to WebSocket and streams
// leaderboard snapshots for the category named in the ?category= query
// parameter. The first frame is always the current snapshot.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		category, err := core.NormalizeCategory(core.Category(r.URL.Query().Get("category")))
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		sub := hub.Subscribe(category, 256)
		defer hub.Unsubscribe(sub)

		for snap := range sub.C {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(snap)); err != nil {
				return
			}
		}
	})
}
