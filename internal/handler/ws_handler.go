/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

Authentication happens inside the relay protocol (the first "auth" frame), so the upgrade
itself only needs to pass the rate limiter and the origin check.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"marketchat/internal/app/chat"
	"marketchat/internal/pkg/limiter"
	"marketchat/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and hands the connection to the relay.
// It returns once the connection is closed.
func HandleWebSocket(relay *chat.Relay, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "ip", logx.AnonymizeIP(limiter.ClientIP(r)), "error", err.Error())
			return
		}

		relay.Serve(r.Context(), conn)
	}
}
