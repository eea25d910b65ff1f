package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sharecast/internal/logger"
	"sharecast/internal/relay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for self-hosting
	},
}

// HandleShare upgrades the request to a websocket and serves it until the
// connection closes.
//
// The request context is not used past the upgrade: the connection is
// hijacked, and the channel's own close signal governs its lifetime.
func (h *Hub) HandleShare(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("[hub] websocket upgrade error: %v", err)
		return
	}
	h.Serve(context.Background(), relay.NewWebsocketChannel(conn))
}
