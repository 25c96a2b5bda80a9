package handlers

import (
	"linkinbio-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	server *websocket.Server
}

func NewWSHandler(server *websocket.Server) *WSHandler {
	return &WSHandler{server: server}
}

// HandleWebSocket godoc
// @Summary Post update stream
// @Description Upgrade to a websocket speaking the handshake, connect, subscribe protocol.
// @Description Subscribers of /user/{id} receive create, update and delete events for that user's posts.
// @Tags websocket
// @Success 101 "Switching Protocols"
// @Failure 400 "Not a websocket upgrade"
// @Failure 503 "Server shutting down"
// @Router /updates [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.server.ServeWS(c.Writer, c.Request)
}
