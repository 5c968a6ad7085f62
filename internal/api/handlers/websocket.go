package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stm-analytics/scout-go/internal/websocket"
	"github.com/stm-analytics/scout-go/pkg/utils"
)

// WebSocketHandler upgrades the connection and attaches the client to
// the run-event hub.
func (h *Handlers) WebSocketHandler(c *gin.Context) {
	websocket.ServeWS(h.hub, c.Writer, c.Request, h.logger)
}

// GetWebSocketStats reports connected client counts
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	utils.SendSuccess(c, h.hub.Stats())
}
