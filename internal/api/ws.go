package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/notify"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated clients onto the realtime feed.
type WSHandler struct {
	hub    *notify.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *notify.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Subscribe handles GET /v1/ws. The room is the tenant from the token;
// there is no way to ask for another one.
func (h *WSHandler) Subscribe(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if err := h.hub.ServeWS(c.Writer, c.Request, tenantID); err != nil {
		// The upgrader has already answered the client.
		h.logger.Warn("websocket upgrade failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}
