package handler

import (
	"flowchat-be/internal/pkg/logger"
	internalWS "flowchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type RealtimeHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewRealtimeHandler(hub *internalWS.Hub, log logger.ILogger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *RealtimeHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs upgrades the request and runs the realtime protocol on it.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	remote := c.IP()
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"remote": remote})
		internalWS.ServeWs(h.hub, conn, h.logger)
		h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"remote": remote})
	})(c)
}
