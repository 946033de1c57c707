package handler

import (
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/service"
	internalWS "sloth-wake-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionFeedHandler streams a session's decisions over a websocket so a
// second device can follow along.
type SessionFeedHandler struct {
	service service.IWakeSessionService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewSessionFeedHandler(service service.IWakeSessionService, hub *internalWS.Hub, log logger.ILogger) *SessionFeedHandler {
	return &SessionFeedHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *SessionFeedHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/session/v1/:id/ws", h.ServeWs)
}

func (h *SessionFeedHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	// Unknown ids are rejected before the upgrade so clients get a 404.
	if _, err := h.service.Get(c.UserContext(), sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionFeedHandler", "Starting WebSocket feed", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID)
		h.logger.Info("SessionFeedHandler", "WebSocket feed ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}
