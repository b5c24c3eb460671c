package handler

import (
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/pkg/serverutils"
	"floatchat-be/internal/service"
	internalWS "floatchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ChatHandler struct {
	chat      service.IChatService
	sessions  internalWS.SessionRegistry
	jwtSecret string
	logger    logger.ILogger
}

// NewChatHandler builds the /ws endpoint. With an empty jwtSecret the socket
// is open to anonymous clients.
func NewChatHandler(chat service.IChatService, sessions internalWS.SessionRegistry, jwtSecret string, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *ChatHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the handshake when a secret is configured, then
// upgrades the connection.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID := ""
	if h.jwtSecret != "" {
		tokenStr := serverutils.TokenFromRequest(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
		}
		id, err := serverutils.ParseToken(tokenStr, h.jwtSecret)
		if err != nil {
			h.logger.Warn("ChatHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		userID = id
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(conn, h.chat, h.sessions, userID, h.logger)
	})(c)
}
