package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/chat"
	"github.com/srm-faq/backend/internal/storage/sqlite"
	"github.com/srm-faq/backend/pkg/logger"
)

const defaultHistoryLimit = 50

type ChatHandler struct {
	engine  *chat.Engine
	convlog *sqlite.Client
}

func NewChatHandler(engine *chat.Engine, convlog *sqlite.Client) *ChatHandler {
	return &ChatHandler{
		engine:  engine,
		convlog: convlog,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		Humanize  *bool  `json:"humanize"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Message == "" {
		return badRequest(c, "Message is required")
	}

	response, err := h.engine.Chat(c.Context(), chat.Request{
		Message:   req.Message,
		SessionID: req.SessionID,
		Humanize:  req.Humanize,
	})
	if err != nil {
		logger.Error("Failed to process chat", zap.Error(err))
		return providerAwareError(c, err, "Failed to process chat")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    response,
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return badRequest(c, "session_id is required")
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)

	exchanges, err := h.convlog.GetSessionHistory(c.Context(), sessionID, limit)
	if err != nil {
		logger.Error("Failed to get session history", zap.Error(err))
		return internalError(c, "Failed to get session history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    exchanges,
		"total":   len(exchanges),
	})
}
