package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/chat"
	"github.com/srm-faq/backend/pkg/logger"
)

// WebSocketHandler serves chat over a socket, streaming the answer word by
// word before a final frame with sources and session id.
type WebSocketHandler struct {
	engine *chat.Engine
}

func NewWebSocketHandler(engine *chat.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Message   string `json:"message"`
			SessionID string `json:"session_id"`
			Humanize  *bool  `json:"humanize"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" || msg.Message == "" {
			continue
		}

		response, err := h.engine.Chat(context.Background(), chat.Request{
			Message:   msg.Message,
			SessionID: msg.SessionID,
			Humanize:  msg.Humanize,
		})
		if err != nil {
			logger.Error("Failed to process WebSocket chat", zap.Error(err))
			h.send(c, map[string]interface{}{
				"type":  "error",
				"error": "Failed to process message",
			})
			continue
		}

		if err := h.streamAnswer(c, response); err != nil {
			logger.Error("Failed to stream WebSocket answer", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, response *chat.Response) error {
	words := strings.Fields(response.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.send(c, map[string]interface{}{
			"type":    "chunk",
			"content": chunk,
		}); err != nil {
			return err
		}
	}

	return h.send(c, map[string]interface{}{
		"type":       "complete",
		"session_id": response.SessionID,
		"sources":    response.Sources,
		"humanized":  response.Humanized,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) error {
	return c.WriteJSON(msg)
}
