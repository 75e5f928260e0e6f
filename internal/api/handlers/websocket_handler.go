package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/moderation/intent"
	"github.com/supportchat/backend/internal/orchestrator"
	"github.com/supportchat/backend/pkg/logger"
)

type WebSocketHandler struct {
	pipeline *orchestrator.Orchestrator
}

func NewWebSocketHandler(pipeline *orchestrator.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
	}
}

type wsMessage struct {
	Type           string        `json:"type"`
	Content        string        `json:"content"`
	ConversationID string        `json:"conversation_id"`
	UserID         string        `json:"user_id"`
	History        []chatMessage `json:"history"`
	Location       string        `json:"location"`
	Topic          string        `json:"topic"`
	PageContext    string        `json:"page_context"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsMessage

		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "message" {
			continue
		}

		if err := h.streamTurn(c, msg); err != nil {
			logger.Error("Failed to stream turn", zap.Error(err))
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamTurn(c *websocket.Conn, msg wsMessage) error {
	req := orchestrator.Request{
		Message:        msg.Content,
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		History:        seedMessages(msg.History),
	}
	if msg.Location != "" || msg.Topic != "" || msg.PageContext != "" {
		req.Context = &intent.Context{
			Location:    msg.Location,
			Topic:       msg.Topic,
			PageContext: msg.PageContext,
		}
	}

	h.sendChunk(c, "status", "Processing message...")

	pkg, err := h.pipeline.Process(context.Background(), req)
	if err != nil {
		return err
	}

	words := splitIntoWords(pkg.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, pkg)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

// sendComplete carries the whole response package so the client can
// render bias, fact-check and handoff state after streaming ends.
func (h *WebSocketHandler) sendComplete(c *websocket.Conn, pkg *orchestrator.Package) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    "complete",
		"package": pkg,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
