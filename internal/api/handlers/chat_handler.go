package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/conversation"
	"github.com/supportchat/backend/internal/moderation/intent"
	"github.com/supportchat/backend/internal/orchestrator"
	"github.com/supportchat/backend/pkg/logger"
)

type ChatHandler struct {
	pipeline *orchestrator.Orchestrator
}

func NewChatHandler(pipeline *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{
		pipeline: pipeline,
	}
}

type chatRequest struct {
	Message        string        `json:"message"`
	ConversationID string        `json:"conversation_id"`
	UserID         string        `json:"user_id"`
	History        []chatMessage `json:"history"`
	Context        *struct {
		Location    string `json:"location"`
		Topic       string `json:"topic"`
		PageContext string `json:"page_context"`
	} `json:"context"`
}

// chatMessage is a prior turn supplied by a client resuming a
// conversation this process has not seen.
type chatMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func seedMessages(history []chatMessage) []conversation.Message {
	if len(history) == 0 {
		return nil
	}
	msgs := make([]conversation.Message, 0, len(history))
	for _, m := range history {
		if m.Text == "" {
			continue
		}
		sender := m.Sender
		if sender != conversation.SenderBot {
			sender = conversation.SenderUser
		}
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		msgs = append(msgs, conversation.Message{
			Sender:    sender,
			Text:      m.Text,
			CreatedAt: createdAt,
		})
	}
	return msgs
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chatRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	// The validation middleware stores a sanitized copy; prefer it.
	if body, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
		if sanitized, ok := body["message"].(string); ok && sanitized != "" {
			req.Message = sanitized
		}
	}

	procReq := orchestrator.Request{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		History:        seedMessages(req.History),
	}
	if req.Context != nil {
		procReq.Context = &intent.Context{
			Location:    req.Context.Location,
			Topic:       req.Context.Topic,
			PageContext: req.Context.PageContext,
		}
	}

	pkg, err := h.pipeline.Process(c.Context(), procReq)
	if err != nil {
		logger.Error("Failed to process chat turn", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(pkg)
}
