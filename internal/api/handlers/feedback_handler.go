package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/audit"
	"github.com/supportchat/backend/pkg/logger"
)

type FeedbackHandler struct {
	store *audit.Store
}

func NewFeedbackHandler(store *audit.Store) *FeedbackHandler {
	return &FeedbackHandler{
		store: store,
	}
}

func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		TurnID  string `json:"turn_id"`
		Helpful bool   `json:"helpful"`
		Comment string `json:"comment"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse feedback body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.TurnID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "turn_id is required",
		})
	}

	err := h.store.StoreFeedback(&audit.Feedback{
		TurnID:    req.TurnID,
		Helpful:   req.Helpful,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logger.Error("Failed to store feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	return c.JSON(fiber.Map{
		"status": "recorded",
	})
}
