package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/audit"
	"github.com/supportchat/backend/pkg/logger"
)

const defaultHistoryLimit = 50

type HistoryHandler struct {
	store *audit.Store
}

func NewHistoryHandler(store *audit.Store) *HistoryHandler {
	return &HistoryHandler{
		store: store,
	}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "conversation_id is required",
		})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}

	turns, err := h.store.GetTurns(conversationID, limit)
	if err != nil {
		logger.Error("Failed to load conversation history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	items := make([]fiber.Map, 0, len(turns))
	for _, t := range turns {
		items = append(items, fiber.Map{
			"turn_id":            t.ID,
			"message":            t.Message,
			"response":           t.Response,
			"intent":             t.Intent,
			"confidence":         t.Confidence,
			"bias_score":         t.BiasScore,
			"hallucination_risk": t.HallucinationRisk,
			"grounded":           t.Grounded,
			"ambiguous":          t.Ambiguous,
			"handoff_reason":     t.HandoffReason,
			"created_at":         t.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"conversation_id": conversationID,
		"turns":           items,
	})
}
