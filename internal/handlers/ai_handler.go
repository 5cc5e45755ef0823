package handlers

import (
	"context"
	"errors"
	"net/http"

	"go-storefront/internal/ai"
	"go-storefront/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Asker is satisfied by *ai.Assistant.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

type AIHandler struct {
	assistant Asker
}

func NewAIHandler(assistant Asker) *AIHandler {
	return &AIHandler{assistant: assistant}
}

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

// --- POST: /api/admin/ask ---
func (h *AIHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("message is required"))
		return
	}

	reply, err := h.assistant.Ask(c.Request.Context(), req.Message)
	if errors.Is(err, ai.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured", "code": "UNAVAILABLE"})
		return
	}
	if err != nil {
		respondError(c, apperr.Internal(err, "assistant"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
