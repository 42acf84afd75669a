package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatInput defines the structure of the JSON request body.
type ChatInput struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// ChatAI is the handler for POST /v1/admin/ai/chat
func (h *Handlers) ChatAI(c *gin.Context) {
	if h.AIService == nil {
		fail(c, http.StatusServiceUnavailable, "AI assistant is not configured")
		return
	}

	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	answer, tokens, err := h.AIService.GenerateResponse(c.Request.Context(), input.Message)
	if err != nil {
		h.logger().Error("ai chat failed", zap.Error(err))
		fail(c, http.StatusServiceUnavailable, "AI service unavailable")
		return
	}

	userID, _ := currentUser(c)
	h.logger().Info("ai chat", zap.Int64("user_id", userID), zap.Int("tokens", tokens))

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": answer,
		"tokens":   tokens,
	})
}
