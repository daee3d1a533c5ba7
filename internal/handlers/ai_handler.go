package handlers

import (
	"errors"
	"net/http"

	"go-pos-backoffice/internal/ai"
	"go-pos-backoffice/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

func (h *Handler) AskAI(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.Validation("message is required"))
		return
	}

	// 1. Run the agent
	reply, err := h.Assistant.Ask(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		h.respondError(c, apperrors.New(apperrors.CodeDependencyFailure, "assistant is not configured", http.StatusServiceUnavailable))
		return
	case err != nil:
		h.respondError(c, apperrors.DependencyFailure("assistant request failed", err))
		return
	}

	// 2. Return the answer
	respond(c, http.StatusOK, gin.H{"reply": reply})
}
