package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/domain"
	"github.com/guardchat/orchestrator/service"
)

// rejectedResponse is the 400 body for a turn blocked by input screening. The
// scores are surfaced for transparency.
type rejectedResponse struct {
	Error            string                  `json:"error"`
	SessionID        string                  `json:"sessionId"`
	GuardrailsScores domain.GuardrailsScores `json:"guardrailsScores"`
}

// errorResponse is the 500 body for turns that failed past screening.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleChat runs one chat turn.
// POST /v1/chat
func (h *Handler) HandleChat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}
	if req.ModelID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "modelId is required"})
	}

	resp, err := h.svc.ProcessTurn(ctx, &req)
	if err != nil {
		var rejected *service.RejectedError
		if errors.As(err, &rejected) {
			return c.JSON(http.StatusBadRequest, rejectedResponse{
				Error:            rejected.Error(),
				SessionID:        rejected.SessionID,
				GuardrailsScores: rejected.Scores,
			})
		}

		h.logger.Error("chat turn failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   "chat turn failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, resp)
}
