// Package api provides HTTP handlers for the chat orchestrator.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/service"
	"github.com/guardchat/orchestrator/store"
)

// Handler handles HTTP requests.
type Handler struct {
	svc    *service.Service
	store  store.Store
	logger *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, store store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat", h.HandleChat)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
