package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"shopchat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.HandleChat)
	e.GET("/api/conversations/:session_id", h.GetConversation)
	e.GET("/api/users/:user_id/conversations", h.ListConversations)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// statusFor maps service errors to HTTP status codes. Ownership mismatches
// map to 404, not 403, so a non-owner cannot confirm a session exists.
func statusFor(err error) int {
	var nf *service.NotFoundError
	var ua *service.UnauthorizedError
	if errors.As(err, &nf) || errors.As(err, &ua) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
