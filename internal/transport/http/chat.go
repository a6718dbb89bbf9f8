package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"shopchat/internal/domain"
)

// HandleChat handles one conversation turn.
// POST /api/chat
func (h *Handler) HandleChat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	resp, err := h.service.HandleChat(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: chat turn failed: %v", err)
			return c.JSON(status, map[string]string{"error": "An internal server error occurred: " + err.Error()})
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}
