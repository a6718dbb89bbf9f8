package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetConversation returns a session with its full ordered message list.
// GET /api/conversations/:session_id
func (h *Handler) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}

	conversation, err := h.service.GetConversation(ctx, sessionID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: failed to get conversation: %v", err)
			return c.JSON(status, map[string]string{"error": "Error retrieving conversation history."})
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, conversation)
}

// ListConversations returns a user's sessions, newest first.
// GET /api/users/:user_id/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}

	sessions, err := h.service.ListConversations(ctx, userID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: failed to list conversations: %v", err)
			return c.JSON(status, map[string]string{"error": "Error retrieving conversations."})
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": sessions,
	})
}
