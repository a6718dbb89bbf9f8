package service

import (
	"context"
	"fmt"
	"time"

	"shopchat/internal/domain"
)

// resolveSession finds the session to append the turn to. Without a
// conversation ID a fresh ACTIVE session is created. With one, the session
// must exist and belong to the caller; a CLOSED or EXPIRED session is
// reactivated and the change persisted before the turn continues.
func (s *Service) resolveSession(ctx context.Context, userID int64, conversationID *int64) (*domain.Session, error) {
	if conversationID == nil {
		session := &domain.Session{
			UserID:    userID,
			StartTime: time.Now(),
			Status:    domain.SessionStatusActive,
		}
		if err := s.store.CreateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return session, nil
	}

	session, err := s.store.GetSession(ctx, *conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("Conversation session not found with ID: %d", *conversationID)}
	}
	if session.UserID != userID {
		return nil, &UnauthorizedError{Message: "Unauthorized: Session does not belong to the user."}
	}

	if session.Status == domain.SessionStatusClosed || session.Status == domain.SessionStatusExpired {
		session.Status = domain.SessionStatusActive
		if err := s.store.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to reactivate session: %w", err)
		}
	}

	return session, nil
}
