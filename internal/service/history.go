package service

import (
	"context"
	"fmt"

	"shopchat/internal/domain"
)

// GetConversation returns a session with its full ordered message list.
func (s *Service) GetConversation(ctx context.Context, sessionID int64) (*domain.Conversation, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("Conversation session not found with ID: %d", sessionID)}
	}

	messages, err := s.store.GetMessagesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &domain.Conversation{Session: *session, Messages: messages}, nil
}

// ListConversations returns a user's sessions, newest first.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]domain.Session, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("User not found with ID: %d", userID)}
	}

	sessions, err := s.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return sessions, nil
}
