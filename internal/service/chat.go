package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"shopchat/internal/adapter/llm"
	"shopchat/internal/domain"
)

// apologyMessage replaces an empty generation result; an AI message is never
// persisted empty.
const apologyMessage = "I'm sorry, I couldn't generate a response."

// toolAnswerInstruction asks the model for a final answer grounded in the
// tool output appended just before it.
const toolAnswerInstruction = "Based on the following tool output, please provide a comprehensive answer: "

// HandleChat runs one full turn: resolve the user and session, durably record
// the user message, call the generation service, execute at most one tool
// round trip, and persist the final AI reply. The HTTP layer validates the
// request shape before calling this.
func (s *Service) HandleChat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.UserID == nil || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("invalid chat request: userId and message are required")
	}

	user, err := s.store.GetUser(ctx, *req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("User not found with ID: %d", *req.UserID)}
	}

	// Turns on one session are serialized; turns on different sessions run in
	// parallel. For an existing conversation the lock is taken before
	// resolution so two turns cannot race on reactivation. A brand-new
	// session has no id until created and nothing to contend with.
	if req.ConversationID != nil {
		lock := s.locks.get(*req.ConversationID)
		lock.Lock()
		defer lock.Unlock()
	}

	session, err := s.resolveSession(ctx, user.ID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	if req.ConversationID == nil {
		lock := s.locks.get(session.ID)
		lock.Lock()
		defer lock.Unlock()
	}

	// The user's message is committed before any generation call so it
	// survives a generation failure. There is no rollback.
	userSeq, err := s.store.NextSequence(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence number: %w", err)
	}
	userMsg := &domain.Message{
		SessionID:      session.ID,
		SequenceNumber: userSeq,
		Sender:         domain.SenderUser,
		Content:        req.Message,
		Timestamp:      time.Now(),
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := s.store.GetMessagesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	window := buildContext(history, req.Message)

	raw, err := s.llmClient.ChatCompletion(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	finalContent := raw
	if isToolCall(raw) {
		log.Printf("INFO: session %d requested tool call: %s", session.ID, raw)
		toolOutput := s.runToolCall(ctx, raw)

		// One tool round trip per turn. The second result is final even if it
		// looks like another tool call.
		window = append(window,
			llm.ChatMessage{Role: "tool", Content: toolOutput},
			llm.ChatMessage{Role: "user", Content: toolAnswerInstruction + toolOutput},
		)
		finalContent, err = s.llmClient.ChatCompletion(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("generation failed after tool call: %w", err)
		}
	}

	if strings.TrimSpace(finalContent) == "" {
		finalContent = apologyMessage
	}

	aiSeq, err := s.store.NextSequence(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence number: %w", err)
	}
	aiMsg := &domain.Message{
		SessionID:      session.ID,
		SequenceNumber: aiSeq,
		Sender:         domain.SenderAI,
		Content:        finalContent,
		Timestamp:      time.Now(),
	}
	if err := s.store.CreateMessage(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("failed to save AI message: %w", err)
	}

	now := time.Now()
	session.EndTime = &now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return &domain.ChatResponse{
		ConversationID: session.ID,
		MessageID:      aiMsg.ID,
		Response:       aiMsg.Content,
		Timestamp:      aiMsg.Timestamp,
		Sender:         aiMsg.Sender,
	}, nil
}
