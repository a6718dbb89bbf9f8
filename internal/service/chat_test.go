package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"shopchat/internal/adapter/llm"
	"shopchat/internal/config"
	"shopchat/internal/domain"
	"shopchat/internal/repository"
	"shopchat/policy"
	"shopchat/tests/helpers"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore, *llm.MockClient) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	mock := llm.NewMockClient()
	svc := New(db, mock, policyEngine, &config.Config{})
	return svc, db, mock
}

func seedUser(t *testing.T, db *store.SQLiteStore, id int64) {
	t.Helper()
	err := db.InsertUsers(context.Background(), []domain.User{
		{ID: id, FirstName: "Test", LastName: "User", Email: "test@example.com"},
	})
	if err != nil {
		t.Fatalf("InsertUsers: %v", err)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestHandleChatPlainResponse(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue("Hello! How can I help you today?")

	resp, err := svc.HandleChat(ctx, domain.ChatRequest{
		UserID:  int64Ptr(1),
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if resp.ConversationID == 0 {
		t.Fatalf("expected a conversation id")
	}
	if resp.Response != "Hello! How can I help you today?" {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if resp.Sender != domain.SenderAI {
		t.Fatalf("unexpected sender: %s", resp.Sender)
	}

	messages, err := db.GetMessagesBySession(ctx, resp.ConversationID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].SequenceNumber != 1 || messages[0].Sender != domain.SenderUser || messages[0].Content != "hi" {
		t.Fatalf("unexpected user message: %+v", messages[0])
	}
	if messages[1].SequenceNumber != 2 || messages[1].Sender != domain.SenderAI {
		t.Fatalf("unexpected AI message: %+v", messages[1])
	}

	// The context window opens with the system prompt and carries the new user
	// message twice: once from persisted history, once appended at the end.
	if mock.Calls() != 1 {
		t.Fatalf("expected 1 completion call, got %d", mock.Calls())
	}
	window := mock.Requests[0]
	if len(window) != 3 {
		t.Fatalf("expected 3 context entries, got %d", len(window))
	}
	if window[0].Role != "system" {
		t.Fatalf("expected system entry first, got %q", window[0].Role)
	}
	if window[1].Role != "user" || window[1].Content != "hi" {
		t.Fatalf("unexpected history entry: %+v", window[1])
	}
	if window[2].Role != "user" || window[2].Content != "hi" {
		t.Fatalf("unexpected trailing entry: %+v", window[2])
	}

	session, err := db.GetSession(ctx, resp.ConversationID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != domain.SessionStatusActive {
		t.Fatalf("expected ACTIVE session, got %s", session.Status)
	}
	if session.EndTime == nil {
		t.Fatalf("expected end time set after turn")
	}
}

func TestHandleChatContinuesConversation(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue("first reply", "second reply")

	first, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(1), Message: "hello"})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}

	second, err := svc.HandleChat(ctx, domain.ChatRequest{
		UserID:         int64Ptr(1),
		Message:        "and another thing",
		ConversationID: &first.ConversationID,
	})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected same conversation, got %d and %d", first.ConversationID, second.ConversationID)
	}

	messages, err := db.GetMessagesBySession(ctx, first.ConversationID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.SequenceNumber != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, msg.SequenceNumber)
		}
	}

	// The second turn's context window replays the whole history.
	window := mock.Requests[1]
	if len(window) != 5 {
		t.Fatalf("expected 5 context entries, got %d", len(window))
	}
	if window[2].Role != "assistant" || window[2].Content != "first reply" {
		t.Fatalf("unexpected assistant entry: %+v", window[2])
	}
}

func TestHandleChatToolRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue(
		`{"tool": "check_order_status", "order_id": 999}`,
		"I could not find order 999 in our system.",
	)

	resp, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(1), Message: "where is order 999?"})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if resp.Response != "I could not find order 999 in our system." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if mock.Calls() != 2 {
		t.Fatalf("expected 2 completion calls, got %d", mock.Calls())
	}

	second := mock.Requests[1]
	toolEntry := second[len(second)-2]
	if toolEntry.Role != "tool" || toolEntry.Content != "Order with ID 999 not found." {
		t.Fatalf("unexpected tool entry: %+v", toolEntry)
	}
	last := second[len(second)-1]
	if last.Role != "user" || !strings.HasPrefix(last.Content, "Based on the following tool output, please provide a comprehensive answer: ") {
		t.Fatalf("unexpected instruction entry: %+v", last)
	}
	if !strings.HasSuffix(last.Content, "Order with ID 999 not found.") {
		t.Fatalf("instruction entry missing tool output: %q", last.Content)
	}

	// The raw tool call is never persisted; only the final answer is.
	messages, err := db.GetMessagesBySession(ctx, resp.ConversationID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Content != "I could not find order 999 in our system." {
		t.Fatalf("unexpected persisted AI message: %q", messages[1].Content)
	}
}

func TestHandleChatSecondToolCallNotExecuted(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue(
		`{"tool": "search_products", "query": "socks"}`,
		`{"tool": "search_products", "query": "socks again"}`,
	)

	resp, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(1), Message: "find socks"})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if mock.Calls() != 2 {
		t.Fatalf("expected 2 completion calls, got %d", mock.Calls())
	}
	// The second generation result is final even when it looks like another
	// tool call.
	if resp.Response != `{"tool": "search_products", "query": "socks again"}` {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
}

func TestHandleChatConcurrentTurnsSameSession(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)

	session := &domain.Session{UserID: 1, StartTime: time.Now(), Status: domain.SessionStatusActive}
	if err := db.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	const turns = 8
	for i := 0; i < turns; i++ {
		mock.Enqueue(fmt.Sprintf("reply %d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleChat(ctx, domain.ChatRequest{
				UserID:         int64Ptr(1),
				Message:        fmt.Sprintf("question %d", i),
				ConversationID: &session.ID,
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent HandleChat failed: %v", err)
	}

	// Turns are serialized per session: sequence numbers are gap-free and
	// strictly increasing, alternating USER/AI pairs.
	messages, err := db.GetMessagesBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 2*turns {
		t.Fatalf("expected %d messages, got %d", 2*turns, len(messages))
	}
	for i, msg := range messages {
		if msg.SequenceNumber != i+1 {
			t.Fatalf("expected sequence %d at position %d, got %d", i+1, i, msg.SequenceNumber)
		}
		wantSender := domain.SenderUser
		if i%2 == 1 {
			wantSender = domain.SenderAI
		}
		if msg.Sender != wantSender {
			t.Fatalf("expected %s at sequence %d, got %s", wantSender, msg.SequenceNumber, msg.Sender)
		}
	}
}

func TestHandleChatConcurrentTurnsDifferentSessions(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)

	const turns = 8
	for i := 0; i < turns; i++ {
		mock.Enqueue(fmt.Sprintf("reply %d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleChat(ctx, domain.ChatRequest{
				UserID:  int64Ptr(1),
				Message: fmt.Sprintf("question %d", i),
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent HandleChat failed: %v", err)
	}

	sessions, err := db.ListSessionsByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessionsByUser: %v", err)
	}
	if len(sessions) != turns {
		t.Fatalf("expected %d sessions, got %d", turns, len(sessions))
	}
	for _, session := range sessions {
		messages, err := db.GetMessagesBySession(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetMessagesBySession: %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages in session %d, got %d", session.ID, len(messages))
		}
		if messages[0].SequenceNumber != 1 || messages[1].SequenceNumber != 2 {
			t.Fatalf("unexpected sequences in session %d: %d, %d",
				session.ID, messages[0].SequenceNumber, messages[1].SequenceNumber)
		}
	}
}

func TestHandleChatUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(42), Message: "hi"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestHandleChatUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)
	seedUser(t, db, 1)

	_, err := svc.HandleChat(ctx, domain.ChatRequest{
		UserID:         int64Ptr(1),
		Message:        "hi",
		ConversationID: int64Ptr(777),
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestHandleChatForeignSessionRejected(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)

	session := &domain.Session{UserID: 2, StartTime: time.Now(), Status: domain.SessionStatusActive}
	if err := db.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err := svc.HandleChat(ctx, domain.ChatRequest{
		UserID:         int64Ptr(1),
		Message:        "hi",
		ConversationID: &session.ID,
	})
	var ua *UnauthorizedError
	if !errors.As(err, &ua) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	// Nothing is written to the other user's session.
	messages, err := db.GetMessagesBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}
}

func TestHandleChatReactivatesClosedSession(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue("welcome back")

	ended := time.Now().Add(-time.Hour)
	session := &domain.Session{
		UserID:    1,
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   &ended,
		Status:    domain.SessionStatusClosed,
	}
	if err := db.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resp, err := svc.HandleChat(ctx, domain.ChatRequest{
		UserID:         int64Ptr(1),
		Message:        "hello again",
		ConversationID: &session.ID,
	})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if resp.ConversationID != session.ID {
		t.Fatalf("expected session %d, got %d", session.ID, resp.ConversationID)
	}

	got, err := db.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != domain.SessionStatusActive {
		t.Fatalf("expected ACTIVE after reactivation, got %s", got.Status)
	}
}

func TestHandleChatGenerationFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.FailWith(errors.New("upstream unavailable"))

	_, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(1), Message: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}

	sessions, err := db.ListSessionsByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessionsByUser: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	// The user message survives; no AI message is persisted.
	messages, err := db.GetMessagesBySession(ctx, sessions[0].ID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Sender != domain.SenderUser || messages[0].Content != "hi" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
}

func TestHandleChatEmptyGenerationBecomesApology(t *testing.T) {
	ctx := context.Background()
	svc, db, mock := newTestService(t)
	seedUser(t, db, 1)
	mock.Enqueue("   ")

	resp, err := svc.HandleChat(ctx, domain.ChatRequest{UserID: int64Ptr(1), Message: "hi"})
	if err != nil {
		t.Fatalf("HandleChat failed: %v", err)
	}
	if resp.Response != "I'm sorry, I couldn't generate a response." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}

	messages, err := db.GetMessagesBySession(ctx, resp.ConversationID)
	if err != nil {
		t.Fatalf("GetMessagesBySession: %v", err)
	}
	if messages[1].Content != "I'm sorry, I couldn't generate a response." {
		t.Fatalf("unexpected persisted message: %q", messages[1].Content)
	}
}
