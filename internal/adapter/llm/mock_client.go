package llm

import (
	"context"
	"sync"
)

// MockClient is a scriptable CompletionClient for tests. Each call consumes
// the next queued response and records the context window it was given.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	err       error

	// Requests holds the context window of every call, in order.
	Requests [][]ChatMessage
}

// Ensure MockClient implements CompletionClient.
var _ CompletionClient = (*MockClient)(nil)

// NewMockClient creates a mock that replies with the given responses in order.
// Once the queue is exhausted, further calls return an empty string.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// Enqueue appends responses to the reply queue.
func (m *MockClient) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// FailWith makes every subsequent call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ChatCompletion returns the next queued response.
func (m *MockClient) ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, append([]ChatMessage(nil), messages...))

	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

// Calls returns how many completions have been requested.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
