// Package llm provides the chat-completion client for the generation service.
package llm

import "context"

// ChatMessage is a single role-tagged entry in the context window.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient defines the interface for generation calls.
type CompletionClient interface {
	// ChatCompletion sends the ordered context window and returns the raw
	// assistant text of the first choice.
	ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
}

// Ensure Client implements CompletionClient.
var _ CompletionClient = (*Client)(nil)
