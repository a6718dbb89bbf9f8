package domain

import "time"

// ChatRequest is the inbound turn request. UserID and ConversationID are
// pointers so that "missing" is distinguishable from zero.
type ChatRequest struct {
	UserID         *int64 `json:"userId"`
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversationId,omitempty"`
}

// ChatResponse is the outbound turn response. Sender is always AI.
type ChatResponse struct {
	ConversationID int64      `json:"conversationId"`
	MessageID      int64      `json:"messageId"`
	Response       string     `json:"response"`
	Timestamp      time.Time  `json:"timestamp"`
	Sender         SenderType `json:"sender"`
}
