// Package domain defines the core domain models for the support chatbot.
package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus represents the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusClosed  SessionStatus = "CLOSED"
	SessionStatusExpired SessionStatus = "EXPIRED"
)

// SenderType identifies who produced a message.
type SenderType string

const (
	SenderUser SenderType = "USER"
	SenderAI   SenderType = "AI"
)

// Session represents a conversation session. A session always belongs to
// exactly one user; the owner never changes after creation.
type Session struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"userId"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Status    SessionStatus `json:"status"`
	Title     string        `json:"title,omitempty"`
}

// Message is a single entry in a session's append-only log. SequenceNumber
// is unique and strictly increasing within the session; sorted ascending it
// reconstructs the exact turn order.
type Message struct {
	ID             int64           `json:"id"`
	SessionID      int64           `json:"sessionId"`
	SequenceNumber int             `json:"sequenceNumber"`
	Sender         SenderType      `json:"sender"`
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// Conversation is a session together with its full ordered message list.
type Conversation struct {
	Session
	Messages []Message `json:"messages"`
}

// ToolRequest is a structured data-lookup request parsed out of generated
// text. It is consumed immediately and never persisted.
type ToolRequest struct {
	Name  string
	Param string
	Value string
}
