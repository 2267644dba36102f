package chat

import (
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyMessage = errors.New("message is required")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a conversation anchored to a diagnostic.
type Session struct {
	ID                string    `json:"session_id"`
	DiagnosticID      string    `json:"diagnostic_id,omitempty"`
	DiagnosticContext string    `json:"diagnostic_context,omitempty"`
	SystemPrompt      string    `json:"system_prompt"`
	Messages          []Message `json:"messages"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SessionInput creates a session explicitly.
type SessionInput struct {
	DiagnosticID      string `json:"diagnostic_id"`
	DiagnosticContext string `json:"diagnostic_context"`
	SystemPrompt      string `json:"system_prompt"`
}

// SendInput is one user message. SessionID "new" or empty starts a session.
type SendInput struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	DiagnosticContext string `json:"diagnostic_context"`
}

// Reply is the result of Send.
type Reply struct {
	SessionID string    `json:"session_id"`
	Response  string    `json:"response"`
	Messages  []Message `json:"messages"`
}
