package llm

import (
	"context"
	"errors"
)

// Roles used in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client abstracts completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// ErrNotConfigured is returned when no provider credentials are present.
var ErrNotConfigured = errors.New("llm not configured")

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// UserMessage builds a single-turn message list.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// IsConfigured reports whether c is a usable provider.
func IsConfigured(c Client) bool {
	if c == nil {
		return false
	}
	_, placeholder := c.(PlaceholderClient)
	return !placeholder
}
