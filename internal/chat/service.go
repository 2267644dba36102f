package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsauce-agent/internal/llm"
	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/telemetry"
)

const (
	defaultMaxTokens = 2000
	defaultTimeout   = 60 * time.Second
	newSessionID     = "new"
)

// ErrUpstream wraps model failures during Send.
var ErrUpstream = errors.New("chat upstream error")

// Service runs chat conversations.
type Service struct {
	Repo      Repo
	LLM       llm.Client
	MaxTokens int
	Timeout   time.Duration
}

// CreateSession starts an empty session.
func (s *Service) CreateSession(ctx context.Context, in SessionInput) (Session, error) {
	prompt := strings.TrimSpace(in.SystemPrompt)
	if prompt == "" {
		prompt = SystemPrompt(in.DiagnosticContext)
	}
	now := time.Now().UTC()
	sess := Session{
		ID:                uuid.NewString(),
		DiagnosticID:      in.DiagnosticID,
		DiagnosticContext: in.DiagnosticContext,
		SystemPrompt:      prompt,
		Messages:          []Message{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns a session with its history.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.Repo.Get(ctx, id)
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// Send appends the user message and the assistant reply. An unknown
// session id is created on the fly; "new" or empty gets a fresh id.
func (s *Service) Send(ctx context.Context, in SendInput) (Reply, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	sess, err := s.resolveSession(ctx, in)
	if err != nil {
		return Reply{}, err
	}

	history := append(append([]Message{}, sess.Messages...), Message{Role: RoleUser, Content: in.Message})

	var response string
	source := "llm"
	if llm.IsConfigured(s.LLM) {
		response, err = s.complete(ctx, sess.SystemPrompt, history)
		if err != nil {
			telemetry.Error("chat.llm.failed", map[string]any{"session_id": sess.ID, "error": err})
			return Reply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	} else {
		source = "placeholder"
		response = PlaceholderReply(in.Message)
	}

	assistant := Message{Role: RoleAssistant, Content: response}
	if err := s.Repo.AppendMessages(ctx, sess.ID, history[len(history)-1], assistant); err != nil {
		return Reply{}, fmt.Errorf("append messages: %w", err)
	}
	metrics.IncChatMessages(source)

	return Reply{
		SessionID: sess.ID,
		Response:  response,
		Messages:  append(history, assistant),
	}, nil
}

func (s *Service) resolveSession(ctx context.Context, in SendInput) (Session, error) {
	id := strings.TrimSpace(in.SessionID)
	if id != "" && id != newSessionID {
		sess, err := s.Repo.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Session{}, fmt.Errorf("load session: %w", err)
		}
	} else {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	sess := Session{
		ID:                id,
		DiagnosticContext: in.DiagnosticContext,
		SystemPrompt:      SystemPrompt(in.DiagnosticContext),
		Messages:          []Message{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	telemetry.Info("chat.session.created", map[string]any{"session_id": id})
	return sess, nil
}

func (s *Service) complete(ctx context.Context, system string, history []Message) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	out, err := s.LLM.Complete(ctx, llm.Request{System: system, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return out, nil
}
