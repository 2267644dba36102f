// Package conversation is the client side of the strategy chat.
package conversation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"marketsauce-agent/internal/apiclient"
	"marketsauce-agent/internal/demo"
	"marketsauce-agent/internal/mode"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat line.
type Message struct {
	Role    Role
	Content string
}

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMinDelay = 800 * time.Millisecond
	DefaultMaxDelay = 1500 * time.Millisecond

	newSessionID = "new"

	liveGreeting = "Your MarketSauce diagnostic is complete. I have deep context on your market, persona, and competitive landscape. Ask me anything to refine your strategy, develop campaigns, or generate content."
	demoGreeting = "Demo Mode: Your MarketSauce diagnostic is complete. This is a simulated chat - responses are pre-generated examples. In the full version, you would get AI-powered strategic guidance."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being sent")
	ErrClosed       = errors.New("chat session closed")
)

// Options tunes timing. Zero values use the defaults above.
type Options struct {
	Timeout  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Config wires a Session.
type Config struct {
	API     *apiclient.Client
	Mode    *mode.Switch
	Replies *demo.Replies
	// Context is the diagnostic text sent with every live message.
	Context string
	Options Options
}

// Session is one conversation about one diagnostic. Sends are single
// flight: a second Send while one is outstanding returns ErrBusy.
type Session struct {
	api     *apiclient.Client
	mode    *mode.Switch
	replies *demo.Replies
	context string
	opts    Options

	mu       sync.Mutex
	id       string
	messages []Message
	inFlight bool
	closed   bool
}

// New starts a session seeded with the assistant greeting for the
// current mode.
func New(cfg Config) *Session {
	opts := cfg.Options
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = DefaultMinDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	sw := cfg.Mode
	if sw == nil {
		sw = mode.Fixed(mode.Demo)
	}
	replies := cfg.Replies
	if replies == nil {
		replies = demo.NewReplies(nil)
	}
	greeting := liveGreeting
	if sw.IsDemo() || cfg.API == nil {
		greeting = demoGreeting
	}
	return &Session{
		api:      cfg.API,
		mode:     sw,
		replies:  replies,
		context:  cfg.Context,
		opts:     opts,
		messages: []Message{{Role: RoleAssistant, Content: greeting}},
	}
}

// ID returns the server-assigned session id, or "" before the first
// successful live exchange.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Busy reports whether a Send is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Close discards the session. An in-flight Send returns ErrClosed and
// appends nothing further.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Send appends the user message, obtains a reply and appends it. Live
// failures fall back to a canned reply and never change the mode. When
// ctx is cancelled the canned reply is still appended, keeping turns
// paired, and ctx.Err() is returned with it.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.inFlight = true
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	id := s.id
	s.mu.Unlock()

	var (
		content  string
		pinnedID string
		err      error
	)
	if s.mode.IsDemo() || s.api == nil {
		content, err = s.demoReply(ctx)
	} else {
		content, pinnedID, err = s.liveReply(ctx, id, text)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.closed {
		return Message{}, ErrClosed
	}
	if s.id == "" && pinnedID != "" {
		s.id = pinnedID
	}
	reply := Message{Role: RoleAssistant, Content: content}
	s.messages = append(s.messages, reply)
	return reply, err
}

func (s *Session) demoReply(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.thinkingDelay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return s.replies.Pick(), ctx.Err()
	case <-timer.C:
		return s.replies.Pick(), nil
	}
}

func (s *Session) thinkingDelay() time.Duration {
	spread := s.opts.MaxDelay - s.opts.MinDelay
	if spread <= 0 {
		return s.opts.MinDelay
	}
	return s.opts.MinDelay + time.Duration(s.replies.Intn(int(spread)+1))
}

type messageRequest struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	DiagnosticContext string `json:"diagnostic_context"`
}

type messageResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

func (s *Session) liveReply(ctx context.Context, id, text string) (string, string, error) {
	sessionID := id
	if sessionID == "" {
		sessionID = newSessionID
	}
	var out messageResponse
	err := s.api.DoJSON(ctx, "chat", http.MethodPost, "/api/chat/message", s.opts.Timeout, messageRequest{
		SessionID:         sessionID,
		Message:           text,
		DiagnosticContext: s.context,
	}, &out)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s.replies.Pick(), "", ctxErr
	}
	if err != nil || strings.TrimSpace(out.Response) == "" {
		return s.replies.Pick(), "", nil
	}
	return out.Response, out.SessionID, nil
}
