package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/telemetry"
)

const (
	// SubjectDiagnosticUpdate carries every job phase or status change.
	SubjectDiagnosticUpdate = "marketsauce.diagnostic.update"
	TypeDiagnosticUpdate    = "diagnostic.update"
)

// Update is published whenever a diagnostic job changes phase or status.
type Update struct {
	Type         string    `json:"type"`
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	CurrentPhase int       `json:"current_phase"`
	PhaseName    string    `json:"phase_name"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher announces job updates to interested listeners.
type Publisher interface {
	PublishUpdate(ctx context.Context, u Update) error
	Close()
}

// NopPublisher drops every update.
type NopPublisher struct{}

func (NopPublisher) PublishUpdate(ctx context.Context, u Update) error { return nil }
func (NopPublisher) Close()                                            {}

// msgPublisher is the subset of *nats.Conn we need.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes updates as JSON on SubjectDiagnosticUpdate.
type NATSPublisher struct {
	conn    msgPublisher
	closer  func()
	subject string
}

// Connect dials NATS at url. An empty url yields a NopPublisher.
func Connect(url string) (Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return NopPublisher{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("marketsauce-agent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			telemetry.Warn("events.nats.disconnected", map[string]any{"error": err})
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			telemetry.Info("events.nats.reconnected", map[string]any{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc, closer: nc.Close, subject: SubjectDiagnosticUpdate}, nil
}

// PublishUpdate stamps and publishes u, injecting trace context into headers.
func (p *NATSPublisher) PublishUpdate(ctx context.Context, u Update) error {
	if u.Type == "" {
		u.Type = TypeDiagnosticUpdate
	}
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}
	data, err := json.Marshal(u)
	if err != nil {
		metrics.IncEventsPublished(false)
		return err
	}
	msg := &nats.Msg{Subject: p.subject, Data: data, Header: nats.Header{}}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(msg.Header))
	if err := p.conn.PublishMsg(msg); err != nil {
		metrics.IncEventsPublished(false)
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	metrics.IncEventsPublished(true)
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}

// headerCarrier adapts nats.Header to the OTel TextMapCarrier interface.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string { return nats.Header(c).Get(key) }
func (c headerCarrier) Set(key, val string)   { nats.Header(c).Set(key, val) }
func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
