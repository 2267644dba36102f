package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates readiness checks behind /health/ready.
type Service struct {
	DB Pinger
	// LLMConfigured and ResearchKeyed are reported, never failed on:
	// the pipeline degrades to placeholder output without them.
	LLMConfigured bool
	ResearchKeyed bool
}

// Check is one component's state.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the readiness payload.
type Report struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks"`
}

// NewService constructs a new health service.
func NewService(db Pinger, llmConfigured, researchKeyed bool) *Service {
	return &Service{DB: db, LLMConfigured: llmConfigured, ResearchKeyed: researchKeyed}
}

// Ready reports whether the store answers. Only the database can make
// the service unready.
func (s *Service) Ready(ctx context.Context) (Report, bool) {
	rep := Report{Status: "healthy", Checks: map[string]Check{}}
	ok := true

	switch {
	case s.DB == nil:
		rep.Checks["database"] = Check{Status: "memory"}
	default:
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.DB.PingContext(ctx)
		cancel()
		if err != nil {
			ok = false
			rep.Status = "unhealthy"
			rep.Checks["database"] = Check{Status: "down", Error: err.Error()}
		} else {
			rep.Checks["database"] = Check{Status: "up"}
		}
	}
	rep.Checks["llm"] = Check{Status: configured(s.LLMConfigured)}
	rep.Checks["research"] = Check{Status: configured(s.ResearchKeyed)}
	return rep, ok
}

func configured(v bool) string {
	if v {
		return "configured"
	}
	return "placeholder"
}
