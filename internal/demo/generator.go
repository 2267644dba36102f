// Package demo produces the locally generated diagnostic and chat replies
// used when the backend is unavailable.
package demo

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"marketsauce-agent/internal/report"
)

// DefaultPhaseInterval is the cadence of the phase animation.
const DefaultPhaseInterval = 800 * time.Millisecond

// Generator animates the phase list and returns the demo report.
type Generator struct {
	Interval time.Duration
}

// NewGenerator returns a Generator with the default cadence.
func NewGenerator() *Generator {
	return &Generator{Interval: DefaultPhaseInterval}
}

// Generate advances through phases, calling onPhase after each interval,
// then returns Result(intake). Cancelling ctx stops the animation and
// returns ctx.Err() with no further callbacks.
func (g *Generator) Generate(ctx context.Context, intake report.IntakeData, phases []string, onPhase func(report.Progress)) (report.DiagnosticResult, error) {
	interval := g.interval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i, name := range phases {
		if i > 0 {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return report.DiagnosticResult{}, ctx.Err()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return report.DiagnosticResult{}, ctx.Err()
		}
		if onPhase != nil {
			onPhase(report.Progress{Index: i + 1, Name: name, Total: len(phases)})
		}
	}
	if err := ctx.Err(); err != nil {
		return report.DiagnosticResult{}, err
	}
	return Result(intake), nil
}

func (g *Generator) interval() time.Duration {
	if g == nil || g.Interval <= 0 {
		return DefaultPhaseInterval
	}
	return g.Interval
}

var cannedReplies = []string{
	`Based on your diagnostic, here's my recommendation: Your primary persona is struggling with clarity on their path forward. Consider creating a "quick win" resource that demonstrates your methodology in action.`,
	`Looking at your competitive positioning, the biggest gap I see is in personalized implementation support. You could differentiate by offering a "done-with-you" service tier.`,
	`For your target market, the emotional trigger that resonates most is the fear of wasting time on strategies that don't work. Your messaging should lead with transformation outcomes, not features.`,
	`Your market research shows three key opportunities: 1) Community-led growth through workshops, 2) Productized services with clear outcomes, 3) Content that addresses specific pain points rather than general advice.`,
	`The competitive analysis reveals that most players focus on theory over implementation. Position yourself as the "implementation partner" - the one who helps them actually execute, not just plan.`,
}

// CannedReplies returns a copy of the reply pool.
func CannedReplies() []string {
	return append([]string(nil), cannedReplies...)
}

// Replies picks canned chat replies. It is safe for concurrent use.
type Replies struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewReplies uses rng for selection; nil seeds from the clock.
func NewReplies(rng *rand.Rand) *Replies {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Replies{rng: rng}
}

// Pick returns one reply chosen uniformly from the pool.
func (r *Replies) Pick() string {
	return cannedReplies[r.Intn(len(cannedReplies))]
}

// Intn draws from the shared source, for callers that need other
// randomized choices such as the thinking delay.
func (r *Replies) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
