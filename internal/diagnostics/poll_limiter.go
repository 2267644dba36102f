package diagnostics

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	pollLimitWindow = time.Second
	// pollLimiterSweepAt bounds the per-job limiter map; terminal jobs stop
	// being polled and their entries go stale.
	pollLimiterSweepAt = 4096
)

type pollEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// pollLimiter throttles status reads to one per window for each
// (client, job) pair. The wizard polls every two seconds, so a compliant
// client never sees a 429.
type pollLimiter struct {
	mu      sync.Mutex
	entries map[string]*pollEntry
	now     func() time.Time
	window  time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{entries: map[string]*pollEntry{}, now: now, window: window}
}

func (l *pollLimiter) Allow(clientKey, jobID string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	key := clientKey + "|" + jobID

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= pollLimiterSweepAt {
			l.sweep(now)
		}
		e = &pollEntry{lim: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (l *pollLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.seen) >= l.window {
			delete(l.entries, k)
		}
	}
}

// RetryAfterSeconds is the Retry-After value sent with a 429.
func (l *pollLimiter) RetryAfterSeconds() int {
	window := pollLimitWindow
	if l != nil {
		window = l.window
	}
	return max(1, int(math.Ceil(window.Seconds())))
}
