// Package notify carries transient user-facing messages (toasts).
package notify

import (
	"sync"
	"time"
)

// Level is the toast severity.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// DefaultDismissAfter is how long a toast stays visible.
const DefaultDismissAfter = 5 * time.Second

// Toast is one message.
type Toast struct {
	Message string
	Level   Level
}

// Notifier receives toasts. Implementations must not block.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify calls f.
func (f NotifierFunc) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Notifier = NotifierFunc(func(Toast) {})

// Event is emitted on Channel.Events when a toast is shown or dismissed.
type Event struct {
	Toast     Toast
	Dismissed bool
}

// ChannelOptions configures a Channel. Zero values use defaults.
type ChannelOptions struct {
	DismissAfter time.Duration
	Buffer       int
	// Dismissed is called after a toast times out or is replaced.
	Dismissed func(Toast)
}

// Channel shows one toast at a time. A new toast replaces the visible
// one, and each toast is dismissed automatically after DismissAfter.
type Channel struct {
	mu      sync.Mutex
	opts    ChannelOptions
	current *Toast
	seq     uint64
	timer   *time.Timer
	events  chan Event
	closed  bool
}

// NewChannel builds a Channel.
func NewChannel(opts ChannelOptions) *Channel {
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = DefaultDismissAfter
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	return &Channel{opts: opts, events: make(chan Event, opts.Buffer)}
}

// Events streams show and dismiss events. Events are dropped when the
// buffer is full so Notify never blocks.
func (c *Channel) Events() <-chan Event { return c.events }

// Notify shows t, replacing any visible toast.
func (c *Channel) Notify(t Toast) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	replaced := c.current
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.current = &t
	c.timer = time.AfterFunc(c.opts.DismissAfter, func() { c.expire(seq) })
	if replaced != nil {
		c.emit(Event{Toast: *replaced, Dismissed: true})
	}
	c.emit(Event{Toast: t})
	c.mu.Unlock()

	if replaced != nil && c.opts.Dismissed != nil {
		c.opts.Dismissed(*replaced)
	}
}

// Current returns the visible toast.
func (c *Channel) Current() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Toast{}, false
	}
	return *c.current, true
}

// Dismiss hides the visible toast now.
func (c *Channel) Dismiss() {
	c.mu.Lock()
	c.expireLocked(c.seq)
}

// Close stops timers and closes Events.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.current = nil
	close(c.events)
}

func (c *Channel) expire(seq uint64) {
	c.mu.Lock()
	c.expireLocked(seq)
}

// expireLocked is called with c.mu held and releases it.
func (c *Channel) expireLocked(seq uint64) {
	if c.closed || c.current == nil || seq != c.seq {
		c.mu.Unlock()
		return
	}
	gone := *c.current
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
	}
	c.emit(Event{Toast: gone, Dismissed: true})
	c.mu.Unlock()

	if c.opts.Dismissed != nil {
		c.opts.Dismissed(gone)
	}
}

func (c *Channel) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// Recorder keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify records t.
func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Toasts returns a copy of what was recorded.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}
