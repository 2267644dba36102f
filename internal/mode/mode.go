// Package mode holds the session's DEMO/LIVE flag.
package mode

import "sync"

// Mode selects between the live backend and locally generated content.
type Mode string

const (
	Demo Mode = "DEMO"
	Live Mode = "LIVE"
)

// Switch is the session-scoped mode flag. It starts in DEMO, is decided
// once by the availability probe and can only ever move LIVE to DEMO.
type Switch struct {
	mu      sync.RWMutex
	mode    Mode
	decided bool
}

// NewSwitch returns an undecided switch in DEMO.
func NewSwitch() *Switch {
	return &Switch{mode: Demo}
}

// Fixed returns a switch already decided to m, mostly for tests.
func Fixed(m Mode) *Switch {
	if m != Live {
		m = Demo
	}
	return &Switch{mode: m, decided: true}
}

// Decide records the probe result. Only the first call has an effect.
func (s *Switch) Decide(available bool) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.decided {
		s.decided = true
		if available {
			s.mode = Live
		}
	}
	return s.mode
}

// Degrade forces DEMO for the rest of the session. It reports whether
// the mode changed.
func (s *Switch) Degrade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decided = true
	if s.mode == Demo {
		return false
	}
	s.mode = Demo
	return true
}

// Mode returns the current mode.
func (s *Switch) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// IsDemo reports whether the current mode is DEMO.
func (s *Switch) IsDemo() bool { return s.Mode() == Demo }

// Decided reports whether Decide or Degrade has been called.
func (s *Switch) Decided() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decided
}
