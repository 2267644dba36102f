package diagnostics

import "strings"

// Mode selects how much of the methodology the report covers.
type Mode string

const (
	ModeExpress   Mode = "express"
	ModeStrategic Mode = "strategic"
	ModeFull      Mode = "full"
)

// ParseMode normalizes a requested mode; anything unknown is strategic.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeExpress:
		return ModeExpress
	case ModeFull:
		return ModeFull
	default:
		return ModeStrategic
	}
}

// Instruction is the mode line placed at the top of the synthesis prompt.
func (m Mode) Instruction() string {
	switch m {
	case ModeExpress:
		return "Execute EXPRESS MODE: Phases 1-2 + abbreviated Executive Summary."
	case ModeFull:
		return "Execute FULL DIAGNOSTIC: All 10 phases with complete analysis."
	case ModeStrategic:
		return "Execute STRATEGIC MODE: Phases 1-5, 8-9 with full detail."
	default:
		return "Execute STRATEGIC MODE"
	}
}
