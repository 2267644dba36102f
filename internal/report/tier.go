package report

import (
	"fmt"
	"strings"
)

// Tier is the pricing tier chosen on the pricing view.
type Tier string

const (
	TierExpress   Tier = "EXPRESS"
	TierStrategic Tier = "STRATEGIC"
	TierPrime     Tier = "PRIME"
)

// DefaultTier is preselected before the user picks one.
const DefaultTier = TierStrategic

// Tiers lists tiers in display order.
var Tiers = []Tier{TierExpress, TierStrategic, TierPrime}

// ParseTier accepts tier names case-insensitively.
func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToUpper(strings.TrimSpace(raw))) {
	case TierExpress:
		return TierExpress, nil
	case TierStrategic:
		return TierStrategic, nil
	case TierPrime:
		return TierPrime, nil
	}
	return "", fmt.Errorf("unknown tier %q", raw)
}

// WireMode is the "mode" value sent to the job creation endpoint.
func (t Tier) WireMode() string {
	switch t {
	case TierExpress:
		return "express"
	case TierPrime:
		return "full"
	default:
		return "strategic"
	}
}
