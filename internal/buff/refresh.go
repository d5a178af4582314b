package buff

import "fmt"

// RefreshPolicy decides what happens when a buff is re-applied
// for a source id that is already active.
type RefreshPolicy int8

const (
	// RefreshExtend adds the new duration to the live remaining time.
	// Record, store and live modifier all carry the sum.
	RefreshExtend RefreshPolicy = iota
	// RefreshReplace discards the old remaining time.
	RefreshReplace
	// RefreshLegacy sums the tracked remaining time into the record and the
	// store, but the live modifier restarts with the new duration only.
	RefreshLegacy
)

func (p RefreshPolicy) String() string {
	switch p {
	case RefreshExtend:
		return "extend"
	case RefreshReplace:
		return "replace"
	case RefreshLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("RefreshPolicy(%d)", int8(p))
	}
}

// ParseRefreshPolicy parses "extend", "replace" or "legacy".
// Empty string means RefreshExtend.
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch s {
	case "", "extend":
		return RefreshExtend, nil
	case "replace":
		return RefreshReplace, nil
	case "legacy":
		return RefreshLegacy, nil
	default:
		return RefreshExtend, fmt.Errorf("unknown refresh policy %q", s)
	}
}

// refresh returns (tracked, live) remaining times for a re-applied buff.
// tracked goes to the record and the store, live seeds the new modifier.
func (p RefreshPolicy) refresh(prevTracked, prevLive, duration float64) (tracked, live float64) {
	switch p {
	case RefreshReplace:
		return duration, duration
	case RefreshLegacy:
		return prevTracked + duration, duration
	default:
		sum := max(prevLive, 0) + duration
		return sum, sum
	}
}
