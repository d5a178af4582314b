package stat

// Modifier is one additive/multiplicative contribution to a stat.
// Flat is added to the base value, Percent is summed with the other
// percents and applied as a single multiplier (0.2 = +20%).
type Modifier struct {
	Flat    float64
	Percent float64
}

// NewModifier creates a Modifier.
func NewModifier(flat, percent float64) Modifier {
	return Modifier{Flat: flat, Percent: percent}
}

// TimedModifier is a Modifier with its own remaining duration (seconds).
// Created when a buff is applied; once expired it is removed and never reused.
type TimedModifier struct {
	flat      float64
	percent   float64
	remaining float64
}

// NewTimedModifier creates a TimedModifier from m.
// A duration <= 0 yields an already expired instance.
func NewTimedModifier(m Modifier, duration float64) *TimedModifier {
	return &TimedModifier{
		flat:      m.Flat,
		percent:   m.Percent,
		remaining: duration,
	}
}

// Tick advances the timer by dt.
// Returns true only on the call that brought the remaining time to <= 0.
// An already expired instance is left untouched and returns false.
func (tm *TimedModifier) Tick(dt float64) bool {
	if tm.remaining <= 0 {
		return false
	}

	tm.remaining -= dt
	return tm.remaining <= 0
}

// Expired reports whether the remaining time has run out.
func (tm *TimedModifier) Expired() bool {
	return tm.remaining <= 0
}

// RemainingTime returns remaining seconds, clamped at 0.
func (tm *TimedModifier) RemainingTime() float64 {
	return max(tm.remaining, 0)
}

func (tm *TimedModifier) Flat() float64    { return tm.flat }
func (tm *TimedModifier) Percent() float64 { return tm.percent }

// Modifier returns the contribution as a value.
func (tm *TimedModifier) Modifier() Modifier {
	return Modifier{Flat: tm.flat, Percent: tm.percent}
}
