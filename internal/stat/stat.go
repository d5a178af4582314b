package stat

import "slices"

// Stat is a base value plus an insertion-ordered list of timed modifiers.
//
// Value is recomputed on every mutation:
//
//	value = (base + Σflat) * (1 + Σpercent)
//
// Percents are additive, not compounding. No clamping is applied.
//
// Not safe for concurrent use.
type Stat struct {
	base      float64
	value     float64
	modifiers []*TimedModifier
}

// New creates a Stat with the given base value.
func New(base float64) *Stat {
	s := &Stat{base: base}
	s.recalculate()
	return s
}

// Base returns the base value.
func (s *Stat) Base() float64 { return s.base }

// Value returns the derived current value.
func (s *Stat) Value() float64 { return s.value }

// SetBase replaces the base value.
func (s *Stat) SetBase(v float64) {
	s.base = v
	s.recalculate()
}

// AddModifier appends m. The same pointer added twice counts twice.
func (s *Stat) AddModifier(m *TimedModifier) {
	s.modifiers = append(s.modifiers, m)
	s.recalculate()
}

// RemoveModifier removes m (by identity). Removing an absent modifier is a no-op.
func (s *Stat) RemoveModifier(m *TimedModifier) {
	if i := slices.Index(s.modifiers, m); i >= 0 {
		s.modifiers = slices.Delete(s.modifiers, i, i+1)
	}
	s.recalculate()
}

// Tick advances every modifier by dt, then drops the expired ones.
// Value is recomputed once, and only if something was dropped.
func (s *Stat) Tick(dt float64) {
	for _, m := range s.modifiers {
		m.Tick(dt)
	}

	n := len(s.modifiers)
	s.modifiers = slices.DeleteFunc(s.modifiers, (*TimedModifier).Expired)
	if len(s.modifiers) != n {
		s.recalculate()
	}
}

// Modifiers returns a copy of the active modifiers in insertion order.
func (s *Stat) Modifiers() []*TimedModifier {
	return slices.Clone(s.modifiers)
}

// Len returns the number of active modifiers.
func (s *Stat) Len() int { return len(s.modifiers) }

func (s *Stat) recalculate() {
	flatSum := 0.0
	percentSum := 0.0

	for _, m := range s.modifiers {
		flatSum += m.flat
		percentSum += m.percent
	}

	s.value = (s.base + flatSum) * (1 + percentSum)
}
