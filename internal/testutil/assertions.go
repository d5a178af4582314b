package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/statbuff/internal/stat"
)

// StatEpsilon допуск для сравнения значений стата.
const StatEpsilon = 1e-9

// AssertStatConsistent проверяет, что Value() стата равен
// (base + Σflat) * (1 + Σpercent) по текущему набору модификаторов.
func AssertStatConsistent(t testing.TB, s *stat.Stat) bool {
	t.Helper()

	flat, percent := 0.0, 0.0
	for _, m := range s.Modifiers() {
		flat += m.Flat()
		percent += m.Percent()
	}
	want := (s.Base() + flat) * (1 + percent)

	return assert.InDelta(t, want, s.Value(), StatEpsilon,
		"stat value out of sync: base=%v flat=%v percent=%v", s.Base(), flat, percent)
}

// AssertStatValue проверяет значение стата и его согласованность с модификаторами.
func AssertStatValue(t testing.TB, expected float64, s *stat.Stat) bool {
	t.Helper()

	if !AssertStatConsistent(t, s) {
		return false
	}
	return assert.InDelta(t, expected, s.Value(), StatEpsilon)
}
