package catalog

import (
	"fmt"
	"maps"
	"slices"

	"github.com/udisondev/statbuff/internal/stat"
)

// Sheet is the named set of stats of one owner (character, unit).
type Sheet struct {
	stats map[string]*stat.Stat
}

// NewSheet creates a stat for every name → base value pair.
func NewSheet(bases map[string]float64) *Sheet {
	s := &Sheet{stats: make(map[string]*stat.Stat, len(bases))}
	for name, base := range bases {
		s.stats[name] = stat.New(base)
	}
	return s
}

// Stat returns the stat called name.
func (s *Sheet) Stat(name string) (*stat.Stat, error) {
	st, ok := s.stats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
	return st, nil
}

// Names returns stat names sorted alphabetically.
func (s *Sheet) Names() []string {
	return slices.Sorted(maps.Keys(s.stats))
}

// Values returns the current value of every stat.
func (s *Sheet) Values() map[string]float64 {
	result := make(map[string]float64, len(s.stats))
	for name, st := range s.stats {
		result[name] = st.Value()
	}
	return result
}
