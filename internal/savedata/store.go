// Package savedata persists buff remainders in the local user data
// directory through gdata, the way desktop game saves are kept.
package savedata

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/statbuff/internal/buff"
)

// Storage location inside the gdata manager.
const (
	buffsObject   = "stat_buffs"
	buffsProperty = "remaining"
)

// document is the YAML layout of the saved property.
type document struct {
	Buffs map[string]float64 `yaml:"buffs"`
}

// Store is a buff.Store backed by one gdata object property.
// The whole {sourceID → remaining} map is loaded once and rewritten
// on every mutation.
//
// A nil manager puts the store in memory-only mode: nothing survives
// a restart, but nothing fails either.
//
// Thread-safe: all methods are protected by sync.Mutex.
type Store struct {
	mu      sync.Mutex
	manager *gdata.Manager
	buffs   map[string]float64
	loaded  bool
}

var _ buff.Store = (*Store)(nil)

// Open opens (or creates) the save directory for appName.
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("opening save data %q: %w", appName, err)
	}
	return New(m), nil
}

// New wraps an existing gdata manager. m may be nil.
func New(m *gdata.Manager) *Store {
	return &Store{manager: m}
}

func (s *Store) Get(_ context.Context, sourceID string) (buff.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return buff.Entry{}, false, err
	}

	r, ok := s.buffs[sourceID]
	if !ok {
		return buff.Entry{}, false, nil
	}
	return buff.Entry{SourceID: sourceID, RemainingTime: r}, true, nil
}

func (s *Store) Set(_ context.Context, sourceID string, remaining float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	s.buffs[sourceID] = remaining
	return s.save()
}

func (s *Store) Remove(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.buffs[sourceID]; !ok {
		return nil
	}

	delete(s.buffs, sourceID)
	return s.save()
}

// All returns entries sorted by source id.
func (s *Store) All(_ context.Context) ([]buff.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}

	result := make([]buff.Entry, 0, len(s.buffs))
	for id, r := range s.buffs {
		result = append(result, buff.Entry{SourceID: id, RemainingTime: r})
	}
	slices.SortFunc(result, func(a, b buff.Entry) int {
		return strings.Compare(a.SourceID, b.SourceID)
	})
	return result, nil
}

// load reads the saved property on first use. Must be called with mu held.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	if s.manager == nil || !s.manager.ObjectPropExists(buffsObject, buffsProperty) {
		s.buffs = make(map[string]float64)
		s.loaded = true
		return nil
	}

	data, err := s.manager.LoadObjectProp(buffsObject, buffsProperty)
	if err != nil {
		return fmt.Errorf("loading saved buffs: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding saved buffs: %w", err)
	}
	if doc.Buffs == nil {
		doc.Buffs = make(map[string]float64)
	}
	s.buffs = doc.Buffs
	s.loaded = true

	slog.Debug("saved buffs loaded", "entries", len(s.buffs))
	return nil
}

// save rewrites the saved property. Must be called with mu held.
func (s *Store) save() error {
	if s.manager == nil {
		return nil
	}

	data, err := yaml.Marshal(document{Buffs: s.buffs})
	if err != nil {
		return fmt.Errorf("encoding saved buffs: %w", err)
	}
	if err := s.manager.SaveObjectProp(buffsObject, buffsProperty, data); err != nil {
		return fmt.Errorf("saving buffs: %w", err)
	}
	return nil
}
