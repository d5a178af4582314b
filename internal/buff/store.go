package buff

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Entry is the persisted form of one active buff.
type Entry struct {
	SourceID      string  `yaml:"source_id"`
	RemainingTime float64 `yaml:"remaining_time"`
}

// Store keeps {sourceID → remaining time} across process restarts.
// Implementations are last-write-wins per source id; no transactions required.
type Store interface {
	// Get returns the entry for sourceID. ok is false if it does not exist.
	Get(ctx context.Context, sourceID string) (e Entry, ok bool, err error)
	Set(ctx context.Context, sourceID string, remaining float64) error
	// Remove deletes the entry. Missing entries are not an error.
	Remove(ctx context.Context, sourceID string) error
	All(ctx context.Context) ([]Entry, error)
}

// MemoryStore is an in-process Store.
// Thread-safe: all methods are protected by sync.RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]float64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]float64)}
}

func (s *MemoryStore) Get(_ context.Context, sourceID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.entries[sourceID]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{SourceID: sourceID, RemainingTime: r}, true, nil
}

func (s *MemoryStore) Set(_ context.Context, sourceID string, remaining float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sourceID] = remaining
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sourceID)
	return nil
}

// All returns entries sorted by source id.
func (s *MemoryStore) All(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, 0, len(s.entries))
	for id, r := range s.entries {
		result = append(result, Entry{SourceID: id, RemainingTime: r})
	}
	slices.SortFunc(result, func(a, b Entry) int {
		return strings.Compare(a.SourceID, b.SourceID)
	})
	return result, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
