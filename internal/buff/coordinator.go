package buff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/udisondev/statbuff/internal/stat"
)

// Value describes one buff as configured by its owner (item, skill).
type Value struct {
	SourceID string  `yaml:"source_id"`
	Flat     float64 `yaml:"flat"`
	Percent  float64 `yaml:"percent"`
	Duration float64 `yaml:"duration"` // seconds
}

// Modifier returns the flat/percent pair of v.
func (v Value) Modifier() stat.Modifier {
	return stat.NewModifier(v.Flat, v.Percent)
}

// Restored is raised during Init for every persisted buff that still has
// time left. The buff owner resolves SourceID back to a Stat and a Modifier
// and calls LoadBuff.
type Restored struct {
	SourceID      string
	RemainingTime float64
}

type subscriber struct {
	id int
	fn func(Restored)
}

// Coordinator owns the Stat → Registry associations, drives ticking and
// reconciles persisted buffs at startup.
//
// Not safe for concurrent use: callers serialize access (see gameloop.Loop).
type Coordinator struct {
	store  Store
	policy RefreshPolicy

	registries map[*stat.Stat]*Registry
	order      []*Registry // registration order, used for ticking

	subscribers []subscriber
	nextSubID   int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRefreshPolicy sets the policy used by every registry.
func WithRefreshPolicy(p RefreshPolicy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// NewCoordinator creates a Coordinator persisting through store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		policy:     RefreshExtend,
		registries: make(map[*stat.Stat]*Registry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Subscribe registers fn for Restored notifications.
// The returned func removes the subscription.
func (c *Coordinator) Subscribe(fn func(Restored)) (unsubscribe func()) {
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})

	return func() {
		c.subscribers = slices.DeleteFunc(c.subscribers, func(s subscriber) bool {
			return s.id == id
		})
	}
}

// Init reconciles persisted buffs. Entries with no time left are removed
// from the store silently; every other entry raises exactly one Restored
// notification and is left in the store untouched.
// Returns the number of notifications raised.
func (c *Coordinator) Init(ctx context.Context) (int, error) {
	entries, err := c.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing persisted buffs: %w", err)
	}

	restored := 0
	for _, e := range entries {
		if e.RemainingTime <= 0 {
			if err := c.store.Remove(ctx, e.SourceID); err != nil {
				return restored, fmt.Errorf("removing expired buff %q: %w", e.SourceID, err)
			}
			slog.Debug("discarded expired buff", "sourceID", e.SourceID)
			continue
		}

		c.notify(Restored{SourceID: e.SourceID, RemainingTime: e.RemainingTime})
		restored++
	}

	slog.Info("persisted buffs reconciled",
		"entries", len(entries),
		"restored", restored)

	return restored, nil
}

// notify calls subscribers in subscription order. Subscribers may call
// LoadBuff; the list is copied so they may also unsubscribe.
func (c *Coordinator) notify(ev Restored) {
	for _, s := range slices.Clone(c.subscribers) {
		s.fn(ev)
	}
}

// Buff applies a buff to s (refresh rules apply).
func (c *Coordinator) Buff(ctx context.Context, s *stat.Stat, sourceID string, flat, percent, duration float64) error {
	return c.registry(s).Apply(ctx, sourceID, stat.NewModifier(flat, percent), duration)
}

// LoadBuff restores a persisted buff on s (no refresh rules).
func (c *Coordinator) LoadBuff(ctx context.Context, s *stat.Stat, sourceID string, flat, percent, duration float64) error {
	return c.registry(s).Load(ctx, sourceID, stat.NewModifier(flat, percent), duration)
}

// BuffValue is Buff for a configured Value.
func (c *Coordinator) BuffValue(ctx context.Context, s *stat.Stat, v Value) error {
	return c.Buff(ctx, s, v.SourceID, v.Flat, v.Percent, v.Duration)
}

// LoadBuffValue is LoadBuff for a configured Value.
func (c *Coordinator) LoadBuffValue(ctx context.Context, s *stat.Stat, v Value) error {
	return c.LoadBuff(ctx, s, v.SourceID, v.Flat, v.Percent, v.Duration)
}

// Remove drops the buff from sourceID on s. Unknown stat or source is a no-op.
// The persisted entry is kept while another stat still holds sourceID.
func (c *Coordinator) Remove(ctx context.Context, s *stat.Stat, sourceID string) error {
	r, ok := c.registries[s]
	if !ok || !r.drop(sourceID) {
		return nil
	}
	if c.holds(sourceID) {
		return nil
	}

	if err := c.store.Remove(ctx, sourceID); err != nil {
		return fmt.Errorf("removing persisted buff %q: %w", sourceID, err)
	}
	return nil
}

// holds reports whether any registry has sourceID active.
func (c *Coordinator) holds(sourceID string) bool {
	for _, r := range c.order {
		if r.Holds(sourceID) {
			return true
		}
	}
	return false
}

// Clear drops every buff on s. Persisted entries are kept.
func (c *Coordinator) Clear(s *stat.Stat) {
	if r, ok := c.registries[s]; ok {
		r.Clear()
	}
}

// Registry returns the registry of s, if s has ever been buffed.
func (c *Coordinator) Registry(s *stat.Stat) (*Registry, bool) {
	r, ok := c.registries[s]
	return r, ok
}

// ActiveBuffs returns the active buffs on s.
func (c *Coordinator) ActiveBuffs(s *stat.Stat) []Record {
	r, ok := c.registries[s]
	if !ok {
		return nil
	}
	return r.ActiveBuffs()
}

// ActiveCount returns the number of active buffs over all stats.
func (c *Coordinator) ActiveCount() int {
	n := 0
	for _, r := range c.order {
		n += r.Len()
	}
	return n
}

// Tick advances every registry by dt seconds in registration order.
// Negative dt is treated as 0.
func (c *Coordinator) Tick(dt float64) {
	dt = max(dt, 0)
	for _, r := range c.order {
		r.Tick(dt)
	}
}

// Flush persists the current remaining time of every buff.
// Store entries are keyed by source id alone, so an expired source is
// written as 0 only when no stat still holds it, and all zeros go out
// before any live value.
func (c *Coordinator) Flush(ctx context.Context) error {
	var errs []error
	for _, r := range c.order {
		if err := r.flushExpired(ctx, c.holds); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range c.order {
		if err := r.flushActive(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes buff state before the process exits.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return fmt.Errorf("flushing buffs on shutdown: %w", err)
	}
	slog.Info("buff coordinator stopped", "active", c.ActiveCount())
	return nil
}

// registry returns the registry for s, creating it on first use.
func (c *Coordinator) registry(s *stat.Stat) *Registry {
	if r, ok := c.registries[s]; ok {
		return r
	}

	r := NewRegistry(s, c.store, c.policy)
	c.registries[s] = r
	c.order = append(c.order, r)
	return r
}
