package buff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/udisondev/statbuff/internal/stat"
)

// Record is the bookkeeping entry of one active buff.
type Record struct {
	SourceID      string        // itemId / skillId
	RemainingTime float64       // tracked remaining time, seconds
	Modifier      stat.Modifier // contribution to the stat
}

// Registry tracks active buffs of one Stat, at most one buff per source id.
//
// records and live always share the same key set: every source id has a
// bookkeeping Record and exactly one TimedModifier contributing to the Stat.
//
// Not safe for concurrent use.
type Registry struct {
	stat   *stat.Stat
	store  Store
	policy RefreshPolicy

	records map[string]*Record
	live    map[string]*stat.TimedModifier
	order   []string // source ids in first-apply order

	// Sources pruned since the last Flush; written as 0 so the next
	// startup reconciliation discards them.
	expired map[string]struct{}
}

// NewRegistry creates a Registry for s that persists through store.
func NewRegistry(s *stat.Stat, store Store, policy RefreshPolicy) *Registry {
	return &Registry{
		stat:    s,
		store:   store,
		policy:  policy,
		records: make(map[string]*Record),
		live:    make(map[string]*stat.TimedModifier),
		expired: make(map[string]struct{}),
	}
}

// Stat returns the owning stat.
func (r *Registry) Stat() *stat.Stat { return r.stat }

// Policy returns the refresh policy.
func (r *Registry) Policy() RefreshPolicy { return r.policy }

// Len returns the number of active buffs.
func (r *Registry) Len() int { return len(r.records) }

// Apply applies a buff from sourceID.
//
// Rule: same sourceID → refresh according to the registry RefreshPolicy.
// The contributing modifier is always swapped for a fresh one built from m,
// and the tracked remaining time is persisted under sourceID.
// A non-positive duration is accepted: the buff expires on the next Tick.
func (r *Registry) Apply(ctx context.Context, sourceID string, m stat.Modifier, duration float64) error {
	tracked, live := duration, duration

	rec, refreshed := r.records[sourceID]
	if refreshed {
		tracked, live = r.policy.refresh(rec.RemainingTime, r.live[sourceID].RemainingTime(), duration)
	}

	r.put(sourceID, m, tracked, live)

	slog.Debug("buff applied",
		"sourceID", sourceID,
		"remaining", tracked,
		"refreshed", refreshed,
		"policy", r.policy)

	if err := r.store.Set(ctx, sourceID, tracked); err != nil {
		return fmt.Errorf("persisting buff %q: %w", sourceID, err)
	}
	return nil
}

// Load restores a buff from persisted state.
// Never sums: any current buff for sourceID is replaced outright.
func (r *Registry) Load(ctx context.Context, sourceID string, m stat.Modifier, duration float64) error {
	r.put(sourceID, m, duration, duration)

	slog.Debug("buff loaded", "sourceID", sourceID, "remaining", duration)

	if err := r.store.Set(ctx, sourceID, duration); err != nil {
		return fmt.Errorf("persisting loaded buff %q: %w", sourceID, err)
	}
	return nil
}

// put installs a fresh record and modifier for sourceID,
// swapping out the previous modifier inside the Stat.
func (r *Registry) put(sourceID string, m stat.Modifier, tracked, live float64) {
	if old, ok := r.live[sourceID]; ok {
		r.stat.RemoveModifier(old)
	} else {
		r.order = append(r.order, sourceID)
	}

	inst := stat.NewTimedModifier(m, live)
	r.records[sourceID] = &Record{
		SourceID:      sourceID,
		RemainingTime: tracked,
		Modifier:      m,
	}
	r.live[sourceID] = inst
	delete(r.expired, sourceID)

	r.stat.AddModifier(inst)
}

// Tick advances the owning Stat by dt, then prunes every buff whose
// modifier has expired. Returns the pruned source ids.
func (r *Registry) Tick(dt float64) []string {
	r.stat.Tick(dt)

	var pruned []string
	for _, id := range r.order {
		rec := r.records[id]
		rec.RemainingTime = max(rec.RemainingTime-dt, 0)

		if r.live[id].Expired() {
			pruned = append(pruned, id)
		}
	}

	for _, id := range pruned {
		// Stat.Tick has already dropped the modifier.
		r.forget(id)
		r.expired[id] = struct{}{}
		slog.Debug("buff expired", "sourceID", id)
	}

	return pruned
}

// Remove drops the buff from sourceID and its persisted entry.
// Unknown source ids are ignored.
func (r *Registry) Remove(ctx context.Context, sourceID string) error {
	if !r.drop(sourceID) {
		return nil
	}

	if err := r.store.Remove(ctx, sourceID); err != nil {
		return fmt.Errorf("removing persisted buff %q: %w", sourceID, err)
	}
	return nil
}

// drop removes the buff from sourceID without touching the store.
// Reports whether the buff was active.
func (r *Registry) drop(sourceID string) bool {
	inst, ok := r.live[sourceID]
	if !ok {
		return false
	}

	r.stat.RemoveModifier(inst)
	r.forget(sourceID)
	delete(r.expired, sourceID)
	return true
}

// Holds reports whether sourceID is active on this registry.
func (r *Registry) Holds(sourceID string) bool {
	_, ok := r.records[sourceID]
	return ok
}

// ActiveBuffs returns a copy of active buff records in first-apply order.
func (r *Registry) ActiveBuffs() []Record {
	result := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.records[id])
	}
	return result
}

// Get returns the record for sourceID.
func (r *Registry) Get(sourceID string) (Record, bool) {
	rec, ok := r.records[sourceID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// LiveRemaining returns remaining time of the modifier that actually
// contributes to the Stat for sourceID.
func (r *Registry) LiveRemaining(sourceID string) (float64, bool) {
	inst, ok := r.live[sourceID]
	if !ok {
		return 0, false
	}
	return inst.RemainingTime(), true
}

// Clear removes every buff and its modifier from the Stat.
// Persisted entries are left as they are.
func (r *Registry) Clear() {
	for _, id := range r.order {
		r.stat.RemoveModifier(r.live[id])
	}

	clear(r.records)
	clear(r.live)
	r.order = r.order[:0]
}

// Flush writes the tracked remaining time of every active buff to the store,
// and 0 for buffs that expired since the previous Flush.
func (r *Registry) Flush(ctx context.Context) error {
	return errors.Join(
		r.flushExpired(ctx, r.Holds),
		r.flushActive(ctx),
	)
}

// flushExpired writes 0 for every source pruned since the previous flush,
// unless held reports that the source is still active somewhere.
func (r *Registry) flushExpired(ctx context.Context, held func(sourceID string) bool) error {
	var errs []error

	for id := range r.expired {
		if held(id) {
			delete(r.expired, id)
			continue
		}
		if err := r.store.Set(ctx, id, 0); err != nil {
			errs = append(errs, fmt.Errorf("flushing expired buff %q: %w", id, err))
			continue
		}
		delete(r.expired, id)
	}

	return errors.Join(errs...)
}

// flushActive writes the tracked remaining time of every active buff.
func (r *Registry) flushActive(ctx context.Context) error {
	var errs []error

	for _, id := range r.order {
		if err := r.store.Set(ctx, id, r.records[id].RemainingTime); err != nil {
			errs = append(errs, fmt.Errorf("flushing buff %q: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// forget removes sourceID from both maps and the order list.
func (r *Registry) forget(sourceID string) {
	delete(r.records, sourceID)
	delete(r.live, sourceID)
	if i := slices.Index(r.order, sourceID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}
