package buff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/statbuff/internal/stat"
	"github.com/udisondev/statbuff/internal/testutil"
)

const eps = 1e-9

// failingStore отдаёт ошибку на каждую запись.
type failingStore struct {
	*MemoryStore
}

func (failingStore) Set(context.Context, string, float64) error { return testutil.ErrSimulated }
func (failingStore) Remove(context.Context, string) error        { return testutil.ErrSimulated }

func newTestRegistry(t *testing.T, base float64, policy RefreshPolicy) (*Registry, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewRegistry(stat.New(base), store, policy), store
}

func storedRemaining(t *testing.T, store Store, sourceID string) float64 {
	t.Helper()
	e, ok, err := store.Get(context.Background(), sourceID)
	require.NoError(t, err)
	require.True(t, ok, "entry %q must be persisted", sourceID)
	return e.RemainingTime
}

// assertKeySetsEqual проверяет инвариант: records и live содержат одинаковые ключи.
func assertKeySetsEqual(t *testing.T, r *Registry) {
	t.Helper()
	require.Len(t, r.live, len(r.records))
	require.Len(t, r.order, len(r.records))
	for id := range r.records {
		_, ok := r.live[id]
		require.True(t, ok, "source %q missing in live map", id)
	}
	testutil.AssertStatConsistent(t, r.Stat())
}

func TestRegistry_ApplyNew(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshExtend)

	require.NoError(t, r.Apply(ctx, "potion", stat.NewModifier(10, 0.1), 3))

	assert.InDelta(t, 121.0, r.Stat().Value(), eps)
	assert.Equal(t, 1, r.Len())
	assert.InDelta(t, 3.0, storedRemaining(t, store, "potion"), eps)

	rec, ok := r.Get("potion")
	require.True(t, ok)
	assert.Equal(t, "potion", rec.SourceID)
	assert.Equal(t, stat.NewModifier(10, 0.1), rec.Modifier)
	assert.InDelta(t, 3.0, rec.RemainingTime, eps)
	assertKeySetsEqual(t, r)
}

func TestRegistry_ApplyExpiresAndReverts(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, 100, RefreshExtend)
	require.NoError(t, r.Apply(ctx, "potion", stat.NewModifier(10, 0.1), 3))

	assert.Empty(t, r.Tick(1))
	assert.Empty(t, r.Tick(1.5))
	assert.InDelta(t, 121.0, r.Stat().Value(), eps)

	pruned := r.Tick(1)
	assert.Equal(t, []string{"potion"}, pruned)
	assert.InDelta(t, 100.0, r.Stat().Value(), eps)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.ActiveBuffs())
	assertKeySetsEqual(t, r)
}

func TestRegistry_Refresh(t *testing.T) {
	const d1, d2 = 5.0, 7.0

	tests := []struct {
		name        string
		policy      RefreshPolicy
		elapsed     float64
		wantTracked float64
		wantLive    float64
	}{
		{name: "legacy sums tracked, restarts live", policy: RefreshLegacy, wantTracked: d1 + d2, wantLive: d2},
		{name: "extend sums both", policy: RefreshExtend, wantTracked: d1 + d2, wantLive: d1 + d2},
		{name: "replace resets both", policy: RefreshReplace, wantTracked: d2, wantLive: d2},
		{name: "extend after elapsed time", policy: RefreshExtend, elapsed: 2, wantTracked: d1 - 2 + d2, wantLive: d1 - 2 + d2},
		{name: "legacy after elapsed time", policy: RefreshLegacy, elapsed: 2, wantTracked: d1 - 2 + d2, wantLive: d2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r, store := newTestRegistry(t, 100, tt.policy)

			require.NoError(t, r.Apply(ctx, "skill_7", stat.NewModifier(10, 0), d1))
			if tt.elapsed > 0 {
				r.Tick(tt.elapsed)
			}
			require.NoError(t, r.Apply(ctx, "skill_7", stat.NewModifier(20, 0), d2))

			assert.InDelta(t, tt.wantTracked, storedRemaining(t, store, "skill_7"), eps)
			rec, ok := r.Get("skill_7")
			require.True(t, ok)
			assert.InDelta(t, tt.wantTracked, rec.RemainingTime, eps)

			live, ok := r.LiveRemaining("skill_7")
			require.True(t, ok)
			assert.InDelta(t, tt.wantLive, live, eps)

			// Старый модификатор заменён новым, а не добавлен.
			assert.Equal(t, 1, r.Stat().Len())
			assert.InDelta(t, 120.0, r.Stat().Value(), eps)
			assert.Equal(t, stat.NewModifier(20, 0), rec.Modifier)
			assertKeySetsEqual(t, r)
		})
	}
}

func TestRegistry_LoadNeverSums(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshLegacy)

	require.NoError(t, r.Load(ctx, "x", stat.NewModifier(1, 0), 5))

	assert.InDelta(t, 5.0, storedRemaining(t, store, "x"), eps)
	live, ok := r.LiveRemaining("x")
	require.True(t, ok)
	assert.InDelta(t, 5.0, live, eps)

	require.NoError(t, r.Load(ctx, "x", stat.NewModifier(1, 0), 4))

	assert.InDelta(t, 4.0, storedRemaining(t, store, "x"), eps)
	live, _ = r.LiveRemaining("x")
	assert.InDelta(t, 4.0, live, eps)
	assert.Equal(t, 1, r.Stat().Len(), "load replaces the previous modifier")
	assert.InDelta(t, 101.0, r.Stat().Value(), eps)
}

func TestRegistry_NonPositiveDuration(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, 100, RefreshExtend)

	require.NoError(t, r.Apply(ctx, "zero", stat.NewModifier(50, 0), 0))
	require.NoError(t, r.Apply(ctx, "negative", stat.NewModifier(50, 0), -3))
	assert.Equal(t, 2, r.Len())

	pruned := r.Tick(0)
	assert.ElementsMatch(t, []string{"zero", "negative"}, pruned)
	assert.Equal(t, 0, r.Len())
	assert.InDelta(t, 100.0, r.Stat().Value(), eps)
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshExtend)
	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(10, 0), 10))
	require.NoError(t, r.Apply(ctx, "b", stat.NewModifier(0, 0.5), 10))

	require.NoError(t, r.Remove(ctx, "a"))
	assert.InDelta(t, 150.0, r.Stat().Value(), eps)
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Remove(ctx, "unknown"), "unknown source is a no-op")
	assert.Equal(t, 1, r.Len())
	assertKeySetsEqual(t, r)
}

func TestRegistry_Clear(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshExtend)
	baseline := r.Stat().Value()

	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(10, 0), 10))
	require.NoError(t, r.Apply(ctx, "b", stat.NewModifier(0, 0.5), 10))
	require.NoError(t, r.Apply(ctx, "c", stat.NewModifier(-5, 0.1), 10))
	require.NotEqual(t, baseline, r.Stat().Value())

	r.Clear()

	assert.InDelta(t, baseline, r.Stat().Value(), eps)
	assert.Equal(t, 0, r.Stat().Len())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, store.Len(), "clear keeps persisted entries")
	assertKeySetsEqual(t, r)
}

func TestRegistry_ClearKeepsForeignModifiers(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, 100, RefreshExtend)
	equipment := stat.NewTimedModifier(stat.NewModifier(20, 0), 1000)
	r.Stat().AddModifier(equipment)

	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(10, 0), 10))
	r.Clear()

	assert.Equal(t, []*stat.TimedModifier{equipment}, r.Stat().Modifiers())
	assert.InDelta(t, 120.0, r.Stat().Value(), eps)
}

func TestRegistry_ActiveBuffsIsSnapshot(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, 100, RefreshExtend)
	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(1, 0), 10))
	require.NoError(t, r.Apply(ctx, "b", stat.NewModifier(2, 0), 10))

	buffs := r.ActiveBuffs()
	require.Len(t, buffs, 2)
	assert.Equal(t, "a", buffs[0].SourceID)
	assert.Equal(t, "b", buffs[1].SourceID)

	buffs[0].RemainingTime = 999
	rec, _ := r.Get("a")
	assert.InDelta(t, 10.0, rec.RemainingTime, eps)
}

func TestRegistry_Flush(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshExtend)
	require.NoError(t, r.Apply(ctx, "short", stat.NewModifier(1, 0), 2))
	require.NoError(t, r.Apply(ctx, "long", stat.NewModifier(1, 0), 10))

	r.Tick(3)
	require.NoError(t, r.Flush(ctx))

	assert.InDelta(t, 0.0, storedRemaining(t, store, "short"), eps)
	assert.InDelta(t, 7.0, storedRemaining(t, store, "long"), eps)
	assert.Empty(t, r.expired)
}

func TestRegistry_ReapplyAfterExpiryStartsFresh(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry(t, 100, RefreshLegacy)
	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(1, 0), 2))
	r.Tick(5)

	require.NoError(t, r.Apply(ctx, "a", stat.NewModifier(1, 0), 4))
	require.NoError(t, r.Flush(ctx))

	assert.InDelta(t, 4.0, storedRemaining(t, store, "a"), eps)
}

func TestRegistry_StoreErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(stat.New(100), failingStore{NewMemoryStore()}, RefreshExtend)

	err := r.Apply(ctx, "a", stat.NewModifier(10, 0), 5)
	require.ErrorIs(t, err, testutil.ErrSimulated)
	// Состояние в памяти уже применено.
	assert.InDelta(t, 110.0, r.Stat().Value(), eps)

	require.ErrorIs(t, r.Load(ctx, "b", stat.NewModifier(10, 0), 5), testutil.ErrSimulated)
	require.ErrorIs(t, r.Remove(ctx, "a"), testutil.ErrSimulated)
	require.ErrorIs(t, r.Flush(ctx), testutil.ErrSimulated)
}
