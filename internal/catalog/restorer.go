package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/statbuff/internal/buff"
)

// Restorer applies catalog buffs to a sheet and re-creates persisted buffs
// when the coordinator reports them restored.
type Restorer struct {
	catalog *Catalog
	sheet   *Sheet
	coord   *buff.Coordinator
}

// NewRestorer creates a Restorer.
func NewRestorer(c *Catalog, sheet *Sheet, coord *buff.Coordinator) *Restorer {
	return &Restorer{catalog: c, sheet: sheet, coord: coord}
}

// Attach subscribes the restorer to coord notifications. ctx is used for
// the store writes made while handling them.
func (r *Restorer) Attach(ctx context.Context) (detach func()) {
	return r.coord.Subscribe(func(ev buff.Restored) {
		r.Handle(ctx, ev)
	})
}

// Handle loads a restored buff with its persisted remaining time.
// Sources that the catalog no longer knows are logged and skipped.
func (r *Restorer) Handle(ctx context.Context, ev buff.Restored) {
	if err := r.restore(ctx, ev); err != nil {
		slog.Warn("buff not restored",
			"sourceID", ev.SourceID,
			"remaining", ev.RemainingTime,
			"error", err)
		return
	}
	slog.Info("buff restored", "sourceID", ev.SourceID, "remaining", ev.RemainingTime)
}

func (r *Restorer) restore(ctx context.Context, ev buff.Restored) error {
	def, err := r.catalog.Lookup(ev.SourceID)
	if err != nil {
		return err
	}
	st, err := r.sheet.Stat(def.Stat)
	if err != nil {
		return fmt.Errorf("buff %q: %w", ev.SourceID, err)
	}

	v := def.Value
	v.Duration = ev.RemainingTime
	return r.coord.LoadBuffValue(ctx, st, v)
}

// Apply applies the catalog buff sourceID with its full duration.
func (r *Restorer) Apply(ctx context.Context, sourceID string) error {
	def, err := r.catalog.Lookup(sourceID)
	if err != nil {
		return err
	}
	st, err := r.sheet.Stat(def.Stat)
	if err != nil {
		return fmt.Errorf("buff %q: %w", sourceID, err)
	}

	if err := r.coord.BuffValue(ctx, st, def.Value); err != nil {
		return fmt.Errorf("applying buff %q: %w", sourceID, err)
	}
	return nil
}
