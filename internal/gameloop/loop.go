package gameloop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/statbuff/internal/buff"
	"github.com/udisondev/statbuff/internal/timer"
)

const (
	DefaultTickInterval     = 100 * time.Millisecond
	DefaultAutosaveInterval = 30 * time.Second
)

// Loop drives a buff.Coordinator from a single goroutine.
//
// Coordinator is not thread-safe, so every mutation goes through Do:
// submitted closures run on the loop goroutine between ticks.
type Loop struct {
	coord *buff.Coordinator

	tickInterval     time.Duration
	timeScale        float64
	autosaveInterval time.Duration
	now              func() time.Time

	cmds chan command

	autosave *timer.Countdown
	uptime   *timer.Stopwatch

	onTick func(dt float64)
}

type command struct {
	fn   func(*buff.Coordinator) error
	done chan error
}

// New creates a Loop for coord. Call Run to start it.
func New(coord *buff.Coordinator, opts ...Option) *Loop {
	l := &Loop{
		coord:            coord,
		tickInterval:     DefaultTickInterval,
		timeScale:        1,
		autosaveInterval: DefaultAutosaveInterval,
		now:              time.Now,
		cmds:             make(chan command),
		uptime:           timer.NewStopwatch(),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.autosave = timer.NewCountdown(l.autosaveInterval.Seconds())
	if l.autosaveInterval > 0 {
		l.autosave.Start()
	}
	l.uptime.Start()
	return l
}

// Run ticks the coordinator until ctx is cancelled, then shuts it down.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	slog.Info("game loop started",
		"tick", l.tickInterval,
		"timeScale", l.timeScale,
		"autosave", l.autosaveInterval)

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return l.shutdown()

		case cmd := <-l.cmds:
			cmd.done <- cmd.fn(l.coord)

		case <-ticker.C:
			now := l.now()
			dt := now.Sub(last).Seconds() * l.timeScale
			last = now
			l.Step(ctx, dt)
		}
	}
}

// Step performs one tick of dt game seconds: ticks the coordinator and
// flushes it when the autosave countdown runs out.
// Must only be called from the loop goroutine (or before Run).
func (l *Loop) Step(ctx context.Context, dt float64) {
	dt = max(dt, 0)

	l.coord.Tick(dt)
	l.uptime.Tick(dt)
	if l.onTick != nil {
		l.onTick(dt)
	}

	if !l.autosave.IsRunning() {
		return
	}
	l.autosave.Tick(dt)
	if !l.autosave.IsFinished() {
		return
	}

	if err := l.coord.Flush(ctx); err != nil {
		slog.Error("autosave failed", "error", err)
	} else {
		slog.Debug("buffs autosaved", "active", l.coord.ActiveCount())
	}
	l.autosave.Start()
}

// Do runs fn on the loop goroutine and returns its error.
// Returns ctx.Err() if ctx is cancelled before fn runs.
func (l *Loop) Do(ctx context.Context, fn func(*buff.Coordinator) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Elapsed returns total game seconds ticked so far.
func (l *Loop) Elapsed() float64 {
	return l.uptime.Elapsed()
}

func (l *Loop) shutdown() error {
	l.uptime.Stop()
	l.autosave.Stop()

	// ctx is already cancelled; the final flush gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.coord.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down coordinator: %w", err)
	}
	slog.Info("game loop stopped", "elapsed", l.uptime.Elapsed())
	return nil
}
