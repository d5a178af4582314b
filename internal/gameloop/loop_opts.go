package gameloop

import "time"

type Option func(*Loop)

// WithTickInterval sets how often the coordinator is ticked.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.tickInterval = d
		}
	}
}

// WithTimeScale multiplies real elapsed time into game time.
func WithTimeScale(scale float64) Option {
	return func(l *Loop) {
		if scale >= 0 {
			l.timeScale = scale
		}
	}
}

// WithAutosaveInterval sets the game-time period between flushes.
// Zero disables autosave; the final flush on shutdown still happens.
func WithAutosaveInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.autosaveInterval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// WithTickHook registers fn to be called after every tick with the game delta.
func WithTickHook(fn func(dt float64)) Option {
	return func(l *Loop) {
		l.onTick = fn
	}
}
