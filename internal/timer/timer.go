// Package timer provides frame-driven timers advanced by an explicit Tick(dt).
//
// Timers are runtime-only: nothing is persisted, and time only moves while
// the owner ticks. Use them for cooldowns, delays and intervals inside a
// running loop, not for offline progress.
package timer

// base holds the state shared by Countdown and Stopwatch.
type base struct {
	initial float64
	time    float64
	running bool

	// OnStarted is called when Start moves the timer into the running state.
	OnStarted func()
	// OnStopped is called when Stop moves the timer out of the running state.
	OnStopped func()
}

// Time returns the current value: remaining seconds for a Countdown,
// elapsed seconds for a Stopwatch.
func (b *base) Time() float64 { return b.time }

// IsRunning reports whether the timer advances on Tick.
func (b *base) IsRunning() bool { return b.running }

// Start resets the time to its initial value and starts running.
// Callbacks fire only on an actual state change.
func (b *base) Start() {
	b.time = b.initial
	if b.running {
		return
	}
	b.running = true
	if b.OnStarted != nil {
		b.OnStarted()
	}
}

// Stop stops the timer without resetting time.
func (b *base) Stop() {
	if !b.running {
		return
	}
	b.running = false
	if b.OnStopped != nil {
		b.OnStopped()
	}
}

// Pause stops ticking without callbacks.
func (b *base) Pause() { b.running = false }

// Resume continues ticking without callbacks or reset.
func (b *base) Resume() { b.running = true }

// Countdown counts down from a duration and stops itself at zero.
type Countdown struct {
	base
}

// NewCountdown creates a stopped Countdown of d seconds.
func NewCountdown(d float64) *Countdown {
	return &Countdown{base: base{initial: d, time: d}}
}

// Tick advances the countdown by dt. On reaching zero the time is
// clamped to 0 and the timer stops.
func (c *Countdown) Tick(dt float64) {
	if !c.running {
		return
	}

	c.time -= dt
	if c.time > 0 {
		return
	}

	c.time = 0
	c.Stop()
}

// IsFinished reports whether the countdown has reached zero.
func (c *Countdown) IsFinished() bool { return c.time <= 0 }

// Progress returns remaining/initial in [0, 1]. A non-positive
// duration reports 1.
func (c *Countdown) Progress() float64 {
	if c.initial <= 0 {
		return 1
	}
	return c.time / c.initial
}

// Reset restores the initial duration without starting.
func (c *Countdown) Reset() { c.time = c.initial }

// ResetTo changes the duration and restores it without starting.
func (c *Countdown) ResetTo(d float64) {
	c.initial = d
	c.time = d
}

// Duration returns the configured duration.
func (c *Countdown) Duration() float64 { return c.initial }

// Stopwatch counts up from zero and never stops on its own.
type Stopwatch struct {
	base
}

// NewStopwatch creates a stopped Stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{}
}

// Tick advances the stopwatch by dt while running.
func (s *Stopwatch) Tick(dt float64) {
	if !s.running {
		return
	}
	s.time += dt
}

// Elapsed returns elapsed seconds.
func (s *Stopwatch) Elapsed() float64 { return s.time }

// Reset sets elapsed time back to zero.
func (s *Stopwatch) Reset() { s.time = 0 }
