package session

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNegativeDuration = errors.New("initial seconds must not be negative")
	ErrAlreadyStarted   = errors.New("already started")
)

// Clock counts down the remaining time of an attempt, one second per tick,
// and signals expiry exactly once. Ticks are best effort: a late or dropped
// tick is not caught up, so the local countdown may lag the server.
type Clock struct {
	sched     Scheduler
	onTick    func(remaining int)
	onExpired func()

	mu        sync.Mutex
	timer     Timer
	remaining int
	paused    bool
	stopped   bool
	expired   bool
}

// NewClock returns a stopped clock. onTick runs after every effective
// decrement; onExpired runs once when the countdown reaches zero. Both are
// called without the clock's lock held and may be nil.
func NewClock(sched Scheduler, onTick func(remaining int), onExpired func()) *Clock {
	return &Clock{sched: sched, onTick: onTick, onExpired: onExpired}
}

// Start begins ticking from initialSeconds.
func (c *Clock) Start(initialSeconds int) error {
	if initialSeconds < 0 {
		return ErrNegativeDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil || c.stopped {
		return ErrAlreadyStarted
	}
	c.remaining = initialSeconds
	c.timer = c.sched.Every(time.Second, c.Tick)
	return nil
}

// Tick removes one second unless paused. The tick that brings the countdown
// to zero (or finds it already at zero) emits expiry and stops the clock.
func (c *Clock) Tick() {
	c.mu.Lock()
	if c.timer == nil || c.stopped || c.paused {
		c.mu.Unlock()
		return
	}

	ticked := false
	if c.remaining > 0 {
		c.remaining--
		ticked = true
	}
	remaining := c.remaining
	expire := remaining == 0
	if expire {
		c.expired = true
		c.stopLocked()
	}
	c.mu.Unlock()

	if ticked && c.onTick != nil {
		c.onTick(remaining)
	}
	if expire && c.onExpired != nil {
		c.onExpired()
	}
}

// Pause makes ticks ineffective without touching the remaining time.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Clock) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Sync replaces the remaining time with a server-provided value. A value of
// zero expires the clock immediately.
func (c *Clock) Sync(seconds int) {
	if seconds < 0 {
		seconds = 0
	}

	c.mu.Lock()
	if c.timer == nil || c.stopped {
		c.mu.Unlock()
		return
	}
	c.remaining = seconds
	expire := seconds == 0
	if expire {
		c.expired = true
		c.stopLocked()
	}
	c.mu.Unlock()

	if expire && c.onExpired != nil {
		c.onExpired()
	}
}

// Stop halts the clock for good. Safe to call more than once.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

func (c *Clock) stopLocked() {
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Stopped reports whether the clock no longer ticks.
func (c *Clock) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
