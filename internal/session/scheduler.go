package session

import (
	"sync"
	"time"
)

// Scheduler runs fn repeatedly until the returned Timer is stopped.
// Each call hands back its own handle; nothing is registered globally.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// Timer is an owned handle on a repeating callback. Stop is idempotent.
type Timer interface {
	Stop()
}

// TickerScheduler drives callbacks from time.Ticker. Ticks that arrive while
// fn is still running are dropped, so a late callback never catches up.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// ManualScheduler fires callbacks only when told to. Used by tests and by
// callers that want to drive the session from their own loop.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &manualTimer{interval: interval, fn: fn}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

// Fire runs every live callback registered with interval once, synchronously,
// and returns how many ran.
func (s *ManualScheduler) Fire(interval time.Duration) int {
	s.mu.Lock()
	due := make([]*manualTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if t.interval == interval && !t.isStopped() {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	fired := 0
	for _, t := range due {
		if t.isStopped() {
			continue
		}
		t.fn()
		fired++
	}
	return fired
}

// Live returns the number of timers with interval that have not been stopped.
func (s *ManualScheduler) Live(interval time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.interval == interval && !t.isStopped() {
			n++
		}
	}
	return n
}

type manualTimer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	stopped bool
}

func (t *manualTimer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
