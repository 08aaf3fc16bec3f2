package testutil

import (
	"sync"
	"time"

	"github.com/roach88/diagramlab/internal/engine"
)

// ManualScheduler is an engine.Scheduler driven by the test.
//
// Callbacks run only from Advance or RunPending, on the caller's goroutine,
// in due order (ties in scheduling order). When built with a ManualClock the
// clock moves with the scheduler.
type ManualScheduler struct {
	mu      sync.Mutex
	clock   *ManualClock
	elapsed time.Duration
	nextSeq int
	timers  []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	due     time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// Stop cancels the timer.
func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler creates a scheduler. clock may be nil.
func NewManualScheduler(clock *ManualClock) *ManualScheduler {
	return &ManualScheduler{clock: clock}
}

// AfterFunc schedules f to run d after the scheduler's current time.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) engine.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	t := &manualTimer{s: s, due: s.elapsed + max(d, 0), seq: s.nextSeq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Pending counts timers that have neither fired nor been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing every timer that comes due,
// including timers scheduled by callbacks along the way.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.elapsed + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.moveLocked(target)
			s.mu.Unlock()
			return
		}
		s.moveLocked(next.due)
		next.fired = true
		s.mu.Unlock()

		next.f()
	}
}

// RunPending fires every live timer regardless of its due time.
func (s *ManualScheduler) RunPending() {
	for {
		s.mu.Lock()
		next := s.nextDueLocked(-1)
		if next == nil {
			s.mu.Unlock()
			return
		}
		s.moveLocked(next.due)
		next.fired = true
		s.mu.Unlock()

		next.f()
	}
}

// nextDueLocked returns the earliest live timer due at or before limit. A
// negative limit means no limit.
func (s *ManualScheduler) nextDueLocked(limit time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range s.timers {
		if t.stopped || t.fired {
			continue
		}
		if limit >= 0 && t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *ManualScheduler) moveLocked(to time.Duration) {
	if to <= s.elapsed {
		return
	}
	if s.clock != nil {
		s.clock.Advance(to - s.elapsed)
	}
	s.elapsed = to
}
