package engine

import "time"

// Timer is a cancellable handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay. The engine holds at most one
// pending transition timer and one deadline timer at a time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules with time.AfterFunc.
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSlot is a single cancel-and-replace handle. The generation counter
// lets a callback that raced with Stop detect that it is stale.
type timerSlot struct {
	timer Timer
	gen   uint64
}

// replace cancels any pending timer and returns the generation the next
// callback must present.
func (s *timerSlot) replace() uint64 {
	s.cancel()
	return s.gen
}

func (s *timerSlot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *timerSlot) current(gen uint64) bool {
	return s.gen == gen
}
