package service

import (
	"sync"
	"time"
)

// sessionTimers tracks the completion deadline bookkeeping for one
// session. The limit counts ACTIVE time only: pausing stops the clock,
// and resume re-arms from the stored consumed duration, never from
// wall-clock elapsed time.
type sessionTimers struct {
	mu          sync.Mutex
	timer       *time.Timer
	limit       time.Duration // total active allowance, 0 = untimed
	consumed    time.Duration // active time burned before activeSince
	activeSince time.Time
	paused      bool
}

// consumedActive returns the total active time burned as of now.
func (st *sessionTimers) consumedActive(now time.Time) time.Duration {
	if st.paused {
		return st.consumed
	}
	return st.consumed + now.Sub(st.activeSince)
}

// remaining returns the active time left before the completion timer
// fires. Untimed sessions report zero remaining and false.
func (st *sessionTimers) remaining(now time.Time) (time.Duration, bool) {
	if st.limit <= 0 {
		return 0, false
	}
	left := st.limit - st.consumedActive(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// pause stops the completion timer and freezes the consumed counter.
func (st *sessionTimers) pause(now time.Time) {
	if st.paused {
		return
	}
	st.consumed += now.Sub(st.activeSince)
	st.paused = true
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}

// resume restarts the active stretch and re-arms the timer with the
// remaining allowance via arm.
func (st *sessionTimers) resume(now time.Time, arm func(d time.Duration) *time.Timer) {
	if !st.paused {
		return
	}
	st.paused = false
	st.activeSince = now
	if left, ok := st.remaining(now); ok {
		st.timer = arm(left)
	}
}

// cancel stops all of the session's timers. Called on pause, complete,
// and delete so no stale callback can fire afterwards.
func (st *sessionTimers) cancel() {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}
