package capture

import "time"

// Clock abstracts time for the timer-driven components so tests can drive
// them deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the capture pipeline needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ScheduledTask is a single cancellable, reschedulable delayed call.
//
// It is not safe for concurrent use: the owner serializes every call under
// its own lock, including the Claim made from inside the callback. Each
// schedule carries a token, so a timer that fired just before a Reschedule
// or Cancel is recognised as stale and ignored.
type ScheduledTask struct {
	clock Clock
	delay time.Duration
	run   func(token uint64)
	timer Timer
	token uint64
}

// NewScheduledTask returns an idle task that calls run(token) delay after
// each Reschedule.
func NewScheduledTask(clock Clock, delay time.Duration, run func(token uint64)) *ScheduledTask {
	return &ScheduledTask{clock: clock, delay: delay, run: run}
}

// Reschedule cancels any pending call and starts a new delay.
func (t *ScheduledTask) Reschedule() {
	t.stop()
	t.token++
	tok := t.token
	t.timer = t.clock.AfterFunc(t.delay, func() { t.run(tok) })
}

// Cancel drops any pending call.
func (t *ScheduledTask) Cancel() {
	t.stop()
	t.token++
}

// Claim reports whether token belongs to the latest schedule. A successful
// claim leaves the task idle, so each schedule is claimed at most once.
func (t *ScheduledTask) Claim(token uint64) bool {
	if token != t.token || t.timer == nil {
		return false
	}
	t.timer = nil
	t.token++
	return true
}

// Pending reports whether a call is scheduled.
func (t *ScheduledTask) Pending() bool {
	return t.timer != nil
}

func (t *ScheduledTask) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
