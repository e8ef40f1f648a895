// Package sched abstracts delayed callback scheduling so the fill simulator
// can run against wall-clock timers in production and a deterministic manual
// scheduler in tests.
package sched

import "time"

// Timer is the handle for a scheduled callback. Stop releases the timer;
// it reports whether the callback was still pending. Stopping an already
// fired or stopped timer is a no-op.
type Timer interface {
	Stop() bool
}

// Scheduler registers one-shot delayed callbacks and supplies the current
// time. Periodic work is expressed by re-arming from inside the callback,
// which keeps at most one outstanding timer per logical task.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

// New returns a Scheduler backed by the runtime timer wheel.
func New() Scheduler {
	return realScheduler{}
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (realScheduler) Now() time.Time {
	return time.Now().UTC()
}
