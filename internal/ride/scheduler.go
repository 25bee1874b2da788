package ride

import "time"

// Scheduler runs a function after a delay. The coordinator uses it for the
// post-save migration debounce; abstracting it gives tests a seam to fire
// deferred work synchronously instead of waiting on wall-clock timers.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler schedules on real timers. Scheduled functions run on
// their own goroutine and are dropped if the process exits first, which is
// acceptable: the next Initialize or save debounce catches the backlog.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
