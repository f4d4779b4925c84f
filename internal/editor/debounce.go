// internal/editor/debounce.go
//
// Cancellable scheduled tasks for the reconciler.
//
// Context
// -------
// The editor never writes a version per keystroke.  Every mutation
// schedules a flush to run after a quiet window; a newer mutation cancels
// the old handle outright and schedules a fresh one, so at most one task
// is ever pending per session.  The Scheduler interface exists so tests
// can drive time by hand instead of sleeping.
package editor

import "time"

// Handle identifies one scheduled task.  Cancel reports whether the task
// was still pending (false means it already ran or was cancelled).
type Handle interface {
	Cancel() bool
}

// Scheduler runs fn once after d elapses.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

//
// Timer-backed implementation
//

// TimerScheduler is the production Scheduler on time.AfterFunc.
type TimerScheduler struct{}

type timerHandle struct{ t *time.Timer }

func (h timerHandle) Cancel() bool { return h.t.Stop() }

// Schedule arms a one-shot timer.  fn runs on the timer goroutine.
func (TimerScheduler) Schedule(d time.Duration, fn func()) Handle {
	return timerHandle{t: time.AfterFunc(d, fn)}
}
