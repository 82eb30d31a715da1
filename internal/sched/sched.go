// Package sched provides cancellable delayed actions. Cancelling a handle
// before its action starts guarantees the action never runs.
package sched

import (
	"sync/atomic"
	"time"
)

type Handle interface {
	// Cancel suppresses the action. It reports whether the action was still
	// pending; cancelling twice, or after the action ran, returns false.
	Cancel() bool
}

type Scheduler interface {
	Schedule(delay time.Duration, action func()) Handle
}

const (
	statePending int32 = iota
	stateFired
	stateCancelled
)

// Timers schedules actions on the runtime timer heap.
type Timers struct{}

func (Timers) Schedule(delay time.Duration, action func()) Handle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(delay, func() {
		if h.state.CompareAndSwap(statePending, stateFired) {
			action()
		}
	})
	return h
}

type timerHandle struct {
	state atomic.Int32
	timer *time.Timer
}

func (h *timerHandle) Cancel() bool {
	if !h.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	h.timer.Stop()
	return true
}

// Cancel is a nil-safe helper for optional handles.
func Cancel(h Handle) {
	if h != nil {
		h.Cancel()
	}
}
