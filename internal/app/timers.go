package app

import (
	"sync"
	"time"

	"quiz-session-service/internal/clock"
)

// Timers is the per-session timer table. Each session has at most one live handle.
type Timers struct {
	scheduler clock.Scheduler

	mu    sync.Mutex
	slots map[int]clock.Timer
}

func NewTimers(scheduler clock.Scheduler) *Timers {
	return &Timers{
		scheduler: scheduler,
		slots:     make(map[int]clock.Timer),
	}
}

// Arm schedules f for the session after stopping any handle already armed for it.
func (t *Timers) Arm(sessionID int, d time.Duration, f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.slots[sessionID]; ok && old != nil {
		old.Stop()
	}
	t.slots[sessionID] = t.scheduler.AfterFunc(d, f)
}

// Cancel stops the session's handle, if any.
func (t *Timers) Cancel(sessionID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.slots[sessionID]; ok && old != nil {
		old.Stop()
	}
	delete(t.slots, sessionID)
}

// Armed reports whether the session currently holds a handle.
func (t *Timers) Armed(sessionID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[sessionID] != nil
}

// CancelAll stops every handle and empties the table.
func (t *Timers) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.slots {
		if timer != nil {
			timer.Stop()
		}
		delete(t.slots, id)
	}
}
