// ABOUTME: Cancellable timer scheduling used by the poll runner and debouncer
// ABOUTME: Real implementation over time.AfterFunc plus a manual clock for tests

package sched

import (
	"sort"
	"sync"
	"time"
)

// Handle is a cancellable pending timer.
type Handle interface {
	// Stop cancels the timer. Returns false if it already fired or was stopped.
	Stop() bool
}

// Scheduler schedules functions to run after a delay. Making this explicit
// (rather than calling time.AfterFunc directly) keeps cancellation visible
// and lets tests drive time deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// New returns a Scheduler backed by the runtime timer wheel.
func New() Scheduler {
	return realScheduler{}
}

type realScheduler struct{}

type realHandle struct {
	t *time.Timer
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	return realHandle{t: time.AfterFunc(d, fn)}
}

func (h realHandle) Stop() bool {
	return h.t.Stop()
}

// Manual is a Scheduler whose clock only moves when Advance is called.
// Timers fire synchronously inside Advance, in deadline order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	id       int
	deadline time.Time
	fn       func()
	m        *Manual
}

// NewManual creates a manual scheduler starting at an arbitrary fixed instant.
func NewManual() *Manual {
	return &Manual{
		now:    time.Unix(1700000000, 0),
		timers: make(map[int]*manualTimer),
	}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &manualTimer{
		id:       m.nextID,
		deadline: m.now.Add(d),
		fn:       fn,
		m:        m,
	}
	m.timers[t.id] = t
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, ok := t.m.timers[t.id]; !ok {
		return false
	}
	delete(t.m.timers, t.id)
	return true
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Timers scheduled by firing callbacks fire too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		var due []*manualTimer
		for _, t := range m.timers {
			if !t.deadline.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].deadline.Equal(due[j].deadline) {
				return due[i].id < due[j].id
			}
			return due[i].deadline.Before(due[j].deadline)
		})

		t := due[0]
		delete(m.timers, t.id)
		m.now = t.deadline
		// Fire outside the lock so callbacks can schedule or stop timers.
		m.mu.Unlock()
		t.fn()
		m.mu.Lock()
	}

	m.now = target
	m.mu.Unlock()
}

// Pending reports how many timers are waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
