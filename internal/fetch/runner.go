// ABOUTME: Interval runner driving periodic refreshes through the scheduler
// ABOUTME: Initial refresh on start, re-armed ticks, guaranteed release on stop

package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sentinelai/sentinel-cli/internal/sched"
)

// Runner re-runs a refresh function on a fixed cadence while the view is
// active. The timer is a scoped resource: Stop (or context cancellation)
// guarantees release, so an unmounted view never polls again.
type Runner struct {
	refresh   func(context.Context)
	interval  time.Duration
	scheduler sched.Scheduler

	mu      sync.Mutex
	handle  sched.Handle
	stopped bool
}

// NewRunner wires a refresh function to an interval on the given scheduler.
func NewRunner(interval time.Duration, scheduler sched.Scheduler, refresh func(context.Context)) *Runner {
	return &Runner{
		refresh:   refresh,
		interval:  interval,
		scheduler: scheduler,
	}
}

// Start performs the initial full load synchronously, then arms the interval.
// Cancelling ctx stops the runner.
func (r *Runner) Start(ctx context.Context) {
	r.refresh(ctx)
	r.arm(ctx)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
}

// Stop cancels any pending tick. Idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.handle != nil {
		r.handle.Stop()
		r.handle = nil
	}
}

func (r *Runner) arm(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || ctx.Err() != nil {
		return
	}
	r.handle = r.scheduler.AfterFunc(r.interval, func() {
		r.refresh(ctx)
		r.arm(ctx)
	})
}
