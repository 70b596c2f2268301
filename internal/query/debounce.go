// ABOUTME: Debounced search pipeline for the admin user table
// ABOUTME: Rapid keystrokes collapse to one server query carrying the final input

package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/metrics"
	"github.com/sentinelai/sentinel-cli/internal/sched"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

// DefaultDelay is the quiet period after the last keystroke.
const DefaultDelay = 300 * time.Millisecond

// SearchFunc queries the user table server-side. Matching stays on the
// server; the client never filters locally.
type SearchFunc func(ctx context.Context, search, roleFilter string) ([]api.UserRecord, error)

// Debouncer restarts a timer on every input change and issues exactly one
// query once input goes quiet. Only the last pending input ever fires.
type Debouncer struct {
	ctx    context.Context
	delay  time.Duration
	sch    sched.Scheduler
	search SearchFunc
	store  *store.Store
	logger *slog.Logger

	mu     sync.Mutex
	handle sched.Handle
	// gen identifies the latest input. A timer that slipped past Stop
	// (already firing when the next keystroke landed) carries a stale
	// generation and must not query.
	gen     uint64
	input   string
	role    string
	stopped bool
}

// New builds a Debouncer. The context bounds every query it issues; cancel
// it on unmount together with Stop.
func New(ctx context.Context, delay time.Duration, sch sched.Scheduler, search SearchFunc, st *store.Store, logger *slog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		ctx:    ctx,
		delay:  delay,
		sch:    sch,
		search: search,
		store:  st,
		logger: logger.With("component", "query"),
	}
}

// Set records the latest input and restarts the quiet-period timer. Earlier
// pending inputs are discarded unfired.
func (d *Debouncer) Set(search, roleFilter string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.input = search
	d.role = roleFilter
	d.gen++
	if d.handle != nil {
		d.handle.Stop()
	}
	gen := d.gen
	d.handle = d.sch.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush fires the pending query immediately instead of waiting out the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.handle == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	d.handle.Stop()
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// Stop discards any pending query. The debouncer is dead afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.handle != nil {
		d.handle.Stop()
		d.handle = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		// Superseded: a newer input re-armed the timer and owns the query.
		d.mu.Unlock()
		return
	}
	d.handle = nil
	search, role := d.input, d.role
	d.mu.Unlock()

	metrics.DebouncedQueries.Inc()
	users, err := d.search(d.ctx, search, role)
	if err != nil {
		// Keep the previous table on screen rather than blanking it.
		d.logger.Warn("user search failed", "search", search, "role", role, "error", err)
		return
	}
	d.store.SetUsers(users)
}
