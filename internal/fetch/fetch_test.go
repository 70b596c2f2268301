// ABOUTME: Tests for the fan-out fetchers and the interval runner.
// ABOUTME: Uses fake readers to pin failure-isolation and last-known-good behavior.

package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/sched"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

var errDown = errors.New("endpoint down")

type fakeStudent struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int

	risk     api.RiskScore
	alerts   []api.Alert
	logs     []api.BehaviorLog
	timeline []api.TimelinePoint
	devices  []api.Device
}

func newFakeStudent() *fakeStudent {
	return &fakeStudent{
		fail:  map[string]bool{},
		calls: map[string]int{},
		risk:  api.RiskScore{CurrentScore: 42, RiskLevel: api.RiskMedium},
	}
}

func (f *fakeStudent) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.fail[name] {
		return errDown
	}
	return nil
}

func (f *fakeStudent) RiskScore(context.Context) (api.RiskScore, error) {
	if err := f.hit("risk"); err != nil {
		return api.RiskScore{}, err
	}
	return f.risk, nil
}

func (f *fakeStudent) Alerts(context.Context) ([]api.Alert, error) {
	if err := f.hit("alerts"); err != nil {
		return nil, err
	}
	return f.alerts, nil
}

func (f *fakeStudent) RecentLogs(context.Context) ([]api.BehaviorLog, error) {
	if err := f.hit("logs"); err != nil {
		return nil, err
	}
	return f.logs, nil
}

func (f *fakeStudent) AnomalyTimeline(context.Context) ([]api.TimelinePoint, error) {
	if err := f.hit("timeline"); err != nil {
		return nil, err
	}
	return f.timeline, nil
}

func (f *fakeStudent) Devices(context.Context) ([]api.Device, error) {
	if err := f.hit("devices"); err != nil {
		return nil, err
	}
	return f.devices, nil
}

func (f *fakeStudent) failAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range []string{"risk", "alerts", "logs", "timeline", "devices"} {
		f.fail[name] = true
	}
}

type fakeAdmin struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int

	stats api.AdminStats
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{fail: map[string]bool{}, calls: map[string]int{}}
}

func (f *fakeAdmin) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.fail[name] {
		return errDown
	}
	return nil
}

func (f *fakeAdmin) AdminStats(context.Context) (api.AdminStats, error) {
	if err := f.hit("stats"); err != nil {
		return api.AdminStats{}, err
	}
	return f.stats, nil
}

func (f *fakeAdmin) HighRiskUsers(context.Context) ([]api.HighRiskUser, error) {
	if err := f.hit("high-risk"); err != nil {
		return nil, err
	}
	return []api.HighRiskUser{}, nil
}

func (f *fakeAdmin) ActivityFeed(context.Context) ([]api.ActivityFeedItem, error) {
	if err := f.hit("feed"); err != nil {
		return nil, err
	}
	return []api.ActivityFeedItem{}, nil
}

func (f *fakeAdmin) Trends(_ context.Context, days int) ([]api.TrendPoint, error) {
	f.mu.Lock()
	f.calls["trends-days"] = days
	f.mu.Unlock()
	if err := f.hit("trends"); err != nil {
		return nil, err
	}
	return []api.TrendPoint{}, nil
}

func (f *fakeAdmin) CollegeBreakdown(context.Context) ([]api.CollegeBreakdown, error) {
	if err := f.hit("colleges"); err != nil {
		return nil, err
	}
	return []api.CollegeBreakdown{}, nil
}

func (f *fakeAdmin) SearchUsers(_ context.Context, search, roleFilter string) ([]api.UserRecord, error) {
	f.mu.Lock()
	f.calls["search-args"] = len(search) // unfiltered mount passes ""
	f.mu.Unlock()
	if roleFilter != "all" {
		return nil, errors.New("unexpected role filter")
	}
	if err := f.hit("users"); err != nil {
		return nil, err
	}
	return []api.UserRecord{}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStudentRefresh_AllEndpointsLand(t *testing.T) {
	reader := newFakeStudent()
	reader.alerts = []api.Alert{{ID: 1, Severity: api.SeverityHigh}}
	st := store.New(store.Options{})
	f := NewStudentFanout(reader, st, discard())

	f.Refresh(context.Background())

	state := st.State()
	assert.True(t, state.HasRisk)
	assert.Equal(t, 42.0, state.Risk.CurrentScore)
	require.Len(t, state.Alerts, 1)
	for _, name := range []string{"risk", "alerts", "logs", "timeline", "devices"} {
		assert.Equal(t, 1, reader.calls[name], name)
	}
}

func TestStudentRefresh_PartialFailureKeepsPrevious(t *testing.T) {
	reader := newFakeStudent()
	reader.alerts = []api.Alert{{ID: 1, Severity: api.SeverityHigh}}
	st := store.New(store.Options{})
	f := NewStudentFanout(reader, st, discard())

	f.Refresh(context.Background())

	// Alerts endpoint goes dark; risk moves
	reader.fail["alerts"] = true
	reader.risk = api.RiskScore{CurrentScore: 61, RiskLevel: api.RiskMedium}
	f.Refresh(context.Background())

	state := st.State()
	assert.Equal(t, 61.0, state.Risk.CurrentScore)
	require.Len(t, state.Alerts, 1, "failed endpoint keeps last-known-good alerts")
}

func TestStudentRefresh_TotalFailureLeavesStoreUntouched(t *testing.T) {
	reader := newFakeStudent()
	st := store.New(store.Options{})
	f := NewStudentFanout(reader, st, discard())
	f.Refresh(context.Background())
	before := st.State()

	reader.failAll()
	f.Refresh(context.Background())

	after := st.State()
	assert.Equal(t, before.Risk, after.Risk)
	assert.Equal(t, before.LastRefreshed, after.LastRefreshed)
}

func TestAdminRefresh_ExactlySixFetches(t *testing.T) {
	reader := newFakeAdmin()
	reader.stats = api.AdminStats{TotalUsers: 128}
	st := store.New(store.Options{})
	f := NewAdminFanout(reader, st, discard())

	f.Refresh(context.Background())

	total := 0
	for _, name := range []string{"stats", "high-risk", "feed", "trends", "colleges", "users"} {
		assert.Equal(t, 1, reader.calls[name], name)
		total += reader.calls[name]
	}
	assert.Equal(t, 6, total)
	assert.Equal(t, TrendDays, reader.calls["trends-days"])

	state := st.State()
	require.NotNil(t, state.Stats)
	assert.Equal(t, 128, state.Stats.TotalUsers)
}

func TestAdminRefresh_StatsFailureDefaultsToZero(t *testing.T) {
	reader := newFakeAdmin()
	reader.stats = api.AdminStats{TotalUsers: 128}
	st := store.New(store.Options{})
	f := NewAdminFanout(reader, st, discard())
	f.Refresh(context.Background())

	reader.fail["stats"] = true
	f.Refresh(context.Background())

	// Stats endpoint failed: the previous card values stay up
	state := st.State()
	require.NotNil(t, state.Stats)
	assert.Equal(t, 128, state.Stats.TotalUsers)

	// A store that never saw stats shows the zero card
	fresh := store.New(store.Options{})
	assert.Nil(t, fresh.State().Stats)
}

func TestRunner_InitialRefreshThenTicks(t *testing.T) {
	clock := sched.NewManual()
	var count atomic.Int32
	r := NewRunner(15*time.Second, clock, func(context.Context) { count.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	assert.Equal(t, int32(1), count.Load(), "initial refresh is synchronous")

	clock.Advance(15 * time.Second)
	assert.Equal(t, int32(2), count.Load())

	clock.Advance(30 * time.Second)
	assert.Equal(t, int32(4), count.Load(), "runner re-arms after each tick")
}

func TestRunner_StopReleasesTimer(t *testing.T) {
	clock := sched.NewManual()
	var count atomic.Int32
	r := NewRunner(15*time.Second, clock, func(context.Context) { count.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Stop()

	clock.Advance(time.Minute)
	assert.Equal(t, int32(1), count.Load(), "no ticks after Stop")
	assert.Zero(t, clock.Pending())
}
