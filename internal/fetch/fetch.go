// ABOUTME: Fan-out fetchers issuing independent endpoint reads in parallel
// ABOUTME: Per-endpoint failures fall back to defaults; results publish atomically

package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/metrics"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

// TrendDays is the default admin trend window.
const TrendDays = 14

// StudentReader is the slice of the API client the student fan-out needs.
type StudentReader interface {
	RiskScore(ctx context.Context) (api.RiskScore, error)
	Alerts(ctx context.Context) ([]api.Alert, error)
	RecentLogs(ctx context.Context) ([]api.BehaviorLog, error)
	AnomalyTimeline(ctx context.Context) ([]api.TimelinePoint, error)
	Devices(ctx context.Context) ([]api.Device, error)
}

// ExtendedReader covers the once-per-mount secondary endpoints.
type ExtendedReader interface {
	Wellbeing(ctx context.Context) (api.Wellbeing, error)
	PermissionAudit(ctx context.Context) (api.PermissionAudit, error)
	Leaderboard(ctx context.Context) (api.Leaderboard, error)
	TrainingProgress(ctx context.Context) (api.TrainingProgress, error)
}

// AdminReader is the slice of the API client the admin fan-out needs.
type AdminReader interface {
	AdminStats(ctx context.Context) (api.AdminStats, error)
	HighRiskUsers(ctx context.Context) ([]api.HighRiskUser, error)
	ActivityFeed(ctx context.Context) ([]api.ActivityFeedItem, error)
	Trends(ctx context.Context, days int) ([]api.TrendPoint, error)
	CollegeBreakdown(ctx context.Context) ([]api.CollegeBreakdown, error)
	SearchUsers(ctx context.Context, search, roleFilter string) ([]api.UserRecord, error)
}

// StudentFanout polls the five primary dashboard endpoints.
type StudentFanout struct {
	reader StudentReader
	store  *store.Store
	logger *slog.Logger
}

// NewStudentFanout creates the primary dashboard fetcher.
func NewStudentFanout(reader StudentReader, st *store.Store, logger *slog.Logger) *StudentFanout {
	return &StudentFanout{
		reader: reader,
		store:  st,
		logger: logger.With("component", "fetch"),
	}
}

// Refresh issues the five reads concurrently. Each endpoint carries its own
// failure isolation: a failed read is logged, counted, and contributes a nil
// field so the store keeps its previous value. When every endpoint rejects,
// the snapshot is empty and the store stays untouched — the dashboard
// degrades to last-known-good rather than blanking. No error is returned:
// nothing here is fatal to the view.
func (f *StudentFanout) Refresh(ctx context.Context) {
	var snap store.Snapshot
	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		if v, err := f.reader.RiskScore(ctx); err != nil {
			f.fetchFailed("risk-score", err)
		} else {
			snap.Risk = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.Alerts(ctx); err != nil {
			f.fetchFailed("alerts", err)
		} else {
			snap.Alerts = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.RecentLogs(ctx); err != nil {
			f.fetchFailed("logs", err)
		} else {
			snap.Logs = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.AnomalyTimeline(ctx); err != nil {
			f.fetchFailed("timeline", err)
		} else {
			snap.Timeline = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.Devices(ctx); err != nil {
			f.fetchFailed("devices", err)
		} else {
			snap.Devices = &v
		}
	}()

	wg.Wait()

	if snap.Empty() {
		metrics.EmptyRefreshes.Inc()
		f.logger.Warn("all endpoints failed, keeping last-known-good state")
		return
	}
	metrics.Refreshes.Inc()
	f.store.ApplySnapshot(snap)
}

// LoadExtended fetches the secondary endpoints once per mount. Failures
// leave the corresponding panels empty; nothing is fatal.
func (f *StudentFanout) LoadExtended(ctx context.Context, reader ExtendedReader) {
	var ext store.Extended
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		if v, err := reader.Wellbeing(ctx); err != nil {
			f.fetchFailed("wellbeing", err)
		} else {
			ext.Wellbeing = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := reader.PermissionAudit(ctx); err != nil {
			f.fetchFailed("permission-audit", err)
		} else {
			ext.Permissions = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := reader.Leaderboard(ctx); err != nil {
			f.fetchFailed("leaderboard", err)
		} else {
			ext.Leaderboard = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := reader.TrainingProgress(ctx); err != nil {
			f.fetchFailed("training-progress", err)
		} else {
			ext.Training = &v
		}
	}()

	wg.Wait()
	f.store.ApplyExtended(ext)
}

func (f *StudentFanout) fetchFailed(endpoint string, err error) {
	metrics.FetchFailures.WithLabelValues(endpoint).Inc()
	f.logger.Warn("endpoint fetch failed, using default", "endpoint", endpoint, "error", err)
}

// AdminFanout polls the six admin endpoints.
type AdminFanout struct {
	reader AdminReader
	store  *store.Store
	logger *slog.Logger
}

// NewAdminFanout creates the admin overview fetcher.
func NewAdminFanout(reader AdminReader, st *store.Store, logger *slog.Logger) *AdminFanout {
	return &AdminFanout{
		reader: reader,
		store:  st,
		logger: logger.With("component", "fetch"),
	}
}

// Refresh issues exactly six parallel reads: stats, high-risk users,
// activity feed, trends, college breakdown, and the unfiltered user table.
// Failure semantics match StudentFanout.
func (f *AdminFanout) Refresh(ctx context.Context) {
	var snap store.AdminSnapshot
	var wg sync.WaitGroup
	wg.Add(6)

	go func() {
		defer wg.Done()
		if v, err := f.reader.AdminStats(ctx); err != nil {
			f.fetchFailed("admin-stats", err)
		} else {
			snap.Stats = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.HighRiskUsers(ctx); err != nil {
			f.fetchFailed("high-risk-users", err)
		} else {
			snap.HighRisk = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.ActivityFeed(ctx); err != nil {
			f.fetchFailed("activity-feed", err)
		} else {
			snap.Feed = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.Trends(ctx, TrendDays); err != nil {
			f.fetchFailed("trends", err)
		} else {
			snap.Trends = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.CollegeBreakdown(ctx); err != nil {
			f.fetchFailed("college-breakdown", err)
		} else {
			snap.Colleges = &v
		}
	}()
	go func() {
		defer wg.Done()
		if v, err := f.reader.SearchUsers(ctx, "", "all"); err != nil {
			f.fetchFailed("all-users", err)
		} else {
			snap.Users = &v
		}
	}()

	wg.Wait()

	if snap.Empty() {
		metrics.EmptyRefreshes.Inc()
		f.logger.Warn("all admin endpoints failed, keeping last-known-good state")
		return
	}
	metrics.Refreshes.Inc()
	f.store.ApplyAdminSnapshot(snap)
}

func (f *AdminFanout) fetchFailed(endpoint string, err error) {
	metrics.FetchFailures.WithLabelValues(endpoint).Inc()
	f.logger.Warn("endpoint fetch failed, using default", "endpoint", endpoint, "error", err)
}
