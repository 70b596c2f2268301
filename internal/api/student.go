// ABOUTME: Student-facing read endpoints: risk, alerts, logs, analytics, privacy
// ABOUTME: Each call is independent so the fan-out fetcher can isolate failures

package api

import (
	"context"
	"fmt"
)

// RiskScore fetches the user's current computed risk state.
func (c *Client) RiskScore(ctx context.Context) (RiskScore, error) {
	return get[RiskScore](ctx, c, "/risk-score")
}

// Alerts fetches the full alert list for the user.
func (c *Client) Alerts(ctx context.Context) ([]Alert, error) {
	return get[[]Alert](ctx, c, "/alerts")
}

// RecentLogs fetches the recent behavior-log window.
func (c *Client) RecentLogs(ctx context.Context) ([]BehaviorLog, error) {
	return get[[]BehaviorLog](ctx, c, "/logs/recent")
}

// AnomalyTimeline fetches the risk-over-time series.
func (c *Client) AnomalyTimeline(ctx context.Context) ([]TimelinePoint, error) {
	return get[[]TimelinePoint](ctx, c, "/anomalies/timeline")
}

// AnomalyHeatmap fetches anomaly frequency bucketed by hour.
func (c *Client) AnomalyHeatmap(ctx context.Context) ([]HeatmapPoint, error) {
	return get[[]HeatmapPoint](ctx, c, "/anomalies/heatmap")
}

// Devices fetches the user's registered devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	return get[[]Device](ctx, c, "/devices")
}

// Wellbeing fetches the screen-time and focus summary.
func (c *Client) Wellbeing(ctx context.Context) (Wellbeing, error) {
	return get[Wellbeing](ctx, c, "/wellbeing")
}

// PermissionAudit fetches the permission request breakdown.
func (c *Client) PermissionAudit(ctx context.Context) (PermissionAudit, error) {
	return get[PermissionAudit](ctx, c, "/permission-audit")
}

// Leaderboard fetches the peer comparison summary.
func (c *Client) Leaderboard(ctx context.Context) (Leaderboard, error) {
	return get[Leaderboard](ctx, c, "/leaderboard")
}

// TrainingProgress fetches the security-training summary.
func (c *Client) TrainingProgress(ctx context.Context) (TrainingProgress, error) {
	return get[TrainingProgress](ctx, c, "/training-progress")
}

// PrivacyAccessLogs fetches the privacy audit trail.
func (c *Client) PrivacyAccessLogs(ctx context.Context) ([]DataAccessLog, error) {
	return get[[]DataAccessLog](ctx, c, "/privacy/data-access")
}

// AlertExplanation fetches the generated explanation for one alert.
func (c *Client) AlertExplanation(ctx context.Context, alertID int64) (Alert, error) {
	return get[Alert](ctx, c, fmt.Sprintf("/privacy/explanation/%d", alertID))
}

// Incidents fetches the user's filed incident reports.
func (c *Client) Incidents(ctx context.Context) ([]Incident, error) {
	return get[[]Incident](ctx, c, "/incidents")
}

// Profile fetches the authenticated user's account.
func (c *Client) Profile(ctx context.Context) (User, error) {
	return get[User](ctx, c, "/profile")
}
