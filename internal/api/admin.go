// ABOUTME: Admin read endpoints: stats, high-risk list, feed, trends, user search
// ABOUTME: SearchUsers backs the debounced query pipeline

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AdminStats fetches institution-wide counters for the stat cards.
func (c *Client) AdminStats(ctx context.Context) (AdminStats, error) {
	return get[AdminStats](ctx, c, "/admin/stats")
}

// HighRiskUsers fetches the current high-risk student list.
func (c *Client) HighRiskUsers(ctx context.Context) ([]HighRiskUser, error) {
	return get[[]HighRiskUser](ctx, c, "/admin/high-risk-users")
}

// ActivityFeed fetches the recent cross-student alert feed.
func (c *Client) ActivityFeed(ctx context.Context) ([]ActivityFeedItem, error) {
	return get[[]ActivityFeedItem](ctx, c, "/admin/activity-feed")
}

// Trends fetches the daily aggregate series over the given number of days.
func (c *Client) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	return get[[]TrendPoint](ctx, c, fmt.Sprintf("/admin/trends?days=%d", days))
}

// CollegeBreakdown fetches per-college risk aggregates.
func (c *Client) CollegeBreakdown(ctx context.Context) ([]CollegeBreakdown, error) {
	return get[[]CollegeBreakdown](ctx, c, "/admin/college-breakdown")
}

// SearchUsers fetches the user table filtered server-side by a
// case-insensitive substring on name/email and an exact role filter
// ("all" disables the role filter). Results reflect server authority;
// no client-side filtering of a cached list.
func (c *Client) SearchUsers(ctx context.Context, search, roleFilter string) ([]UserRecord, error) {
	if roleFilter == "" {
		roleFilter = "all"
	}
	q := url.Values{}
	q.Set("search", search)
	q.Set("role_filter", roleFilter)
	return get[[]UserRecord](ctx, c, "/admin/all-users?"+q.Encode())
}

// ExportReport streams the institution CSV report into w.
// A one-shot action outside the reconciliation core.
func (c *Client) ExportReport(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/export-report", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET /admin/export-report: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("GET /admin/export-report: %w", err)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("streaming report: %w", err)
	}
	return nil
}
