// ABOUTME: Write endpoints: auth, consent, resolve, block, incidents, escalate
// ABOUTME: Fire-and-forget from the engine's view; callers update state optimistically

package api

import (
	"context"
	"fmt"
)

// RegisterRequest is the new-account form.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	College  string `json:"college"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	return post[TokenResponse](ctx, c, "/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and returns tokens.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (TokenResponse, error) {
	return post[TokenResponse](ctx, c, "/register", req)
}

// SubmitConsent records the monitoring consent decision.
func (c *Client) SubmitConsent(ctx context.Context, acceptTerms, enableMonitoring bool) error {
	return c.do(ctx, "POST", "/consent", map[string]bool{
		"accept_terms":      acceptTerms,
		"enable_monitoring": enableMonitoring,
	}, nil)
}

// ResolveAlert marks an alert resolved server-side. On success the caller
// flips the local copy optimistically; on failure state is left untouched.
func (c *Client) ResolveAlert(ctx context.Context, alertID int64) error {
	return c.do(ctx, "POST", "/resolve-alert", map[string]int64{"alert_id": alertID}, nil)
}

// BlockApp requests that an app be blocked on the user's devices.
func (c *Client) BlockApp(ctx context.Context, appName string) error {
	return c.do(ctx, "POST", "/block-app", map[string]string{"app_name": appName}, nil)
}

// ReportIncident files a report against an alert.
func (c *Client) ReportIncident(ctx context.Context, alertID int64, reportType, description string) (Incident, error) {
	return post[Incident](ctx, c, "/incidents/report", map[string]any{
		"alert_id":    alertID,
		"report_type": reportType,
		"description": description,
	})
}

// UpdateIncidentStatus transitions an incident.
func (c *Client) UpdateIncidentStatus(ctx context.Context, incidentID int64, status string) error {
	path := fmt.Sprintf("/incidents/%d/status?status=%s", incidentID, status)
	return c.do(ctx, "PATCH", path, nil, nil)
}

// RegisterDevice enrolls a device for monitoring.
func (c *Client) RegisterDevice(ctx context.Context, name, deviceType string) (Device, error) {
	return post[Device](ctx, c, "/devices/register", map[string]string{
		"device_name": name,
		"device_type": deviceType,
	})
}

// Escalate raises a user to institutional attention (admin only).
func (c *Client) Escalate(ctx context.Context, userID, reason string) error {
	return c.do(ctx, "POST", "/escalate", map[string]string{
		"user_id": userID,
		"reason":  reason,
	}, nil)
}
