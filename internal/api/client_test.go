// ABOUTME: Tests for the backend client: decoding, validation, auth, error mapping.
// ABOUTME: Uses httptest servers standing in for the remote service.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", WithToken(func() string { return "test-token" }))
}

func TestRiskScore_Decode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/risk-score", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"current_score": 72.5, "risk_level": "high", "last_updated": "2026-08-28T10:15:00"}`))
	})

	score, err := client.RiskScore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72.5, score.CurrentScore)
	assert.Equal(t, RiskHigh, score.RiskLevel)
	require.NotNil(t, score.LastUpdated)
	assert.Equal(t, 2026, score.LastUpdated.Year())
}

func TestRiskScore_ValidationRejectsBadLevel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_score": 50, "risk_level": "extreme"}`))
	})

	_, err := client.RiskScore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response")
}

func TestAlerts_SliceValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 1, "severity": "high", "message": "Unusual login", "created_at": "2026-08-27T22:00:00Z", "resolved": false},
			{"id": 2, "severity": "critical", "message": "Data exfiltration", "created_at": "2026-08-28T01:30:00Z", "resolved": true}
		]`))
	})

	alerts, err := client.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(1), alerts[0].ID)
	assert.True(t, alerts[1].Resolved)
}

func TestAlerts_InvalidElementRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Second element has a severity outside the enum
		w.Write([]byte(`[
			{"id": 1, "severity": "high", "message": "ok", "created_at": "2026-08-27T22:00:00Z"},
			{"id": 2, "severity": "apocalyptic", "message": "bad", "created_at": "2026-08-27T22:00:00Z"}
		]`))
	})

	_, err := client.Alerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
}

func TestUnauthorizedMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Alerts(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := client.RiskScore(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Equal(t, "upstream down", statusErr.Body)
}

func TestSearchUsers_QueryEncoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice smith", r.URL.Query().Get("search"))
		assert.Equal(t, "student", r.URL.Query().Get("role_filter"))
		w.Write([]byte(`[]`))
	})

	users, err := client.SearchUsers(context.Background(), "alice smith", "student")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSearchUsers_EmptyRoleDefaultsToAll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("role_filter"))
		w.Write([]byte(`[]`))
	})

	_, err := client.SearchUsers(context.Background(), "", "")
	require.NoError(t, err)
}

func TestExportReport_Streams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/export-report", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("name,email,risk\nalice,a@x.edu,12\n"))
	})

	var buf strings.Builder
	require.NoError(t, client.ExportReport(context.Background(), &buf))
	assert.Contains(t, buf.String(), "alice,a@x.edu,12")
}

func TestResolveAlert_PostsBody(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status": "ok"}`))
	})

	require.NoError(t, client.ResolveAlert(context.Background(), 42))
	assert.Equal(t, "/api/resolve-alert", gotPath)
}

func TestWellbeing_Decode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wellbeing", r.URL.Path)
		w.Write([]byte(`{
			"screen_time_hours": 6.5, "focus_score": 71, "daily_sessions": 34,
			"top_apps": [{"app_name": "ChatJPT", "usage_minutes": 95, "sessions": 12}]
		}`))
	})

	wb, err := client.Wellbeing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6.5, wb.ScreenTimeHours)
	require.Len(t, wb.TopApps, 1)
	assert.Equal(t, "ChatJPT", wb.TopApps[0].AppName)
}

func TestAnomalyHeatmap_HourValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"hour": 25, "frequency": 3}]`))
	})

	_, err := client.AnomalyHeatmap(context.Background())
	require.Error(t, err, "hour outside 0..23 is rejected")
}

func TestAlertExplanation_PathAndDecode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/privacy/explanation/7", r.URL.Path)
		w.Write([]byte(`{"id": 7, "severity": "medium", "message": "m", "explanation_text": "because", "created_at": "2026-08-28T09:00:00"}`))
	})

	alert, err := client.AlertExplanation(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "because", alert.ExplanationText)
}

func TestReportIncident_RoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/incidents/report", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"id": 3, "alert_id": 7, "report_type": "false_positive", "status": "open", "created_at": "2026-08-28T09:05:00"}`))
	})

	inc, err := client.ReportIncident(context.Background(), 7, "false_positive", "this was me")
	require.NoError(t, err)
	assert.Equal(t, int64(3), inc.ID)
	assert.Equal(t, "open", inc.Status)
}

func TestRegisterDevice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices/register", r.URL.Path)
		w.Write([]byte(`{"id": "d1", "device_name": "laptop", "device_type": "macos", "last_active": "2026-08-28T09:00:00"}`))
	})

	dev, err := client.RegisterDevice(context.Background(), "laptop", "macos")
	require.NoError(t, err)
	assert.Equal(t, "d1", dev.ID)
}

func TestPrivacyAccessLogs_Decode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/privacy/data-access", r.URL.Path)
		w.Write([]byte(`[{"id": 1, "data_type": "behavior_logs", "purpose": "risk scoring", "timestamp": "2026-08-28T08:00:00"}]`))
	})

	logs, err := client.PrivacyAccessLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "risk scoring", logs[0].Purpose)
}

func TestWSBase_Derivation(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"http", "http://localhost:8000/api", "ws://localhost:8000"},
		{"https", "https://sentinel.example.edu/api", "wss://sentinel.example.edu"},
		{"no api suffix", "http://localhost:8000", "ws://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.base)
			assert.Equal(t, tt.want, c.WSBase())
		})
	}
}
