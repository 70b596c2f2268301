// ABOUTME: Response and request shapes for every sentinel backend endpoint
// ABOUTME: Discriminated push event variants and a tolerant timestamp type

package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role values accepted by the backend.
const (
	RoleStudent = "student"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

// Risk levels computed by the backend.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Alert severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Timestamp accepts both RFC 3339 and the backend's naive ISO 8601 form
// (no timezone suffix). Naive values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// User is the authenticated account shape shared by auth and admin endpoints.
type User struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	College      string    `json:"college"`
	Role         string    `json:"role" validate:"oneof=student parent admin"`
	ConsentGiven bool      `json:"consent_given"`
	CreatedAt    Timestamp `json:"created_at"`
}

// TokenResponse is returned by login and register.
type TokenResponse struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// RiskScore is the user's computed risk state. Replaced atomically on each
// successful poll; never partially merged.
type RiskScore struct {
	CurrentScore float64    `json:"current_score" validate:"gte=0,lte=100"`
	RiskLevel    string     `json:"risk_level" validate:"oneof=low medium high"`
	LastUpdated  *Timestamp `json:"last_updated"`
}

// Alert identity is ID; uniqueness must hold across the polled list and
// push-delivered alerts.
type Alert struct {
	ID              int64     `json:"id" validate:"required"`
	UserID          string    `json:"user_id"`
	AlertType       string    `json:"alert_type"`
	Severity        string    `json:"severity" validate:"oneof=low medium high critical"`
	Message         string    `json:"message"`
	ExplanationText string    `json:"explanation_text"`
	Recommendation  string    `json:"recommendation"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       Timestamp `json:"created_at"`
	Resolved        bool      `json:"resolved"`
}

// BehaviorLog is one entry of the append-only device activity feed.
type BehaviorLog struct {
	ID                   int64     `json:"id" validate:"required"`
	UserID               string    `json:"user_id"`
	DeviceID             string    `json:"device_id"`
	Timestamp            Timestamp `json:"timestamp"`
	AppName              string    `json:"app_name"`
	PermissionRequested  string    `json:"permission_requested"`
	NetworkActivityLevel float64   `json:"network_activity_level"`
	BackgroundProcess    bool      `json:"background_process_flag"`
	AnomalyFlag          bool      `json:"anomaly_flag"`
	AnomalyType          string    `json:"anomaly_type"`
	Severity             string    `json:"severity"`
	AnomalyScore         float64   `json:"anomaly_score"`
}

// Device is a registered monitored device.
type Device struct {
	ID         string    `json:"id" validate:"required"`
	UserID     string    `json:"user_id"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	LastActive Timestamp `json:"last_active"`
	RiskScore  float64   `json:"risk_score"`
}

// TimelinePoint is one sample of the anomaly/risk timeline.
type TimelinePoint struct {
	Timestamp string  `json:"timestamp"`
	RiskScore float64 `json:"risk_score"`
}

// HeatmapPoint buckets anomaly frequency by hour of day.
type HeatmapPoint struct {
	Hour      int `json:"hour" validate:"gte=0,lte=23"`
	Frequency int `json:"frequency"`
}

// AppUsage is one row of the wellbeing top-apps breakdown.
type AppUsage struct {
	AppName      string  `json:"app_name"`
	UsageMinutes float64 `json:"usage_minutes"`
	Sessions     int     `json:"sessions"`
}

// Wellbeing summarizes screen time and focus.
type Wellbeing struct {
	ScreenTimeHours float64          `json:"screen_time_hours"`
	FocusScore      int              `json:"focus_score"`
	DailySessions   int              `json:"daily_sessions"`
	TopApps         []AppUsage       `json:"top_apps"`
	DailyTrend      []map[string]any `json:"daily_trend"`
}

// PermissionBreakdown is one row of the permission audit.
type PermissionBreakdown struct {
	Permission string  `json:"permission"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PermissionAudit summarizes permission requests across apps.
type PermissionAudit struct {
	TotalRequests int                   `json:"total_requests"`
	Breakdown     []PermissionBreakdown `json:"breakdown"`
	RiskyApps     []string              `json:"risky_apps"`
}

// Leaderboard is the peer comparison summary. Category maps use the keys
// network, permissions, apps, behavior.
type Leaderboard struct {
	Rank             int                `json:"rank"`
	TotalStudents    int                `json:"total_students"`
	Percentile       int                `json:"percentile"`
	UserScore        float64            `json:"user_score"`
	CampusAverage    float64            `json:"campus_average"`
	Categories       map[string]float64 `json:"categories"`
	CampusCategories map[string]float64 `json:"campus_categories"`
}

// TrainingModule is one security-training unit.
type TrainingModule struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Difficulty      string `json:"difficulty"`
	DurationMinutes int    `json:"duration_minutes"`
	Completed       bool   `json:"completed"`
	Score           *int   `json:"score"`
}

// TrainingProgress is the user's training summary.
type TrainingProgress struct {
	Modules        []TrainingModule `json:"modules"`
	CompletedCount int              `json:"completed_count"`
	TotalCount     int              `json:"total_count"`
	OverallScore   int              `json:"overall_score"`
}

// DataAccessLog is one privacy audit entry.
type DataAccessLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	DataType  string    `json:"data_type"`
	Purpose   string    `json:"purpose"`
	Timestamp Timestamp `json:"timestamp"`
}

// Incident is a user-filed report against an alert.
type Incident struct {
	ID          int64     `json:"id"`
	AlertID     int64     `json:"alert_id"`
	UserID      string    `json:"user_id"`
	ReportType  string    `json:"report_type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   Timestamp `json:"created_at"`
}

// AdminStats is the institution-wide summary behind the admin stat cards.
type AdminStats struct {
	TotalUsers       int            `json:"total_users"`
	TotalStudents    int            `json:"total_students"`
	TotalAdmins      int            `json:"total_admins"`
	HighRiskCount    int            `json:"high_risk_count"`
	MediumRiskCount  int            `json:"medium_risk_count"`
	LowRiskCount     int            `json:"low_risk_count"`
	TotalAlerts      int            `json:"total_alerts"`
	UnresolvedAlerts int            `json:"unresolved_alerts"`
	RiskDistribution map[string]int `json:"risk_distribution"`
}

// HighRiskUser is one row of the admin high-risk list.
type HighRiskUser struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	College      string  `json:"college"`
	CurrentScore float64 `json:"current_score"`
	RiskLevel    string  `json:"risk_level"`
}

// ActivityFeedItem is one row of the live admin activity feed.
type ActivityFeedItem struct {
	ID           int64     `json:"id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	AlertType    string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	CreatedAt    Timestamp `json:"created_at"`
}

// TrendPoint is one day of the admin trend series.
type TrendPoint struct {
	Date         string  `json:"date"`
	AvgRiskScore float64 `json:"avg_risk_score"`
	AlertCount   int     `json:"alert_count"`
	AnomalyCount int     `json:"anomaly_count"`
}

// CollegeBreakdown aggregates risk per college.
type CollegeBreakdown struct {
	College       string  `json:"college"`
	TotalStudents int     `json:"total_students"`
	HighRisk      int     `json:"high_risk"`
	MediumRisk    int     `json:"medium_risk"`
	LowRisk       int     `json:"low_risk"`
	AvgScore      float64 `json:"avg_score"`
}

// UserRecord is one row of the admin all-users table. Sourced entirely from
// the fan-out fetch / query pipeline; never mutated locally.
type UserRecord struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	College      string    `json:"college"`
	Role         string    `json:"role"`
	ConsentGiven bool      `json:"consent_given"`
	RiskScore    *float64  `json:"risk_score"`
	RiskLevel    *string   `json:"risk_level"`
	AlertCount   int       `json:"alert_count"`
	CreatedAt    Timestamp `json:"created_at"`
}
