// ABOUTME: Pure projections from store state into chart-ready series
// ABOUTME: Pie, radar, trend rows and the fixed top-N table slices

package view

import (
	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

// Row caps for the dashboard tables.
const (
	LogRows    = 15
	AlertRows  = 10
	AppRows    = 6
	ModuleRows = 4
)

// PieSlice is one wedge of the risk distribution pie.
type PieSlice struct {
	Label string
	Value int
	Color string
}

// RiskPie projects admin stats into the three-band distribution pie. The
// distribution map wins when the backend sends it; the flat counts are the
// fallback for older responses.
func RiskPie(stats *api.AdminStats) []PieSlice {
	if stats == nil {
		return nil
	}
	high, medium, low := stats.HighRiskCount, stats.MediumRiskCount, stats.LowRiskCount
	if len(stats.RiskDistribution) > 0 {
		high = stats.RiskDistribution[api.RiskHigh]
		medium = stats.RiskDistribution[api.RiskMedium]
		low = stats.RiskDistribution[api.RiskLow]
	}
	return []PieSlice{
		{Label: "High Risk", Value: high, Color: ColorRed},
		{Label: "Medium Risk", Value: medium, Color: ColorAmber},
		{Label: "Low Risk", Value: low, Color: ColorGreen},
	}
}

// RadarRow compares the user against the campus on one category axis.
type RadarRow struct {
	Category string
	User     float64
	Campus   float64
}

// radarCategories fixes the axis order; map iteration order must never
// decide how the chart is drawn.
var radarCategories = []string{"network", "permissions", "apps", "behavior"}

// RadarRows projects the leaderboard category maps onto the fixed axes.
// Missing categories read as zero.
func RadarRows(lb *api.Leaderboard) []RadarRow {
	if lb == nil {
		return nil
	}
	rows := make([]RadarRow, 0, len(radarCategories))
	for _, cat := range radarCategories {
		rows = append(rows, RadarRow{
			Category: cat,
			User:     lb.Categories[cat],
			Campus:   lb.CampusCategories[cat],
		})
	}
	return rows
}

// TrendRow is one day of the admin trend chart.
type TrendRow struct {
	Date      string
	AvgRisk   float64
	Alerts    int
	Anomalies int
}

// TrendRows converts raw trend points into chart rows, oldest first as the
// backend delivers them.
func TrendRows(points []api.TrendPoint) []TrendRow {
	rows := make([]TrendRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, TrendRow{
			Date:      p.Date,
			AvgRisk:   p.AvgRiskScore,
			Alerts:    p.AlertCount,
			Anomalies: p.AnomalyCount,
		})
	}
	return rows
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RecentLogs returns the bounded activity table slice.
func RecentLogs(st store.State) []api.BehaviorLog {
	return head(st.Logs, LogRows)
}

// RecentAlerts returns the bounded alert table slice.
func RecentAlerts(st store.State) []api.Alert {
	return head(st.Alerts, AlertRows)
}

// TopApps returns the bounded wellbeing app breakdown.
func TopApps(w api.Wellbeing) []api.AppUsage {
	return head(w.TopApps, AppRows)
}

// TopModules returns the bounded training module list.
func TopModules(p api.TrainingProgress) []api.TrainingModule {
	return head(p.Modules, ModuleRows)
}
