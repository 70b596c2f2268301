// ABOUTME: Terminal rendering for the admin overview and user table
// ABOUTME: Tabwriter columns with severity coloring from the view projections

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/store"
	"github.com/sentinelai/sentinel-cli/internal/view"
)

func riskColor(level string) *color.Color {
	switch level {
	case api.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case api.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printOverview(w io.Writer, st store.State) {
	bold := color.New(color.Bold)

	// Stat cards. total_users defaults to 0 when the stats endpoint never
	// answered.
	var totalUsers, totalAlerts, unresolved int
	if st.Stats != nil {
		totalUsers = st.Stats.TotalUsers
		totalAlerts = st.Stats.TotalAlerts
		unresolved = st.Stats.UnresolvedAlerts
	}
	bold.Fprintln(w, "Institution Overview")
	fmt.Fprintf(w, "  users: %d   alerts: %d (%d unresolved)\n\n", totalUsers, totalAlerts, unresolved)

	if pie := view.RiskPie(st.Stats); pie != nil {
		bold.Fprintln(w, "Risk Distribution")
		for _, slice := range pie {
			fmt.Fprintf(w, "  %-12s %d\n", slice.Label, slice.Value)
		}
		fmt.Fprintln(w)
	}

	if len(st.HighRisk) > 0 {
		bold.Fprintln(w, "High Risk Users")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tCOLLEGE\tSCORE\tLEVEL")
		for _, u := range st.HighRisk {
			fmt.Fprintf(tw, "  %s\t%s\t%.1f\t%s\n",
				u.Name, u.College, u.CurrentScore, riskColor(u.RiskLevel).Sprint(u.RiskLevel))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if rows := view.TrendRows(st.Trends); len(rows) > 0 {
		bold.Fprintln(w, "Trends")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  DATE\tAVG RISK\tALERTS\tANOMALIES")
		for _, r := range rows {
			fmt.Fprintf(tw, "  %s\t%.1f\t%d\t%d\n", r.Date, r.AvgRisk, r.Alerts, r.Anomalies)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(st.Colleges) > 0 {
		bold.Fprintln(w, "By College")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  COLLEGE\tSTUDENTS\tHIGH\tMEDIUM\tLOW\tAVG")
		for _, c := range st.Colleges {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\t%.1f\n",
				c.College, c.TotalStudents, c.HighRisk, c.MediumRisk, c.LowRisk, c.AvgScore)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(st.Feed) > 0 {
		bold.Fprintln(w, "Recent Activity")
		for _, item := range st.Feed {
			fmt.Fprintf(w, "  [%s] %s: %s\n",
				riskColor(severityToRisk(item.Severity)).Sprint(item.Severity),
				item.StudentName, item.Message)
		}
	}
}

// severityToRisk collapses the four alert severities onto the three risk
// bands used for coloring.
func severityToRisk(severity string) string {
	switch severity {
	case api.SeverityCritical, api.SeverityHigh:
		return api.RiskHigh
	case api.SeverityMedium:
		return api.RiskMedium
	default:
		return api.RiskLow
	}
}

func printUsers(w io.Writer, users []api.UserRecord) {
	if len(users) == 0 {
		fmt.Fprintln(w, "no matching users")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tRISK\tALERTS")
	for _, u := range users {
		risk := "-"
		if u.RiskScore != nil {
			level := ""
			if u.RiskLevel != nil {
				level = *u.RiskLevel
			}
			risk = riskColor(level).Sprintf("%.1f", *u.RiskScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			u.ID, u.Name, u.Email, u.Role, risk, u.AlertCount)
	}
	tw.Flush()
}
