// ABOUTME: Bubbletea model rendering the student dashboard from store state
// ABOUTME: Gauge, badges, alerts, toasts, and optimistic resolve keybindings

package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/fetch"
	"github.com/sentinelai/sentinel-cli/internal/push"
	"github.com/sentinelai/sentinel-cli/internal/report"
	"github.com/sentinelai/sentinel-cli/internal/session"
	"github.com/sentinelai/sentinel-cli/internal/store"
	"github.com/sentinelai/sentinel-cli/internal/view"
)

type stateMsg struct {
	state store.State
}

type resolveDoneMsg struct {
	alertID int64
	err     error
}

type exportDoneMsg struct {
	path string
	err  error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dd3fc"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15"))
	toastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f97316"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

type model struct {
	ctx       context.Context
	sess      *session.Session
	client    *api.Client
	store     *store.Store
	fan       *fetch.StudentFanout
	pushState func() push.State
	badges    view.Catalog

	state   store.State
	width   int
	lastErr string
	notice  string
}

func newModel(ctx context.Context, sess *session.Session, client *api.Client, st *store.Store, fan *fetch.StudentFanout, pushState func() push.State) model {
	return model{
		ctx:       ctx,
		sess:      sess,
		client:    client,
		store:     st,
		fan:       fan,
		pushState: pushState,
		badges:    view.DefaultCatalog(),
		state:     st.State(),
		width:     100,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateMsg:
		m.state = msg.state
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.lastErr = ""
			m.notice = "explanation written to " + msg.path
		}
		return m, nil

	case resolveDoneMsg:
		if msg.err != nil {
			// Write failed: state was not optimistically changed, the
			// alert simply stays unresolved on screen.
			m.lastErr = fmt.Sprintf("resolve alert %d failed: %v", msg.alertID, msg.err)
		} else {
			m.lastErr = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "e":
			return m, m.exportExplanationCmd()
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				return m, m.resolveCmd(int(key[0] - '1'))
			}
		}
	}
	return m, nil
}

func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		m.fan.Refresh(m.ctx)
		return nil
	}
}

// resolveCmd resolves the idx-th visible alert. The local flip happens only
// after the server accepts the write; it then survives stale polls until the
// server's own data confirms it.
func (m model) resolveCmd(idx int) tea.Cmd {
	alerts := view.RecentAlerts(m.state)
	if idx >= len(alerts) || alerts[idx].Resolved {
		return nil
	}
	id := alerts[idx].ID
	return func() tea.Msg {
		if err := m.client.ResolveAlert(m.ctx, id); err != nil {
			return resolveDoneMsg{alertID: id, err: err}
		}
		m.store.MarkResolved(id)
		return resolveDoneMsg{alertID: id}
	}
}

// exportExplanationCmd writes the first unresolved alert's explanation to an
// HTML handoff file next to the session dir.
func (m model) exportExplanationCmd() tea.Cmd {
	var target *api.Alert
	for i := range m.state.Alerts {
		if !m.state.Alerts[i].Resolved {
			target = &m.state.Alerts[i]
			break
		}
	}
	if target == nil {
		return nil
	}
	alert := *target
	path := fmt.Sprintf("alert-%d.html", alert.ID)
	return func() tea.Msg {
		if err := report.WriteExplanation(alert, path); err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{path: path}
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.gaugePanel(), m.badgePanel()))
	b.WriteString("\n")
	if toasts := m.toastLines(); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}
	b.WriteString(m.alertPanel())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.logPanel(), m.devicePanel()))
	b.WriteString("\n")
	if extended := m.extendedPanels(); extended != "" {
		b.WriteString(extended)
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(okStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("r refresh · 1-9 resolve alert · e export explanation · q quit"))
	return b.String()
}

func (m model) extendedPanels() string {
	var panels []string

	if w := m.state.Wellbeing; w != nil {
		lines := []string{
			headerStyle.Render("Wellbeing"),
			fmt.Sprintf("screen time %.1fh  focus %d", w.ScreenTimeHours, w.FocusScore),
		}
		for _, app := range view.TopApps(*w) {
			lines = append(lines, fmt.Sprintf("%-16s %4.0fm", app.AppName, app.UsageMinutes))
		}
		panels = append(panels, panelStyle.Render(strings.Join(lines, "\n")))
	}

	if p := m.state.Training; p != nil {
		lines := []string{
			headerStyle.Render(fmt.Sprintf("Training %d/%d", p.CompletedCount, p.TotalCount)),
		}
		for _, mod := range view.TopModules(*p) {
			mark := dimStyle.Render("·")
			if mod.Completed {
				mark = okStyle.Render("✓")
			}
			lines = append(lines, fmt.Sprintf("%s %s", mark, mod.Title))
		}
		panels = append(panels, panelStyle.Render(strings.Join(lines, "\n")))
	}

	if lb := m.state.Leaderboard; lb != nil {
		lines := []string{
			headerStyle.Render(fmt.Sprintf("Campus Rank #%d of %d", lb.Rank, lb.TotalStudents)),
		}
		for _, row := range view.RadarRows(lb) {
			lines = append(lines, fmt.Sprintf("%-12s you %5.1f  campus %5.1f", row.Category, row.User, row.Campus))
		}
		panels = append(panels, panelStyle.Render(strings.Join(lines, "\n")))
	}

	if len(panels) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (m model) header() string {
	status := m.pushState().String()
	style := dimStyle
	if m.pushState() == push.StateConnected {
		style = okStyle
	}
	left := titleStyle.Render("Sentinel") + "  " + headerStyle.Render(m.sess.User.Name)
	right := style.Render("push: " + status)
	if !m.state.LastRefreshed.IsZero() {
		right += dimStyle.Render("  refreshed " + m.state.LastRefreshed.Local().Format("15:04:05"))
	}
	return left + "   " + right
}

func (m model) gaugePanel() string {
	if !m.state.HasRisk {
		return panelStyle.Render(dimStyle.Render("risk score pending..."))
	}
	g := view.ComputeGauge(m.state.Risk.CurrentScore)
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color))

	filled := int(g.Progress / (g.Circumference * 0.75) * 30)
	bar := color.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", 30-filled))

	body := fmt.Sprintf("%s\n%s  %s\n%s",
		headerStyle.Render("Risk Score"),
		color.Render(fmt.Sprintf("%5.1f", g.Score)),
		color.Render(strings.ToUpper(g.Level)),
		bar)
	return panelStyle.Render(body)
}

func (m model) badgePanel() string {
	earned := view.Earned(m.badges, m.state, m.sess.User.ConsentGiven)
	lines := []string{headerStyle.Render("Badges")}
	if len(earned) == 0 {
		lines = append(lines, dimStyle.Render("none yet"))
	}
	for _, badge := range earned {
		lines = append(lines, badgeStyle.Render("* "+badge.Name))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m model) toastLines() string {
	if len(m.state.Toasts) == 0 {
		return ""
	}
	var lines []string
	for _, t := range m.state.Toasts {
		lines = append(lines, toastStyle.Render(fmt.Sprintf("! [%s] %s", t.Severity, t.Message)))
	}
	return strings.Join(lines, "\n")
}

func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case api.SeverityCritical, api.SeverityHigh:
		return errorStyle
	case api.SeverityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	default:
		return okStyle
	}
}

func (m model) alertPanel() string {
	alerts := view.RecentAlerts(m.state)
	lines := []string{headerStyle.Render(fmt.Sprintf("Alerts (%d unresolved)", m.state.UnresolvedCount()))}
	if len(alerts) == 0 {
		lines = append(lines, okStyle.Render("all clear"))
	}
	for i, a := range alerts {
		mark := " "
		if a.Resolved {
			mark = okStyle.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("%d %s %s %s",
			i+1, mark, severityStyle(a.Severity).Render(fmt.Sprintf("%-8s", a.Severity)), a.Message))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m model) logPanel() string {
	logs := view.RecentLogs(m.state)
	lines := []string{headerStyle.Render("Recent Activity")}
	for _, l := range logs {
		flag := " "
		if l.AnomalyFlag {
			flag = errorStyle.Render("!")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			dimStyle.Render(l.Timestamp.Local().Format("15:04")), flag, l.AppName))
	}
	if len(logs) == 0 {
		lines = append(lines, dimStyle.Render("no activity"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m model) devicePanel() string {
	lines := []string{headerStyle.Render("Devices")}
	for _, d := range m.state.Devices {
		lines = append(lines, fmt.Sprintf("%s %s", d.DeviceName, dimStyle.Render(d.DeviceType)))
	}
	if len(m.state.Devices) == 0 {
		lines = append(lines, dimStyle.Render("none registered"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
