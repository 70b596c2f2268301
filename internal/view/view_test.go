// ABOUTME: Tests for gauge geometry, badge eligibility, and chart projections.
// ABOUTME: Pins band boundaries and the recompute-on-notification badge flip.

package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

func TestComputeGauge_Bands(t *testing.T) {
	cases := []struct {
		score float64
		level string
		color string
	}{
		{0, "low", ColorGreen},
		{40, "low", ColorGreen}, // boundary inclusive
		{40.1, "medium", ColorAmber},
		{70, "medium", ColorAmber},
		{72, "high", ColorRed},
		{100, "high", ColorRed},
	}
	for _, c := range cases {
		g := ComputeGauge(c.score)
		assert.Equal(t, c.level, g.Level, "score %v", c.score)
		assert.Equal(t, c.color, g.Color, "score %v", c.score)
	}
}

func TestComputeGauge_Geometry(t *testing.T) {
	g := ComputeGauge(50)

	circumference := 2 * math.Pi * 80
	assert.InDelta(t, circumference, g.Circumference, 1e-9)
	assert.InDelta(t, 0.5*circumference*0.75, g.Progress, 1e-9)
	assert.Equal(t, 270.0, g.SweepDegrees)
	assert.Equal(t, 135.0, g.RotateDegrees)
}

func TestComputeGauge_ClampsOutOfRange(t *testing.T) {
	assert.Zero(t, ComputeGauge(-5).Progress)
	full := ComputeGauge(140)
	assert.InDelta(t, full.Circumference*0.75, full.Progress, 1e-9)
}

func TestDefaultCatalog_LoadsAllBadges(t *testing.T) {
	cat := DefaultCatalog()
	require.Len(t, cat.Badges, 4)

	ids := map[string]bool{}
	for _, b := range cat.Badges {
		ids[b.ID] = true
	}
	for _, id := range []string{"zero-risk-champion", "threat-survivor", "security-aware", "quick-responder"} {
		assert.True(t, ids[id], id)
	}
}

func TestLoadCatalog_RejectsMissingRule(t *testing.T) {
	_, err := LoadCatalog([]byte("[[badge]]\nid = \"x\"\nname = \"X\"\n"))
	assert.Error(t, err)
}

func TestEarned_Rules(t *testing.T) {
	cat := DefaultCatalog()

	resolved := func(n int) []api.Alert {
		alerts := make([]api.Alert, n)
		for i := range alerts {
			alerts[i] = api.Alert{ID: int64(i + 1), Resolved: true}
		}
		return alerts
	}

	st := store.State{
		HasRisk: true,
		Risk:    api.RiskScore{CurrentScore: 35, RiskLevel: api.RiskLow},
		Alerts:  resolved(3),
	}

	got := Earned(cat, st, true)
	names := make([]string, len(got))
	for i, b := range got {
		names[i] = b.ID
	}
	assert.ElementsMatch(t,
		[]string{"zero-risk-champion", "threat-survivor", "security-aware", "quick-responder"},
		names)

	// One resolved alert qualifies for Quick Responder but not Threat Survivor
	st.Alerts = resolved(1)
	got = Earned(cat, st, false)
	names = names[:0]
	for _, b := range got {
		names = append(names, b.ID)
	}
	assert.ElementsMatch(t, []string{"zero-risk-champion", "quick-responder"}, names)
}

func TestEarned_RecomputesOnEachNotification(t *testing.T) {
	cat := DefaultCatalog()
	s := store.New(store.Options{})

	var zeroRisk []bool
	s.Subscribe(func(st store.State) {
		has := false
		for _, b := range Earned(cat, st, true) {
			if b.ID == "zero-risk-champion" {
				has = true
			}
		}
		zeroRisk = append(zeroRisk, has)
	})

	risk45 := api.RiskScore{CurrentScore: 45, RiskLevel: api.RiskMedium}
	risk38 := api.RiskScore{CurrentScore: 38, RiskLevel: api.RiskLow}
	s.ApplySnapshot(store.Snapshot{Risk: &risk45})
	s.ApplySnapshot(store.Snapshot{Risk: &risk38})

	assert.Equal(t, []bool{false, true}, zeroRisk, "45 to 38 flips Zero Risk Champion")
}

func TestRiskPie_PrefersDistributionMap(t *testing.T) {
	stats := &api.AdminStats{
		HighRiskCount:   1,
		MediumRiskCount: 2,
		LowRiskCount:    3,
		RiskDistribution: map[string]int{
			api.RiskHigh: 10, api.RiskMedium: 20, api.RiskLow: 30,
		},
	}

	pie := RiskPie(stats)
	require.Len(t, pie, 3)
	assert.Equal(t, 10, pie[0].Value)
	assert.Equal(t, ColorRed, pie[0].Color)
	assert.Equal(t, 30, pie[2].Value)

	assert.Nil(t, RiskPie(nil))
}

func TestRadarRows_FixedAxisOrder(t *testing.T) {
	lb := &api.Leaderboard{
		Categories:       map[string]float64{"network": 80, "apps": 60},
		CampusCategories: map[string]float64{"network": 70},
	}

	rows := RadarRows(lb)
	require.Len(t, rows, 4)
	assert.Equal(t, "network", rows[0].Category)
	assert.Equal(t, 80.0, rows[0].User)
	assert.Equal(t, 70.0, rows[0].Campus)
	assert.Equal(t, "permissions", rows[1].Category)
	assert.Zero(t, rows[1].User, "missing category reads as zero")
	assert.Equal(t, "behavior", rows[3].Category)
}

func TestTopNSlices(t *testing.T) {
	logs := make([]api.BehaviorLog, 30)
	alerts := make([]api.Alert, 12)
	st := store.State{Logs: logs, Alerts: alerts}

	assert.Len(t, RecentLogs(st), LogRows)
	assert.Len(t, RecentAlerts(st), AlertRows)

	w := api.Wellbeing{TopApps: make([]api.AppUsage, 9)}
	assert.Len(t, TopApps(w), AppRows)

	p := api.TrainingProgress{Modules: make([]api.TrainingModule, 2)}
	assert.Len(t, TopModules(p), 2, "short lists pass through untrimmed")
}
