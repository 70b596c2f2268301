// ABOUTME: Tests for the reconciliation store's merge and dedup invariants.
// ABOUTME: Covers poll/push precedence, bounded queues, and subscriber notification.

package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel-cli/internal/api"
)

func alert(id int64, severity string, resolved bool) api.Alert {
	return api.Alert{
		ID:       id,
		Severity: severity,
		Message:  fmt.Sprintf("alert %d", id),
		Resolved: resolved,
	}
}

func alertEvent(id int64) api.PushEvent {
	return api.PushEvent{
		Type: api.EventTypeAlert,
		Alert: &api.AlertEvent{
			AlertID:  id,
			Severity: api.SeverityHigh,
			Message:  fmt.Sprintf("push alert %d", id),
		},
	}
}

func riskPtr(score float64, level string) *api.RiskScore {
	return &api.RiskScore{CurrentScore: score, RiskLevel: level}
}

func alertsPtr(alerts ...api.Alert) *[]api.Alert {
	return &alerts
}

func TestApplySnapshot_ReplacesAtomically(t *testing.T) {
	s := New(Options{})

	s.ApplySnapshot(Snapshot{
		Risk:   riskPtr(62, api.RiskMedium),
		Alerts: alertsPtr(alert(1, api.SeverityHigh, false)),
	})

	st := s.State()
	assert.True(t, st.HasRisk)
	assert.Equal(t, 62.0, st.Risk.CurrentScore)
	require.Len(t, st.Alerts, 1)

	// Next poll replaces wholesale
	s.ApplySnapshot(Snapshot{
		Risk:   riskPtr(38, api.RiskLow),
		Alerts: alertsPtr(alert(2, api.SeverityLow, false), alert(3, api.SeverityMedium, true)),
	})

	st = s.State()
	assert.Equal(t, 38.0, st.Risk.CurrentScore)
	require.Len(t, st.Alerts, 2)
	assert.Equal(t, int64(2), st.Alerts[0].ID)
}

func TestApplySnapshot_TotalFailureIsNoOp(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{
		Risk:   riskPtr(55, api.RiskMedium),
		Alerts: alertsPtr(alert(1, api.SeverityHigh, false)),
	})
	before := s.State()

	notified := false
	s.Subscribe(func(State) { notified = true })

	// Every endpoint rejected: nothing changes, nobody is notified
	s.ApplySnapshot(Snapshot{})

	after := s.State()
	assert.Equal(t, before.Risk, after.Risk)
	assert.Equal(t, before.Alerts, after.Alerts)
	assert.Equal(t, before.LastRefreshed, after.LastRefreshed)
	assert.False(t, notified)
}

func TestApplySnapshot_PartialFailureKeepsLastKnownGood(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{
		Risk:   riskPtr(55, api.RiskMedium),
		Alerts: alertsPtr(alert(1, api.SeverityHigh, false)),
	})

	// Alerts endpoint failed this cycle; risk succeeded
	s.ApplySnapshot(Snapshot{Risk: riskPtr(61, api.RiskMedium)})

	st := s.State()
	assert.Equal(t, 61.0, st.Risk.CurrentScore)
	require.Len(t, st.Alerts, 1) // previous alerts stay on screen
}

func TestDedup_AcrossPollAndPush(t *testing.T) {
	s := New(Options{})

	// Push delivers alert 5 first, then a poll also returns it
	s.ApplyPushEvent(alertEvent(5))
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(5, api.SeverityHigh, false), alert(6, api.SeverityLow, false))})

	st := s.State()
	require.Len(t, st.Alerts, 2)
	seen := map[int64]int{}
	for _, a := range st.Alerts {
		seen[a.ID]++
	}
	assert.Equal(t, 1, seen[5], "no duplicate IDs after poll confirms a push insert")
}

func TestDedup_DuplicatePushEvents(t *testing.T) {
	s := New(Options{})

	s.ApplyPushEvent(alertEvent(9))
	s.ApplyPushEvent(alertEvent(9))
	s.ApplyPushEvent(alertEvent(9))

	st := s.State()
	assert.Len(t, st.Alerts, 1)
	// Toasts are notifications, not identities: each delivery queues one
	assert.Len(t, st.Toasts, 3)
}

func TestPush_NeverRegressesResolved(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(4, api.SeverityHigh, true))})

	// A late push duplicate for the resolved alert arrives
	s.ApplyPushEvent(alertEvent(4))

	st := s.State()
	require.Len(t, st.Alerts, 1)
	assert.True(t, st.Alerts[0].Resolved, "push must not regress resolved=true")
}

func TestMarkResolved_SurvivesStalePoll(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(7, api.SeverityHigh, false))})

	// Resolve call succeeded; optimistic local flip
	s.MarkResolved(7)
	assert.True(t, s.State().Alerts[0].Resolved)

	// A poll fetched before the write landed still says unresolved
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(7, api.SeverityHigh, false))})
	assert.True(t, s.State().Alerts[0].Resolved, "stale poll must not undo optimistic resolve")

	// Server confirms; flag is retired and polls rule again
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(7, api.SeverityHigh, true))})
	assert.True(t, s.State().Alerts[0].Resolved)
}

func TestMarkResolved_UnknownIDIgnored(t *testing.T) {
	s := New(Options{})
	notified := false
	s.Subscribe(func(State) { notified = true })

	s.MarkResolved(999)

	assert.False(t, notified)
}

func TestPushOnlyAlert_SurvivesPollsThatOmitIt(t *testing.T) {
	s := New(Options{})

	s.ApplyPushEvent(alertEvent(11))

	// Two polls in a row never mention alert 11: permanent insert
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(1, api.SeverityLow, false))})
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(1, api.SeverityLow, false))})

	st := s.State()
	require.Len(t, st.Alerts, 2)
	assert.Equal(t, int64(11), st.Alerts[0].ID, "push-only alert stays at the front")
}

func TestToastQueue_BoundedFIFO(t *testing.T) {
	s := New(Options{ToastCap: 5})

	for id := int64(1); id <= 8; id++ {
		s.ApplyPushEvent(alertEvent(id))
	}

	st := s.State()
	require.Len(t, st.Toasts, 5)
	// Newest first; oldest three evicted
	assert.Equal(t, int64(8), st.Toasts[0].AlertID)
	assert.Equal(t, int64(4), st.Toasts[4].AlertID)
}

func TestLogWindow_Bounded(t *testing.T) {
	s := New(Options{LogWindow: 3})

	logs := make([]api.BehaviorLog, 10)
	for i := range logs {
		logs[i] = api.BehaviorLog{ID: int64(i + 1), AppName: "app"}
	}
	s.ApplySnapshot(Snapshot{Logs: &logs})

	st := s.State()
	require.Len(t, st.Logs, 3)
	assert.Equal(t, int64(1), st.Logs[0].ID)
}

func TestApplyPushEvent_NonAlertIgnored(t *testing.T) {
	s := New(Options{})
	notified := false
	s.Subscribe(func(State) { notified = true })

	s.ApplyPushEvent(api.PushEvent{Type: "heartbeat"})

	assert.False(t, notified)
	assert.Empty(t, s.State().Toasts)
}

func TestSubscribe_SynchronousAndOrdered(t *testing.T) {
	s := New(Options{})

	var scores []float64
	s.Subscribe(func(st State) { scores = append(scores, st.Risk.CurrentScore) })

	s.ApplySnapshot(Snapshot{Risk: riskPtr(45, api.RiskMedium)})
	s.ApplySnapshot(Snapshot{Risk: riskPtr(38, api.RiskLow)})

	assert.Equal(t, []float64{45, 38}, scores)
}

func TestSubscriber_ReadsStoreDuringConcurrentMutations(t *testing.T) {
	s := New(Options{})

	var notifications atomic.Int32
	s.Subscribe(func(State) {
		// Listeners may read the store while other goroutines mutate it;
		// a concurrent mutation must queue, not deadlock against us.
		_ = s.State()
		notifications.Add(1)
	})

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.ApplySnapshot(Snapshot{Risk: riskPtr(float64(i), api.RiskLow)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.ApplyPushEvent(alertEvent(int64(i + 1)))
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("mutations did not complete, notification path is blocked")
	}
	assert.Equal(t, int32(2*rounds), notifications.Load())
}

func TestUnsubscribe(t *testing.T) {
	s := New(Options{})

	count := 0
	id := s.Subscribe(func(State) { count++ })
	s.ApplySnapshot(Snapshot{Risk: riskPtr(50, api.RiskMedium)})
	s.Unsubscribe(id)
	s.ApplySnapshot(Snapshot{Risk: riskPtr(51, api.RiskMedium)})

	assert.Equal(t, 1, count)
}

func TestAdminSnapshot_StatsAndNoOp(t *testing.T) {
	s := New(Options{})

	stats := &api.AdminStats{TotalUsers: 128, HighRiskCount: 9}
	users := []api.UserRecord{{ID: "u1", Name: "Alice"}}
	s.ApplyAdminSnapshot(AdminSnapshot{Stats: stats, Users: &users})

	st := s.State()
	require.NotNil(t, st.Stats)
	assert.Equal(t, 128, st.Stats.TotalUsers)
	require.Len(t, st.Users, 1)

	before := s.State()
	s.ApplyAdminSnapshot(AdminSnapshot{})
	after := s.State()
	assert.Equal(t, before.LastRefreshed, after.LastRefreshed)
}

func TestSetUsers_ReplacesTable(t *testing.T) {
	s := New(Options{})
	s.SetUsers([]api.UserRecord{{ID: "u1"}, {ID: "u2"}})
	s.SetUsers([]api.UserRecord{{ID: "u3"}})

	st := s.State()
	require.Len(t, st.Users, 1)
	assert.Equal(t, "u3", st.Users[0].ID)
}

func TestExportImportJSON_RoundTrip(t *testing.T) {
	clock := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	s := New(Options{Clock: func() time.Time { return clock }})
	s.ApplySnapshot(Snapshot{
		Risk:   riskPtr(42, api.RiskMedium),
		Alerts: alertsPtr(alert(1, api.SeverityHigh, false)),
	})

	blob, err := s.ExportJSON()
	require.NoError(t, err)

	restored := New(Options{})
	require.NoError(t, restored.ImportJSON(blob))

	st := restored.State()
	assert.Equal(t, 42.0, st.Risk.CurrentScore)
	require.Len(t, st.Alerts, 1)
	assert.Equal(t, clock, st.LastRefreshed)

	// Index rebuilt: a push duplicate for the restored alert is deduped
	restored.ApplyPushEvent(alertEvent(1))
	assert.Len(t, restored.State().Alerts, 1)
}

func TestImportJSON_Malformed(t *testing.T) {
	s := New(Options{})
	assert.Error(t, s.ImportJSON([]byte("{not json")))
}

func TestStateCopy_IsolatedFromStore(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(alert(1, api.SeverityHigh, false))})

	st := s.State()
	st.Alerts[0].Resolved = true // mutate the copy

	assert.False(t, s.State().Alerts[0].Resolved, "reader copies must not leak back")
}

func TestResolvedCounts(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(Snapshot{Alerts: alertsPtr(
		alert(1, api.SeverityHigh, true),
		alert(2, api.SeverityLow, false),
		alert(3, api.SeverityMedium, true),
	)})

	st := s.State()
	assert.Equal(t, 2, st.ResolvedCount())
	assert.Equal(t, 1, st.UnresolvedCount())
}
