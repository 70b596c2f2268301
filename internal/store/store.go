// ABOUTME: Reconciliation store merging poll snapshots and push events
// ABOUTME: Single source of truth for views; mutations serialized, listeners synchronous

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelai/sentinel-cli/internal/api"
)

// Options bound the store. Zero values take the documented defaults.
type Options struct {
	// LogWindow caps the behavior-log feed; older entries are evicted,
	// not archived.
	LogWindow int
	// ToastCap caps the push-notification toast queue (FIFO eviction,
	// newest kept).
	ToastCap int
	Logger   *slog.Logger
	// Clock is overridable for tests.
	Clock func() time.Time
}

const (
	defaultLogWindow = 50
	defaultToastCap  = 5
)

// State is the complete view-facing state. Views receive copies and never
// write back; all derived computations are pure reads of a State value.
type State struct {
	// Student dashboard fields, replaced atomically per poll.
	Risk     api.RiskScore       `json:"risk"`
	HasRisk  bool                `json:"has_risk"`
	Alerts   []api.Alert         `json:"alerts"`
	Logs     []api.BehaviorLog   `json:"logs"`
	Timeline []api.TimelinePoint `json:"timeline"`
	Devices  []api.Device        `json:"devices"`

	// Extended student fields, loaded once per mount.
	Wellbeing   *api.Wellbeing        `json:"wellbeing,omitempty"`
	Permissions *api.PermissionAudit  `json:"permissions,omitempty"`
	Leaderboard *api.Leaderboard      `json:"leaderboard,omitempty"`
	Training    *api.TrainingProgress `json:"training,omitempty"`

	// Push-delivered toast queue, newest first.
	Toasts []api.AlertEvent `json:"toasts"`

	// Admin view fields.
	Stats    *api.AdminStats        `json:"stats,omitempty"`
	HighRisk []api.HighRiskUser     `json:"high_risk,omitempty"`
	Feed     []api.ActivityFeedItem `json:"feed,omitempty"`
	Trends   []api.TrendPoint       `json:"trends,omitempty"`
	Colleges []api.CollegeBreakdown `json:"colleges,omitempty"`
	Users    []api.UserRecord       `json:"users,omitempty"`

	LastRefreshed time.Time `json:"last_refreshed"`
}

// ResolvedCount returns how many alerts are resolved.
func (s State) ResolvedCount() int {
	n := 0
	for _, a := range s.Alerts {
		if a.Resolved {
			n++
		}
	}
	return n
}

// UnresolvedCount returns how many alerts are still open.
func (s State) UnresolvedCount() int {
	return len(s.Alerts) - s.ResolvedCount()
}

// Snapshot carries one poll cycle's results. A nil field means that
// endpoint failed this cycle: the store keeps the previous value rather
// than blanking the view (last-known-good degradation). A non-nil empty
// slice is a real server answer and replaces.
type Snapshot struct {
	Risk     *api.RiskScore
	Alerts   *[]api.Alert
	Logs     *[]api.BehaviorLog
	Timeline *[]api.TimelinePoint
	Devices  *[]api.Device
}

// Empty reports whether every member of the snapshot failed.
func (s Snapshot) Empty() bool {
	return s.Risk == nil && s.Alerts == nil && s.Logs == nil &&
		s.Timeline == nil && s.Devices == nil
}

// Extended carries the once-per-mount secondary endpoints. Same nil
// semantics as Snapshot.
type Extended struct {
	Wellbeing   *api.Wellbeing
	Permissions *api.PermissionAudit
	Leaderboard *api.Leaderboard
	Training    *api.TrainingProgress
}

// AdminSnapshot carries one admin poll cycle. Same nil semantics.
type AdminSnapshot struct {
	Stats    *api.AdminStats
	HighRisk *[]api.HighRiskUser
	Feed     *[]api.ActivityFeedItem
	Trends   *[]api.TrendPoint
	Colleges *[]api.CollegeBreakdown
	Users    *[]api.UserRecord
}

// Empty reports whether every member of the admin snapshot failed.
func (s AdminSnapshot) Empty() bool {
	return s.Stats == nil && s.HighRisk == nil && s.Feed == nil &&
		s.Trends == nil && s.Colleges == nil && s.Users == nil
}

type subscriber struct {
	id string
	fn func(State)
}

// Store holds the reconciled dashboard state. It is the only shared mutable
// resource: views read State() or subscribe, and every mutation goes through
// one of the Apply/Mark/Set entry points. Each mutation and the synchronous
// listener notification that follows it run as one serialized unit, so no
// two mutations interleave mid-update and listeners observe states in the
// order they were produced. Listeners may read the store (State is safe to
// call from a callback) but must not mutate it: a mutation from inside a
// listener would wait on the mutation lock the notifying goroutine still
// holds.
type Store struct {
	// mutMu serializes mutations end to end, including the listener
	// notification after each one. It is acquired at every mutation entry
	// point, strictly before mu, and held until the listeners have run.
	mutMu sync.Mutex
	// mu guards state for readers. It is never held while listeners run,
	// so callbacks are free to call State.
	mu    sync.Mutex
	state State

	// alertIndex positions each alert ID in state.Alerts.
	alertIndex map[int64]int
	// locallyResolved holds optimistic resolve flags not yet confirmed
	// by a poll.
	locallyResolved map[int64]struct{}
	// pushOnly holds alert IDs inserted via push and never yet returned
	// by a poll. They survive snapshot replacement.
	pushOnly map[int64]struct{}

	logWindow int
	toastCap  int
	subs      []subscriber
	logger    *slog.Logger
	clock     func() time.Time
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.LogWindow <= 0 {
		opts.LogWindow = defaultLogWindow
	}
	if opts.ToastCap <= 0 {
		opts.ToastCap = defaultToastCap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		alertIndex:      make(map[int64]int),
		locallyResolved: make(map[int64]struct{}),
		pushOnly:        make(map[int64]struct{}),
		logWindow:       opts.LogWindow,
		toastCap:        opts.ToastCap,
		logger:          opts.Logger.With("component", "store"),
		clock:           opts.Clock,
	}
}

// Subscribe registers a listener invoked synchronously after every applied
// mutation with a copy of the new state. Returns an ID for Unsubscribe.
func (s *Store) Subscribe(fn func(State)) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return id
}

// Unsubscribe removes a listener. Unknown IDs are ignored.
func (s *Store) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// State returns a copy of the current state safe for concurrent readers.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// ApplySnapshot merges one poll cycle atomically. Either the whole snapshot
// applies or, when every member failed, nothing does. Alert reconciliation:
//   - the polled list is authoritative for order and server-owned fields
//   - push-inserted alerts the poll does not yet know survive
//   - an optimistic local resolve is kept until a poll confirms it
func (s *Store) ApplySnapshot(snap Snapshot) {
	if snap.Empty() {
		// Total failure: last-known-good state stays on screen.
		s.logger.Debug("snapshot empty, store untouched")
		return
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()

	if snap.Risk != nil {
		s.state.Risk = *snap.Risk
		s.state.HasRisk = true
	}
	if snap.Alerts != nil {
		s.reconcileAlertsLocked(*snap.Alerts)
	}
	if snap.Logs != nil {
		logs := *snap.Logs
		if len(logs) > s.logWindow {
			logs = logs[:s.logWindow]
		}
		s.state.Logs = logs
	}
	if snap.Timeline != nil {
		s.state.Timeline = *snap.Timeline
	}
	if snap.Devices != nil {
		s.state.Devices = *snap.Devices
	}
	s.state.LastRefreshed = s.clock()

	s.notifyAndUnlock()
}

// ApplyExtended merges the once-per-mount secondary endpoints.
func (s *Store) ApplyExtended(ext Extended) {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()

	if ext.Wellbeing != nil {
		s.state.Wellbeing = ext.Wellbeing
	}
	if ext.Permissions != nil {
		s.state.Permissions = ext.Permissions
	}
	if ext.Leaderboard != nil {
		s.state.Leaderboard = ext.Leaderboard
	}
	if ext.Training != nil {
		s.state.Training = ext.Training
	}

	s.notifyAndUnlock()
}

// ApplyAdminSnapshot merges one admin poll cycle. Total failure is a no-op.
func (s *Store) ApplyAdminSnapshot(snap AdminSnapshot) {
	if snap.Empty() {
		s.logger.Debug("admin snapshot empty, store untouched")
		return
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()

	if snap.Stats != nil {
		s.state.Stats = snap.Stats
	}
	if snap.HighRisk != nil {
		s.state.HighRisk = *snap.HighRisk
	}
	if snap.Feed != nil {
		s.state.Feed = *snap.Feed
	}
	if snap.Trends != nil {
		s.state.Trends = *snap.Trends
	}
	if snap.Colleges != nil {
		s.state.Colleges = *snap.Colleges
	}
	if snap.Users != nil {
		s.state.Users = *snap.Users
	}
	s.state.LastRefreshed = s.clock()

	s.notifyAndUnlock()
}

// SetUsers replaces the admin user table from the debounced query pipeline.
func (s *Store) SetUsers(users []api.UserRecord) {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()
	s.state.Users = users
	s.notifyAndUnlock()
}

// ApplyPushEvent merges one push channel event. Alert events upsert by ID:
// a new ID inserts at the front; an existing ID leaves server-owned fields
// untouched so a client echo can never overwrite newer server state. Every
// alert event also enters the bounded toast queue. Other event types are
// ignored.
func (s *Store) ApplyPushEvent(ev api.PushEvent) {
	if ev.Type != api.EventTypeAlert || ev.Alert == nil {
		return
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()

	if _, seen := s.alertIndex[ev.Alert.AlertID]; !seen {
		alert := ev.Alert.ToAlert()
		if _, ok := s.locallyResolved[alert.ID]; ok {
			alert.Resolved = true
		}
		s.state.Alerts = append([]api.Alert{alert}, s.state.Alerts...)
		s.pushOnly[alert.ID] = struct{}{}
		s.reindexLocked()
	}
	// Existing entry: no field merge. Poll output is authoritative for
	// mutable fields; in particular Resolved never regresses here.

	s.state.Toasts = append([]api.AlertEvent{*ev.Alert}, s.state.Toasts...)
	if len(s.state.Toasts) > s.toastCap {
		s.state.Toasts = s.state.Toasts[:s.toastCap]
	}

	s.notifyAndUnlock()
}

// MarkResolved flips an alert resolved after a successful resolve call.
// The optimistic flag survives poll snapshots until the server confirms.
func (s *Store) MarkResolved(alertID int64) {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()

	idx, ok := s.alertIndex[alertID]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.state.Alerts[idx].Resolved = true
	s.locallyResolved[alertID] = struct{}{}

	s.notifyAndUnlock()
}

// reconcileAlertsLocked rebuilds the alert list from a polled snapshot.
func (s *Store) reconcileAlertsLocked(polled []api.Alert) {
	merged := make([]api.Alert, 0, len(polled)+len(s.pushOnly))
	inPoll := make(map[int64]struct{}, len(polled))

	// Push-only survivors first: they are the newest arrivals and the
	// polled list does not know them yet.
	for _, a := range s.state.Alerts {
		if _, ok := s.pushOnly[a.ID]; !ok {
			continue
		}
		if pollHas(polled, a.ID) {
			// The poll confirmed it; server copy wins below.
			delete(s.pushOnly, a.ID)
			continue
		}
		merged = append(merged, a)
	}

	for _, a := range polled {
		if _, dup := inPoll[a.ID]; dup {
			continue // server sent a duplicate ID; first occurrence wins
		}
		inPoll[a.ID] = struct{}{}

		if a.Resolved {
			// Server confirmed; the optimistic flag is done.
			delete(s.locallyResolved, a.ID)
		} else if _, ok := s.locallyResolved[a.ID]; ok {
			// Stale poll raced our resolve write; keep the local flip.
			a.Resolved = true
		}
		delete(s.pushOnly, a.ID)
		merged = append(merged, a)
	}

	s.state.Alerts = merged
	s.reindexLocked()
}

func pollHas(polled []api.Alert, id int64) bool {
	for _, a := range polled {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) reindexLocked() {
	s.alertIndex = make(map[int64]int, len(s.state.Alerts))
	for i, a := range s.state.Alerts {
		s.alertIndex[a.ID] = i
	}
}

// notifyAndUnlock copies state, releases the state mutex, and invokes
// listeners in subscription order. Callers hold both mutMu and mu; mu is
// released here before any callback runs, while mutMu stays held until the
// calling mutation returns. No goroutine ever waits on mutMu while holding
// mu, so a listener calling State cannot deadlock against a concurrent
// mutation: the mutation queues on mutMu with mu free.
func (s *Store) notifyAndUnlock() {
	snapshot := s.copyState()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
}

func (s *Store) copyState() State {
	st := s.state
	st.Alerts = append([]api.Alert(nil), s.state.Alerts...)
	st.Logs = append([]api.BehaviorLog(nil), s.state.Logs...)
	st.Timeline = append([]api.TimelinePoint(nil), s.state.Timeline...)
	st.Devices = append([]api.Device(nil), s.state.Devices...)
	st.Toasts = append([]api.AlertEvent(nil), s.state.Toasts...)
	st.HighRisk = append([]api.HighRiskUser(nil), s.state.HighRisk...)
	st.Feed = append([]api.ActivityFeedItem(nil), s.state.Feed...)
	st.Trends = append([]api.TrendPoint(nil), s.state.Trends...)
	st.Colleges = append([]api.CollegeBreakdown(nil), s.state.Colleges...)
	st.Users = append([]api.UserRecord(nil), s.state.Users...)
	return st
}

// ExportJSON serializes the current state for the snapshot cache.
func (s *Store) ExportJSON() ([]byte, error) {
	st := s.State()
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return data, nil
}

// ImportJSON seeds the store from a cached state blob so the view renders
// last-known-good data before the first poll completes. Indexes are rebuilt;
// optimistic flags are not restored (they were never server-confirmed).
func (s *Store) ImportJSON(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decoding cached state: %w", err)
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	s.mu.Lock()
	s.state = st
	s.locallyResolved = make(map[int64]struct{})
	s.pushOnly = make(map[int64]struct{})
	s.reindexLocked()
	s.notifyAndUnlock()
	return nil
}
