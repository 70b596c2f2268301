// ABOUTME: Push channel manager owning one websocket connection per session
// ABOUTME: Decodes alert events into the store; a single reconnect, then poll covers

package push

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/metrics"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const defaultReconnectDelay = 2 * time.Second

// Options configures a Manager.
type Options struct {
	// URL is the full websocket endpoint including the user segment.
	URL string
	// Store receives decoded alert events.
	Store *store.Store
	// OnAlert, if set, runs after each applied alert so the caller can
	// trigger an immediate poll refresh.
	OnAlert func()
	// Header carries the bearer token for the upgrade request.
	Header http.Header
	// ReconnectDelay is the pause before the single reconnect attempt.
	ReconnectDelay time.Duration
	Logger         *slog.Logger
	Dialer         *websocket.Dialer
}

// Manager owns the push channel for one session. Push is a latency
// optimization over the poll, not a source of truth, so failure policy is
// lenient: one reconnect attempt after a drop, then the poll covers.
type Manager struct {
	opts   Options
	logger *slog.Logger
	dialer *websocket.Dialer

	state atomic.Int32

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	closeOnce sync.Once
	quit      chan struct{}
}

// NewManager creates a push channel manager. Run must be called to connect.
func NewManager(opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Manager{
		opts:   opts,
		logger: opts.Logger.With("component", "push"),
		dialer: dialer,
		quit:   make(chan struct{}),
	}
}

// State reports the current connection phase.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Run connects and consumes the channel until the context is cancelled, the
// manager is closed, or the connection drops twice. It blocks; callers run it
// in a goroutine.
func (m *Manager) Run(ctx context.Context) {
	defer m.state.Store(int32(StateDisconnected))

	reconnected := false
	for {
		if m.stopped(ctx) {
			return
		}
		if reconnected {
			m.state.Store(int32(StateReconnecting))
			metrics.PushReconnects.Inc()
			select {
			case <-time.After(m.opts.ReconnectDelay):
			case <-ctx.Done():
				return
			case <-m.quit:
				return
			}
		} else {
			m.state.Store(int32(StateConnecting))
		}

		conn, resp, err := m.dialer.DialContext(ctx, m.opts.URL, m.opts.Header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			m.logger.Warn("push channel dial failed", "url", m.opts.URL, "error", err)
			if reconnected {
				return
			}
			reconnected = true
			continue
		}

		if !m.install(conn) {
			conn.Close()
			return
		}
		m.state.Store(int32(StateConnected))
		m.logger.Info("push channel connected", "url", m.opts.URL)

		m.readLoop(conn)
		m.uninstall()

		if m.stopped(ctx) {
			return
		}
		if reconnected {
			m.logger.Warn("push channel dropped again, polling covers from here")
			return
		}
		m.logger.Warn("push channel dropped, attempting one reconnect")
		reconnected = true
	}
}

// Close tears the connection down deterministically. Safe to call more than
// once and concurrently with Run.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.quit)
		m.mu.Lock()
		m.closed = true
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
		}
		m.mu.Unlock()
	})
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := api.DecodePushEvent(data)
		if err != nil {
			metrics.PushDiscarded.Inc()
			m.logger.Debug("discarding malformed push payload", "error", err)
			continue
		}
		metrics.PushEvents.WithLabelValues(ev.Type).Inc()

		// Only alert events carry dashboard state. Everything else is
		// dropped after counting.
		if ev.Type != api.EventTypeAlert {
			continue
		}
		m.opts.Store.ApplyPushEvent(ev)
		if m.opts.OnAlert != nil {
			m.opts.OnAlert()
		}
	}
}

func (m *Manager) install(conn *websocket.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.conn = conn
	return true
}

func (m *Manager) uninstall() {
	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()
}

func (m *Manager) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-m.quit:
		return true
	default:
		return false
	}
}
