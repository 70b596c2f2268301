// ABOUTME: Student dashboard TUI wiring session, poll loop, push channel, and store
// ABOUTME: Restores last-known-good state from cache before the first poll lands

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/cache"
	"github.com/sentinelai/sentinel-cli/internal/config"
	"github.com/sentinelai/sentinel-cli/internal/fetch"
	"github.com/sentinelai/sentinel-cli/internal/logging"
	"github.com/sentinelai/sentinel-cli/internal/metrics"
	"github.com/sentinelai/sentinel-cli/internal/push"
	"github.com/sentinelai/sentinel-cli/internal/sched"
	"github.com/sentinelai/sentinel-cli/internal/session"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

const defaultBaseURL = "http://localhost:8000/api"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	email := flag.String("email", "", "Log in with this email before opening the dashboard")
	consent := flag.Bool("accept-consent", false, "Accept the monitoring terms for this account")
	flag.Parse()

	if err := run(*configPath, *email, *consent); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-dash: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, email string, acceptConsent bool) error {
	cfg, err := config.LoadOrDefault(configPath, defaultBaseURL)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Logging)
	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Addr, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessStore := session.NewStore(session.DefaultDir())
	sess, err := authorize(ctx, cfg, sessStore, email, acceptConsent)
	if err != nil {
		return err
	}

	client := api.New(cfg.Server.BaseURL,
		api.WithToken(func() string { return sess.AccessToken }),
		api.WithTimeout(cfg.Server.RequestTimeout),
		api.WithLogger(logger),
	)

	st := store.New(store.Options{
		LogWindow: cfg.Store.LogWindow,
		ToastCap:  cfg.Store.ToastCap,
		Logger:    logger,
	})

	snapCache, err := cache.Open(cachePath(cfg))
	if err != nil {
		logger.Warn("snapshot cache unavailable", "error", err)
		snapCache = nil
	} else {
		defer snapCache.Close()
		if payload, _, err := snapCache.LoadLast(ctx, sess.User.ID); err == nil {
			if err := st.ImportJSON(payload); err != nil {
				logger.Warn("discarding unreadable cached snapshot", "error", err)
			}
		} else if !errors.Is(err, cache.ErrNoSnapshot) {
			logger.Warn("cached snapshot load failed", "error", err)
		}
	}

	fan := fetch.NewStudentFanout(client, st, logger)
	runner := fetch.NewRunner(cfg.Poll.Interval, sched.New(), fan.Refresh)
	defer runner.Stop()

	wsURL := cfg.Server.WSURL
	if wsURL == "" {
		wsURL = client.WSBase()
	}
	pm := push.NewManager(push.Options{
		URL:     wsURL + "/ws/" + sess.User.ID,
		Store:   st,
		OnAlert: func() { go fan.Refresh(ctx) },
		Header:  http.Header{"Authorization": []string{"Bearer " + sess.AccessToken}},
		Logger:  logger,
	})
	defer pm.Close()

	m := newModel(ctx, sess, client, st, fan, pm.State)
	p := tea.NewProgram(m, tea.WithAltScreen())

	st.Subscribe(func(s store.State) {
		p.Send(stateMsg{state: s})
		if snapCache != nil {
			// Marshal the copy the listener was handed rather than
			// re-reading the store.
			if payload, err := json.Marshal(s); err == nil {
				if err := snapCache.Save(ctx, sess.User.ID, payload); err != nil {
					logger.Warn("snapshot cache save failed", "error", err)
				}
			}
		}
	})

	go pm.Run(ctx)
	go func() {
		runner.Start(ctx)
		fan.LoadExtended(ctx, client)
	}()

	_, err = p.Run()
	return err
}

// authorize loads the persisted session, logging in first when an email was
// given. Role and consent gating decide whether the dashboard may open.
func authorize(ctx context.Context, cfg *config.Config, sessStore *session.Store, email string, acceptConsent bool) (*session.Session, error) {
	if email != "" {
		password := os.Getenv("SENTINEL_PASSWORD")
		if password == "" {
			return nil, fmt.Errorf("set SENTINEL_PASSWORD to log in as %s", email)
		}
		client := api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.RequestTimeout))
		tok, err := client.Login(ctx, email, password)
		if err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
		sess := &session.Session{
			User:         tok.User,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
		}
		if err := sessStore.Save(sess); err != nil {
			return nil, err
		}
	}

	if acceptConsent {
		if err := submitConsent(ctx, cfg, sessStore); err != nil {
			return nil, err
		}
	}

	guard := session.NewGuard(sessStore)
	sess, err := guard.RequireStudent()
	switch {
	case errors.Is(err, session.ErrNoSession):
		return nil, errors.New("not logged in: run sentinel-dash -email you@campus.edu with SENTINEL_PASSWORD set")
	case errors.Is(err, session.ErrSessionExpired):
		return nil, errors.New("session expired: log in again")
	case errors.Is(err, session.ErrConsentRequired):
		return nil, errors.New("monitoring consent not given: re-run with -accept-consent")
	case err != nil:
		return nil, err
	}
	return sess, nil
}

// submitConsent records acceptance server-side, then updates the persisted
// descriptor so the guard passes without a re-login.
func submitConsent(ctx context.Context, cfg *config.Config, sessStore *session.Store) error {
	sess, err := sessStore.Load()
	if err != nil {
		return err
	}
	client := api.New(cfg.Server.BaseURL,
		api.WithToken(func() string { return sess.AccessToken }),
		api.WithTimeout(cfg.Server.RequestTimeout),
	)
	if err := client.SubmitConsent(ctx, true, true); err != nil {
		return fmt.Errorf("recording consent: %w", err)
	}
	sess.User.ConsentGiven = true
	return sessStore.Save(sess)
}

func cachePath(cfg *config.Config) string {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return filepath.Join(session.DefaultDir(), "snapshots.db")
}
