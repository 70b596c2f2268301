// ABOUTME: Admin CLI for the sentinel backend built on cobra subcommands
// ABOUTME: Login, fleet overview, debounced user search, exports, and actions

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinelai/sentinel-cli/internal/api"
	"github.com/sentinelai/sentinel-cli/internal/config"
	"github.com/sentinelai/sentinel-cli/internal/fetch"
	"github.com/sentinelai/sentinel-cli/internal/logging"
	"github.com/sentinelai/sentinel-cli/internal/metrics"
	"github.com/sentinelai/sentinel-cli/internal/query"
	"github.com/sentinelai/sentinel-cli/internal/report"
	"github.com/sentinelai/sentinel-cli/internal/sched"
	"github.com/sentinelai/sentinel-cli/internal/session"
	"github.com/sentinelai/sentinel-cli/internal/store"
)

const defaultBaseURL = "http://localhost:8000/api"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "sentinel-admin",
		Short:         "Institution-wide security monitoring administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")

	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		overviewCmd(),
		usersCmd(),
		exportCmd(),
		resolveCmd(),
		incidentCmd(),
		escalateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-admin: %v\n", err)
		os.Exit(1)
	}
}

// env wires everything an authenticated subcommand needs.
type env struct {
	cfg    *config.Config
	client *api.Client
	sess   *session.Session
}

func adminEnv() (*env, error) {
	cfg, err := config.LoadOrDefault(configPath, defaultBaseURL)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Logging)
	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Addr, logger)
	}

	guard := session.NewGuard(session.NewStore(session.DefaultDir()))
	sess, err := guard.RequireAdmin()
	switch {
	case errors.Is(err, session.ErrNoSession):
		return nil, errors.New("not logged in: run sentinel-admin login <email>")
	case errors.Is(err, session.ErrSessionExpired):
		return nil, errors.New("session expired: run sentinel-admin login <email>")
	case err != nil:
		return nil, err
	}

	client := api.New(cfg.Server.BaseURL,
		api.WithToken(func() string { return sess.AccessToken }),
		api.WithTimeout(cfg.Server.RequestTimeout),
		api.WithLogger(logger),
	)
	return &env{cfg: cfg, client: client, sess: sess}, nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Authenticate and persist a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SENTINEL_PASSWORD")
			if password == "" {
				return errors.New("set SENTINEL_PASSWORD before logging in")
			}
			cfg, err := config.LoadOrDefault(configPath, defaultBaseURL)
			if err != nil {
				return err
			}
			client := api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.RequestTimeout))
			tok, err := client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			sess := &session.Session{
				User:         tok.User,
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
			}
			if err := session.NewStore(session.DefaultDir()).Save(sess); err != nil {
				return err
			}
			color.Green("Logged in as %s (%s)", tok.User.Name, tok.User.Role)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewStore(session.DefaultDir()).Clear(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Fetch and print the institution-wide dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := adminEnv()
			if err != nil {
				return err
			}
			st := store.New(store.Options{
				LogWindow: e.cfg.Store.LogWindow,
				ToastCap:  e.cfg.Store.ToastCap,
			})
			fan := fetch.NewAdminFanout(e.client, st, logging.Setup(e.cfg.Logging))
			fan.Refresh(cmd.Context())

			printOverview(cmd.OutOrStdout(), st.State())
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	var search, role string
	var interactive bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Query the user table, optionally with live debounced search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := adminEnv()
			if err != nil {
				return err
			}
			if !interactive {
				users, err := e.client.SearchUsers(cmd.Context(), search, role)
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), users)
				return nil
			}
			return interactiveSearch(cmd, e, role)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Substring match on name or email")
	cmd.Flags().StringVar(&role, "role", "all", "Role filter (all, student, parent, admin)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Re-query as you type, one input per line")
	return cmd
}

// interactiveSearch feeds stdin lines through the debouncer: rapid inputs
// collapse so only the final one reaches the server.
func interactiveSearch(cmd *cobra.Command, e *env, role string) error {
	st := store.New(store.Options{})
	st.Subscribe(func(s store.State) {
		printUsers(cmd.OutOrStdout(), s.Users)
	})

	logger := logging.Setup(e.cfg.Logging)
	deb := query.New(cmd.Context(), e.cfg.Search.Debounce, sched.New(),
		e.client.SearchUsers, st, logger)
	defer deb.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Type a search term per line (ctrl+d to quit):")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		deb.Set(scanner.Text(), role)
	}
	deb.Flush()
	return scanner.Err()
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the institution-wide CSV report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := adminEnv()
			if err != nil {
				return err
			}
			if err := report.ExportCSV(cmd.Context(), e.client, out); err != nil {
				return err
			}
			color.Green("Report written to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "sentinel-report.csv", "Output file path")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Mark an alert resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			e, err := adminEnv()
			if err != nil {
				return err
			}
			if err := e.client.ResolveAlert(cmd.Context(), id); err != nil {
				return err
			}
			color.Green("Alert %d resolved", id)
			return nil
		},
	}
}

func incidentCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "incident <incident-id>",
		Short: "Transition an incident report's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid incident id %q", args[0])
			}
			e, err := adminEnv()
			if err != nil {
				return err
			}
			if err := e.client.UpdateIncidentStatus(cmd.Context(), id, status); err != nil {
				return err
			}
			color.Green("Incident %d marked %s", id, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "reviewed", "New status (open, reviewed, resolved)")
	return cmd
}

func escalateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "escalate <user-id>",
		Short: "Escalate a high-risk user for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := adminEnv()
			if err != nil {
				return err
			}
			if err := e.client.Escalate(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			color.Yellow("User %s escalated", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why this user is being escalated")
	return cmd
}
