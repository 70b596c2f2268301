// ABOUTME: Locally persisted session descriptor and access gating for views
// ABOUTME: Reads the descriptor once per mount; role or consent mismatch redirects

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sentinelai/sentinel-cli/internal/api"
)

// Guard errors. Each one maps to a redirect target in the calling view.
var (
	// ErrNoSession means no descriptor is persisted; redirect to login.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired means the access token's exp claim has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrConsentRequired means a student has not completed the consent flow.
	ErrConsentRequired = errors.New("consent required")
)

// RoleMismatchError reports a session whose role cannot access the view.
type RoleMismatchError struct {
	Want string
	Got  string
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("role mismatch: view requires %s, session is %s", e.Want, e.Got)
}

// Session is the locally persisted descriptor: the authenticated user plus
// tokens. Immutable for the lifetime of a dashboard mount; replaced
// wholesale on login and removed on logout.
type Session struct {
	User         api.User `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

// Store persists the session descriptor as a JSON file.
type Store struct {
	path string
}

// NewStore creates a store rooted at dir (usually the sentinel config dir).
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "session.json")}
}

// DefaultDir returns the sentinel config directory.
func DefaultDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "sentinel")
}

// Load reads the persisted descriptor. Returns ErrNoSession when absent.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	if sess.AccessToken == "" || sess.User.ID == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Save replaces the descriptor wholesale. Written 0600: it holds tokens.
func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear removes the descriptor (logout).
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// Guard gates access to protected views. It owns the load/clear lifecycle
// of the session descriptor; views receive the session by injection and
// never read storage themselves.
type Guard struct {
	store *Store
	now   func() time.Time
}

// NewGuard creates a guard over the given store.
func NewGuard(store *Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// RequireStudent authorizes the student dashboard: a session must exist,
// be unexpired, not be an admin, and have completed consent.
func (g *Guard) RequireStudent() (*Session, error) {
	sess, err := g.require()
	if err != nil {
		return nil, err
	}
	if sess.User.Role == api.RoleAdmin {
		return nil, &RoleMismatchError{Want: api.RoleStudent, Got: sess.User.Role}
	}
	if !sess.User.ConsentGiven {
		return nil, ErrConsentRequired
	}
	return sess, nil
}

// RequireAdmin authorizes the admin view.
func (g *Guard) RequireAdmin() (*Session, error) {
	sess, err := g.require()
	if err != nil {
		return nil, err
	}
	if sess.User.Role != api.RoleAdmin {
		return nil, &RoleMismatchError{Want: api.RoleAdmin, Got: sess.User.Role}
	}
	return sess, nil
}

func (g *Guard) require() (*Session, error) {
	sess, err := g.store.Load()
	if err != nil {
		return nil, err
	}
	if expired, err := tokenExpired(sess.AccessToken, g.now()); err == nil && expired {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// tokenExpired checks the JWT exp claim without verifying the signature.
// Token issuance and verification are owned by the backend; the client only
// consumes a validity signal to avoid doomed requests.
func tokenExpired(token string, now time.Time) (bool, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque tokens pass through; the server is the authority.
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, err
	}
	return exp.Before(now), nil
}
