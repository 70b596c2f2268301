// ABOUTME: SQLite-backed snapshot cache for instant last-known-good renders
// ABOUTME: One row per user, replaced on every applied poll snapshot

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no cached state exists for the user.
var ErrNoSnapshot = errors.New("no cached snapshot")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	user_id    TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Cache persists the store's exported state between runs so the dashboard
// can paint last-known-good data before the first poll completes.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Save replaces the cached snapshot for userID.
func (c *Cache) Save(ctx context.Context, userID string, payload []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, userID, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", userID, err)
	}
	return nil
}

// LoadLast returns the most recently saved snapshot for userID and when it
// was written.
func (c *Cache) LoadLast(ctx context.Context, userID string) ([]byte, time.Time, error) {
	var payload []byte
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM snapshots WHERE user_id = ?`, userID,
	).Scan(&payload, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading snapshot for %s: %w", userID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing snapshot timestamp for %s: %w", userID, err)
	}
	return payload, updatedAt, nil
}

// Delete drops the cached snapshot for userID, typically on logout.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting snapshot for %s: %w", userID, err)
	}
	return nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
