// Package cache remembers tracks the lyrics site recently had nothing for.
//
// A miss (no search result, no lyrics file) is recorded with its time; later
// runs skip the network for that track until the entry is older than the
// configured TTL. Entries are keyed by case-folded artist and title so tag
// capitalization differences share one entry.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/handiism/lrc-downloader/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS misses (
	artist     TEXT NOT NULL,
	title      TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	checked_at INTEGER NOT NULL,
	PRIMARY KEY (artist, title)
);
CREATE INDEX IF NOT EXISTS idx_misses_checked_at ON misses(checked_at);
`

// Miss is one remembered miss.
type Miss struct {
	Artist    string
	Title     string
	Outcome   string
	CheckedAt time.Time
}

// MissCache is a SQLite-backed record of recent misses. It is safe for
// concurrent use.
type MissCache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*MissCache, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &MissCache{db: db, now: time.Now}, nil
}

// Close closes the database.
func (c *MissCache) Close() error {
	return c.db.Close()
}

// Lookup reports whether a miss for artist/title was recorded within ttl.
// A non-positive ttl disables lookups.
func (c *MissCache) Lookup(ctx context.Context, artist, title string, ttl time.Duration) (Miss, bool, error) {
	if ttl <= 0 {
		return Miss{}, false, nil
	}

	var (
		m         Miss
		checkedAt int64
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT artist, title, outcome, checked_at FROM misses WHERE artist = ? AND title = ?`,
		key(artist), key(title))
	switch err := row.Scan(&m.Artist, &m.Title, &m.Outcome, &checkedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return Miss{}, false, nil
	case err != nil:
		return Miss{}, false, fmt.Errorf("lookup miss: %w", err)
	}

	m.CheckedAt = time.Unix(checkedAt, 0)
	if c.now().Sub(m.CheckedAt) > ttl {
		return Miss{}, false, nil
	}
	return m, true, nil
}

// Record stores (or refreshes) a miss for artist/title.
func (c *MissCache) Record(ctx context.Context, artist, title string, outcome model.Outcome) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO misses (artist, title, outcome, checked_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(artist, title) DO UPDATE SET outcome = excluded.outcome, checked_at = excluded.checked_at`,
		key(artist), key(title), outcome.String(), c.now().Unix())
	if err != nil {
		return fmt.Errorf("record miss: %w", err)
	}
	return nil
}

// Forget removes the entry for artist/title, if any.
func (c *MissCache) Forget(ctx context.Context, artist, title string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM misses WHERE artist = ? AND title = ?`, key(artist), key(title)); err != nil {
		return fmt.Errorf("forget miss: %w", err)
	}
	return nil
}

// Prune deletes entries older than ttl and returns how many were removed.
func (c *MissCache) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := c.now().Add(-ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM misses WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune misses: %w", err)
	}
	return res.RowsAffected()
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
