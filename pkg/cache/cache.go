// Package cache stores generated assembly in a SQLite database, keyed by a
// hash of the input program and the code-affecting configuration.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/gwacc/pkg/config"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	key     TEXT PRIMARY KEY,
	asm     TEXT NOT NULL,
	hits    INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL
)`

type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil { return nil, fmt.Errorf("opening cache %s: %w", path, err) }
	// One writer at a time; parallel compilations queue on the connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Key identifies the output for input compiled under cfg.
func Key(input []byte, cfg *config.Config) string {
	return fmt.Sprintf("%016x/%s", xxhash.Sum64(input), cfg.Fingerprint())
}

// Get returns the stored assembly for key and counts the hit.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var asm string
	err := c.db.QueryRowContext(ctx, `SELECT asm FROM programs WHERE key = ?`, key).Scan(&asm)
	if errors.Is(err, sql.ErrNoRows) { return "", false, nil }
	if err != nil { return "", false, fmt.Errorf("cache lookup: %w", err) }

	if _, err := c.db.ExecContext(ctx, `UPDATE programs SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return asm, true, nil
}

// Put stores asm under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key, asm string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO programs (key, asm, created) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET asm = excluded.asm, hits = 0, created = excluded.created`,
		key, asm, time.Now().Unix())
	if err != nil { return fmt.Errorf("cache store: %w", err) }
	return nil
}

type Stats struct {
	Entries int
	Hits    int
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM programs`).Scan(&s.Entries, &s.Hits)
	if err != nil { return Stats{}, fmt.Errorf("cache stats: %w", err) }
	return s, nil
}

// Prune drops entries created before cutoff and returns how many went.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM programs WHERE created < ?`, cutoff.Unix())
	if err != nil { return 0, fmt.Errorf("cache prune: %w", err) }
	return res.RowsAffected()
}
