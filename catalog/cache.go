package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrCacheEmpty reports a cache with no stored snapshot to fall back on.
var ErrCacheEmpty = errors.New("catalog cache is empty")

// Cache stores raw catalog snapshots in sqlite so a run can proceed on
// the last known catalog when the live source is unreachable. Bodies are
// kept verbatim; parsing always happens on the way out, so a cache
// written by an older build stays readable.
type Cache struct {
	db      *sql.DB
	maxKeep int
}

// OpenCache opens (creating if needed) the snapshot cache at path and
// migrates its schema. maxKeep bounds retained snapshots; zero or
// negative keeps five.
func OpenCache(path string, maxKeep int) (*Cache, error) {
	if maxKeep <= 0 {
		maxKeep = 5
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog cache: %w", err)
	}

	c := &Cache{db: db, maxKeep: maxKeep}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog cache: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fetched_at INTEGER NOT NULL,
		source_url TEXT NOT NULL,
		body BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Put stores a raw catalog body and prunes snapshots beyond the
// retention bound, oldest first.
func (c *Cache) Put(ctx context.Context, body []byte, sourceURL string, fetchedAt time.Time) error {
	if len(body) == 0 {
		return fmt.Errorf("refusing to cache an empty catalog body")
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO snapshots (fetched_at, source_url, body) VALUES (?, ?, ?)`,
		fetchedAt.UTC().Unix(), sourceURL, body,
	)
	if err != nil {
		return fmt.Errorf("storing catalog snapshot: %w", err)
	}
	return c.prune(ctx)
}

// Latest returns the most recent cached body and its fetch time.
func (c *Cache) Latest(ctx context.Context) ([]byte, time.Time, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM snapshots ORDER BY fetched_at DESC, id DESC LIMIT 1`,
	)

	var (
		body    []byte
		fetched int64
	)
	if err := row.Scan(&body, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrCacheEmpty
		}
		return nil, time.Time{}, fmt.Errorf("reading catalog snapshot: %w", err)
	}
	return body, time.Unix(fetched, 0).UTC(), nil
}

// Len returns the number of retained snapshots.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting catalog snapshots: %w", err)
	}
	return n, nil
}

func (c *Cache) prune(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY fetched_at DESC, id DESC LIMIT ?
		)`, c.maxKeep)
	if err != nil {
		return fmt.Errorf("pruning catalog snapshots: %w", err)
	}
	return nil
}
