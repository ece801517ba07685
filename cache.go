package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const cacheSchema = `CREATE TABLE IF NOT EXISTS segmentations (
	key        TEXT PRIMARY KEY,
	segments   TEXT NOT NULL,
	created_at TEXT NOT NULL
);`

// SegmentCache keeps validated remote segmentations in SQLite so an article
// is only sent to Gemini once. It implements segment.Cache.
type SegmentCache struct {
	db *sql.DB
}

// OpenSegmentCache opens (and creates if missing) the cache database.
func OpenSegmentCache(path string) (*SegmentCache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA busy_timeout = 5000`, `PRAGMA journal_mode = WAL`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragmas: %w", err)
		}
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SegmentCache{db: db}, nil
}

// Get returns the cached segments for key.
func (c *SegmentCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT segments FROM segmentations WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query segments: %w", err)
	}

	var segs []string
	if err := json.Unmarshal([]byte(raw), &segs); err != nil {
		return nil, false, fmt.Errorf("decode segments: %w", err)
	}
	return segs, true, nil
}

// Put stores segments under key, replacing any previous entry.
func (c *SegmentCache) Put(ctx context.Context, key string, segs []string) error {
	raw, err := json.Marshal(segs)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO segmentations (key, segments, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET segments = excluded.segments, created_at = excluded.created_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *SegmentCache) Close() error {
	return c.db.Close()
}
