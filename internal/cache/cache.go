// Package cache stores recognized page text in SQLite, keyed by a content
// hash of the encoded page image and the engine settings, so re-running a
// document skips pages that were already recognized.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS ocr_text (
	key        TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// one connection: keeps ":memory:" databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an already opened database whose schema exists.
func New(db *sql.DB, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{db: db, logger: logger}
}

// Key hashes the encoded page image together with every setting that can
// change the recognized text.
func Key(image []byte, settings ...string) string {
	h := sha256.New()
	h.Write(image)
	for _, s := range settings {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached text for key and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := c.db.QueryRowContext(ctx, `SELECT text FROM ocr_text WHERE key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	c.logger.Debug("ocr cache hit", "key", key[:min(12, len(key))])
	return text, true, nil
}

// Put stores text under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key, text string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO ocr_text (key, text, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET text = excluded.text, created_at = excluded.created_at`,
		key, text, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
