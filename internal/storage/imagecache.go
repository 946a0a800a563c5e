/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	CacheFileName = "images.sqlite"

	// schemaVersion tracks the cache schema; bump it with a migration step.
	schemaVersion = 1

	defaultMaxBytes = 256 * 1024 * 1024

	// fixed width so last_access sorts lexically
	accessLayout = "2006-01-02T15:04:05.000000000Z"
)

// ImageCache is a size-capped blob store keyed by image URL.
type ImageCache struct {
	db       *sql.DB
	path     string
	maxBytes int64
	log      *slog.Logger
}

// CachePath returns the database file under dir.
func CachePath(dir string) string { return filepath.Join(dir, CacheFileName) }

// OpenImageCache creates or opens the cache under dir. A file that cannot be
// opened or fails quick_check is moved to backups/ and recreated.
func OpenImageCache(ctx context.Context, dir string) (*ImageCache, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "cache_open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := CachePath(dir)
	db, err := openDB(ctx, path)
	if err == nil && !healthy(ctx, db) {
		_ = db.Close()
		err = errors.New("quick_check failed")
	}
	if err != nil {
		l.Warn("image cache unusable, rebuilding", slog.Any("err", err))
		backupFile(path)
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			_ = os.Remove(p)
		}
		if db, err = openDB(ctx, path); err != nil {
			l.Error("rebuild image cache failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("image cache ready", slog.String("path", path))
	return &ImageCache{db: db, path: path, maxBytes: MaxBytesFromEnv(), log: applog.WithComponent("storage")}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(chk), "ok")
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS images (
			key          TEXT PRIMARY KEY,
			content_type TEXT,
			blob         BLOB    NOT NULL,
			size         INTEGER NOT NULL DEFAULT 0,
			fetched_at   TEXT    NOT NULL,
			last_access  TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_images_access ON images(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure cache schema: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (c *ImageCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SetMaxBytes overrides the size cap; n <= 0 disables eviction.
func (c *ImageCache) SetMaxBytes(n int64) { c.maxBytes = n }

// Get returns the cached bytes for key and marks the entry as recently used.
// A miss returns (nil, "", nil).
func (c *ImageCache) Get(ctx context.Context, key string) ([]byte, string, error) {
	var blob []byte
	var ctype sql.NullString
	err := c.db.QueryRowContext(ctx, `SELECT blob, content_type FROM images WHERE key=?`, key).Scan(&blob, &ctype)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("query image: %w", err)
	}
	now := time.Now().UTC().Format(accessLayout)
	_, _ = c.db.ExecContext(ctx, `UPDATE images SET last_access=? WHERE key=?`, now, key)
	return blob, ctype.String, nil
}

// Put upserts blob under key and evicts least recently used entries past the cap.
func (c *ImageCache) Put(ctx context.Context, key, contentType string, blob []byte) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	now := time.Now().UTC().Format(accessLayout)
	_, err := c.db.ExecContext(ctx, `INSERT INTO images(key,content_type,blob,size,fetched_at,last_access)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET content_type=excluded.content_type, blob=excluded.blob, size=excluded.size, fetched_at=excluded.fetched_at, last_access=excluded.last_access`,
		key, contentType, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert image: %w", err)
	}
	if c.maxBytes > 0 {
		return c.EvictToFit(ctx, c.maxBytes)
	}
	return nil
}

// EvictToFit deletes least-recently-used rows until total size <= capBytes.
func (c *ImageCache) EvictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM images ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var key string
		var sz int64
		if err := rows.Scan(&key, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, key)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be free before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM images WHERE key IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("evicted images", slog.Int("count", len(victims)), slog.Int64("bytes", total-cur))
	return nil
}

// TotalBytes returns the sum of cached blob sizes.
func (c *ImageCache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM images`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum image sizes: %w", err)
	}
	return total, nil
}

// backupFile copies path into a timestamped file in backups/ next to it.
func backupFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	bdir := filepath.Join(filepath.Dir(path), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	_ = os.WriteFile(filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp)), data, 0o644)
}

// MaxBytesFromEnv reads CAROUSEL_IMAGE_CACHE_MAX_BYTES, defaulting to 256MB.
func MaxBytesFromEnv() int64 {
	v := os.Getenv("CAROUSEL_IMAGE_CACHE_MAX_BYTES")
	if v == "" {
		return defaultMaxBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxBytes
	}
	return n
}
