package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const defaultSQLitePath = "overlay-cache.db"

// sqlDialect holds the statements that differ between drivers.
type sqlDialect struct {
	driver string
	ddl    string
	get    string
	set    string
}

var sqliteDialect = sqlDialect{
	driver: "sqlite",
	ddl: `CREATE TABLE IF NOT EXISTS overlay_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`,
	get: `SELECT value, expires_at FROM overlay_cache WHERE key = ?`,
	set: `INSERT INTO overlay_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
}

var postgresDialect = sqlDialect{
	driver: "pgx",
	ddl: `CREATE TABLE IF NOT EXISTS overlay_cache (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0
	)`,
	get: `SELECT value, expires_at FROM overlay_cache WHERE key = $1`,
	set: `INSERT INTO overlay_cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
}

// SQLBackend stores entries in a single overlay_cache table. expires_at is
// Unix milliseconds, 0 meaning no expiry. Expired rows read as misses and are
// overwritten by the next Set.
type SQLBackend struct {
	db      *sql.DB
	dialect sqlDialect
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite cache file.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return openSQL(ctx, sqliteDialect, path)
}

// OpenPostgres connects to Postgres through pgx and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres cache backend requires a dsn")
	}
	return openSQL(ctx, postgresDialect, dsn)
}

func openSQL(ctx context.Context, d sqlDialect, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create overlay_cache table: %w", err)
	}
	return &SQLBackend{db: db, dialect: d, now: time.Now}, nil
}

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := b.db.QueryRowContext(ctx, b.dialect.get, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	if expiresAt != 0 && b.now().UnixMilli() >= expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

func (b *SQLBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = b.now().Add(ttl).UnixMilli()
	}
	if _, err := b.db.ExecContext(ctx, b.dialect.set, key, value, expiresAt); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (b *SQLBackend) DB() *sql.DB { return b.db }

func (b *SQLBackend) Close() error { return b.db.Close() }
