package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyTimeoutMS = 5000
	sqliteSchema        = `CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
)`
)

// SQLiteStore is an implementation of Store backed by a SQLite database file.
// Deadlines are kept as Unix nanoseconds, zero meaning no deadline.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	dsn := url.URL{Scheme: "file", Path: path}
	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", sqliteBusyTimeoutMS),
		sqliteSchema,
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite store %q: %w", path, err)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLiteStore{db: db, opts: newOptions(opts)}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if d := deadline(s.opts.now(), ttl); !d.IsZero() {
		expiresAt = d.UnixNano()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, dup(value), expiresAt)
	if err != nil {
		return fmt.Errorf("could not put %.40q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *SQLiteStore) getWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT value, expires_at FROM entries WHERE key = ?", key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, 0, false, err
	}
	var d time.Time
	if expiresAt != 0 {
		d = time.Unix(0, expiresAt)
	}
	now := s.opts.now()
	if expired(d, now) {
		return nil, 0, false, fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
	}
	if value == nil {
		value = []byte{}
	}
	return value, remaining(d, now), true, nil
}

func (s *SQLiteStore) Sweep(ctx context.Context) (removed int, err error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE expires_at != 0 AND expires_at <= ?", s.opts.now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
