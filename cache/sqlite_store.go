package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database for the cache. Use ":memory:" for a
// throwaway database.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// SQLiteStore keeps cache entries in a SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	table string
	ttl   time.Duration
	now   func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewSQLiteStore builds a store over db. The table is created on first use.
func NewSQLiteStore(db *sql.DB, table string, ttl time.Duration) *SQLiteStore {
	if table == "" {
		table = "template_cache"
	}
	return &SQLiteStore{db: db, table: table, ttl: ttl, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ready(ctx); err != nil {
		return nil, false, err
	}
	q := fmt.Sprintf(`SELECT value, expires_at FROM %s WHERE cache_key = ?`, s.table)
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt > 0 && s.now().UnixNano() >= expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	var expiresAt int64
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl).UnixNano()
	}
	q := fmt.Sprintf(`INSERT INTO %s (cache_key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`, s.table)
	_, err := s.db.ExecContext(ctx, q, key, value, expiresAt)
	return err
}

// DeletePrefix removes matching rows of every prefix in one transaction.
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefixes ...string) error {
	prefixes = trimPrefixes(prefixes)
	if len(prefixes) == 0 {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE cache_key = ? OR cache_key LIKE ? ESCAPE '\'`, s.table)
	for _, prefix := range prefixes {
		if _, err := tx.ExecContext(ctx, q, prefix, escapeLike(prefix+keySeparator)+"%"); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Sweep deletes rows that expired at or before now.
func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE expires_at > 0 AND expires_at <= ?`, s.table)
	result, err := s.db.ExecContext(ctx, q, now.UnixNano())
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite cache store not configured")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cache_key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
