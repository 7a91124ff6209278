package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps both cache tables in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path (":memory:" for a private in-process database) and applies migrations.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(context.Background(), goose.DialectSQLite3, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("sqlite cache store ready", zap.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var value string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at FROM cache WHERE key = ?`, key,
	).Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	return &domain.CacheEntry{Key: key, Value: value, CreatedAt: fromMillis(createdAt)}, nil
}

func (s *SQLiteStore) PutEntry(ctx context.Context, entry domain.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		entry.Key, entry.Value, toMillis(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, itemID int) (*domain.ItemMetaEntry, error) {
	var name sql.NullString
	var ilvl sql.NullInt64
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, ilvl, fetched_at FROM item_cache WHERE item_id = ?`, itemID,
	).Scan(&name, &ilvl, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select item: %w", err)
	}
	entry := &domain.ItemMetaEntry{ItemID: itemID, FetchedAt: fromMillis(fetchedAt)}
	if name.Valid {
		entry.Name = &name.String
	}
	if ilvl.Valid {
		v := int(ilvl.Int64)
		entry.ILvl = &v
	}
	return entry, nil
}

func (s *SQLiteStore) PutItem(ctx context.Context, entry domain.ItemMetaEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_cache (item_id, name, ilvl, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET name = excluded.name, ilvl = excluded.ilvl, fetched_at = excluded.fetched_at`,
		entry.ItemID, nullString(entry.Name), nullInt(entry.ILvl), toMillis(entry.FetchedAt))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
