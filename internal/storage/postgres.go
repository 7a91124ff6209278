package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/user/armory-card/internal/domain"
)

// PostgresStore handles the cache tables in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to connStr and verifies the connection. Call
// EnsureSchema before use.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema applies the embedded migrations that also back the SQLite store.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(s.db)
	defer sqlDB.Close()
	return migrate(ctx, goose.DialectPostgres, sqlDB)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var value string
	var createdAt int64
	err := s.db.QueryRow(ctx,
		`SELECT value, created_at FROM cache WHERE key = $1`, key,
	).Scan(&value, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	return &domain.CacheEntry{Key: key, Value: value, CreatedAt: fromMillis(createdAt)}, nil
}

func (s *PostgresStore) PutEntry(ctx context.Context, entry domain.CacheEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO cache (key, value, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, created_at = EXCLUDED.created_at`,
		entry.Key, entry.Value, toMillis(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, itemID int) (*domain.ItemMetaEntry, error) {
	entry := domain.ItemMetaEntry{ItemID: itemID}
	var fetchedAt int64
	err := s.db.QueryRow(ctx,
		`SELECT name, ilvl, fetched_at FROM item_cache WHERE item_id = $1`, itemID,
	).Scan(&entry.Name, &entry.ILvl, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select item: %w", err)
	}
	entry.FetchedAt = fromMillis(fetchedAt)
	return &entry, nil
}

func (s *PostgresStore) PutItem(ctx context.Context, entry domain.ItemMetaEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO item_cache (item_id, name, ilvl, fetched_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (item_id) DO UPDATE SET
		   name = EXCLUDED.name, ilvl = EXCLUDED.ilvl, fetched_at = EXCLUDED.fetched_at`,
		entry.ItemID, entry.Name, entry.ILvl, toMillis(entry.FetchedAt))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}
