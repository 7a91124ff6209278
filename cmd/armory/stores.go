package main

import (
	"context"
	"fmt"

	"github.com/user/armory-card/internal/api"
	"github.com/user/armory-card/internal/cache"
	"github.com/user/armory-card/internal/config"
	"github.com/user/armory-card/internal/storage"
	"go.uber.org/zap"
)

// cacheStores is the set of backends selected by PAGE_CACHE_BACKEND and ITEM_CACHE_BACKEND.
type cacheStores struct {
	pages   cache.EntryStore
	items   cache.ItemStore
	checks  map[string]api.Pinger
	closers []func() error
}

func (s *cacheStores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*cacheStores, error) {
	s := &cacheStores{checks: make(map[string]api.Pinger)}
	uses := func(backend string) bool {
		return cfg.PageCacheBackend == backend || cfg.ItemCacheBackend == backend
	}

	var sqliteStore *storage.SQLiteStore
	if uses("sqlite") {
		st, err := storage.NewSQLiteStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		sqliteStore = st
		s.checks["sqlite"] = st
		s.closers = append(s.closers, st.Close)
	}

	var pgStore *storage.PostgresStore
	if uses("postgres") {
		st, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		if err := st.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("create postgres schema: %w", err)
		}
		pgStore = st
		s.checks["postgres"] = st
		log.Info("postgres cache store ready")
	}

	switch cfg.PageCacheBackend {
	case "sqlite":
		s.pages = sqliteStore
	case "postgres":
		s.pages = pgStore
	case "redis":
		// Rows outlive the freshness window; the cache layer reports them as stale.
		rs := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 2*cfg.PageCacheTTL())
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.pages = rs
		s.checks["redis"] = rs
		s.closers = append(s.closers, rs.Close)
		log.Info("redis page cache ready", zap.String("addr", cfg.RedisAddr))
	}

	switch cfg.ItemCacheBackend {
	case "sqlite":
		s.items = sqliteStore
	case "postgres":
		s.items = pgStore
	}
	return s, nil
}
