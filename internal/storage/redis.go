package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/pkg/utils"
)

// RedisStore keeps page cache rows in Redis as a JSON envelope under the entry key.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

type redisEnvelope struct {
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
}

// NewRedisStore connects to addr. retention bounds how long Redis keeps a row
// physically; freshness is still judged from created_at by the cache layer.
func NewRedisStore(addr, password string, db int, retention time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisStoreFromClient(rdb, retention)
}

func NewRedisStoreFromClient(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisKey hashes a cache key so long URLs map to fixed-length Redis keys.
func redisKey(key string) string {
	return "armory-card:page:" + utils.HashURL(key)
}

func (s *RedisStore) GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var env redisEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// A broken envelope reads as an entry whose value cannot be decoded.
		return &domain.CacheEntry{Key: key, Value: raw, CreatedAt: time.Now()}, nil
	}
	return &domain.CacheEntry{Key: key, Value: env.Value, CreatedAt: fromMillis(env.CreatedAt)}, nil
}

// PutEntry overwrites the key with SET, so at most one entry per key exists.
func (s *RedisStore) PutEntry(ctx context.Context, entry domain.CacheEntry) error {
	data, err := json.Marshal(redisEnvelope{Value: entry.Value, CreatedAt: toMillis(entry.CreatedAt)})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(entry.Key), data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Key, err)
	}
	return nil
}
