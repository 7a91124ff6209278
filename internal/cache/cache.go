// Package cache applies freshness policy on top of the page and item metadata tables.
//
// Stores only persist rows. Whether a row is still usable (its age, whether its
// payload decodes) is decided here, so every backend behaves identically.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/monitoring"
	"go.uber.org/zap"
)

const (
	DefaultPageTTL = 30 * time.Minute
	DefaultItemTTL = 7 * 24 * time.Hour

	NamespaceArmory  = "armory"
	NamespaceTalents = "talents"

	// StoreTimeout bounds a single store read or write.
	StoreTimeout = 5 * time.Second
)

// storeContext detaches store I/O from the caller's deadline. Upstream fetches
// may finish after that deadline and their results must still be written.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), StoreTimeout)
}

// EntryStore persists page cache rows. GetEntry returns nil, nil when no row exists.
type EntryStore interface {
	GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error)
	PutEntry(ctx context.Context, entry domain.CacheEntry) error
}

// ItemStore persists item metadata rows. GetItem returns nil, nil when no row exists.
type ItemStore interface {
	GetItem(ctx context.Context, itemID int) (*domain.ItemMetaEntry, error)
	PutItem(ctx context.Context, entry domain.ItemMetaEntry) error
}

// DeserializationError is logged when a stored value no longer decodes.
type DeserializationError struct {
	Key string
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("cache entry %s: %v", e.Key, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// Key builds a namespaced cache key such as "armory:https://...".
func Key(namespace, url string) string {
	return namespace + ":" + url
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PageCache stores fetched-and-parsed pages as JSON for a fixed TTL.
type PageCache struct {
	store   EntryStore
	ttl     time.Duration
	now     func() time.Time
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewPageCache(store EntryStore, ttl time.Duration, m *monitoring.Metrics, l *zap.Logger, opts ...Option) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	o := buildOptions(opts)
	return &PageCache{store: store, ttl: ttl, now: o.now, metrics: m, logger: l}
}

// Get decodes the live entry for key into dest. It reports false for a missing,
// expired, unreadable or undecodable entry; callers refetch in every case.
func (c *PageCache) Get(ctx context.Context, key string, dest any) bool {
	ns := namespaceOf(key)
	ctx, cancel := storeContext(ctx)
	defer cancel()

	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		c.logger.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.IncCacheLookup(ns, "miss")
		return false
	}
	if entry == nil {
		c.metrics.IncCacheLookup(ns, "miss")
		return false
	}
	if c.now().Sub(entry.CreatedAt) > c.ttl {
		c.metrics.IncCacheLookup(ns, "stale")
		return false
	}
	if err := json.Unmarshal([]byte(entry.Value), dest); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.Error(&DeserializationError{Key: key, Err: err}))
		c.metrics.IncCacheLookup(ns, "corrupt")
		return false
	}
	c.metrics.IncCacheLookup(ns, "hit")
	return true
}

// Set replaces the entry for key. Failures are logged; the cache is best effort.
func (c *PageCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("page cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	entry := domain.CacheEntry{Key: key, Value: string(data), CreatedAt: c.now()}
	ctx, cancel := storeContext(ctx)
	defer cancel()
	if err := c.store.PutEntry(ctx, entry); err != nil {
		c.logger.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func namespaceOf(key string) string {
	if ns, _, ok := strings.Cut(key, ":"); ok {
		return ns
	}
	return "unknown"
}

// ItemCache stores item name and level lookups, including failed ones.
type ItemCache struct {
	store   ItemStore
	ttl     time.Duration
	now     func() time.Time
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewItemCache(store ItemStore, ttl time.Duration, m *monitoring.Metrics, l *zap.Logger, opts ...Option) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultItemTTL
	}
	o := buildOptions(opts)
	return &ItemCache{store: store, ttl: ttl, now: o.now, metrics: m, logger: l}
}

// Get returns the cached lookup for itemID. A stored negative result is a hit.
func (c *ItemCache) Get(ctx context.Context, itemID int) (domain.ItemMeta, bool) {
	ctx, cancel := storeContext(ctx)
	defer cancel()

	entry, err := c.store.GetItem(ctx, itemID)
	if err != nil {
		c.logger.Warn("item cache read failed", zap.Int("item_id", itemID), zap.Error(err))
		c.metrics.IncCacheLookup("item", "miss")
		return domain.ItemMeta{}, false
	}
	if entry == nil {
		c.metrics.IncCacheLookup("item", "miss")
		return domain.ItemMeta{}, false
	}
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		c.metrics.IncCacheLookup("item", "stale")
		return domain.ItemMeta{}, false
	}
	c.metrics.IncCacheLookup("item", "hit")
	return domain.ItemMeta{Name: entry.Name, ILvl: entry.ILvl}, true
}

// Set replaces the row for itemID.
func (c *ItemCache) Set(ctx context.Context, itemID int, meta domain.ItemMeta) {
	entry := domain.ItemMetaEntry{ItemID: itemID, Name: meta.Name, ILvl: meta.ILvl, FetchedAt: c.now()}
	ctx, cancel := storeContext(ctx)
	defer cancel()
	if err := c.store.PutItem(ctx, entry); err != nil {
		c.logger.Warn("item cache write failed", zap.Int("item_id", itemID), zap.Error(err))
	}
}
