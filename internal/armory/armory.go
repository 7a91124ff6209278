// Package armory extracts character sheets and talent sets from Warmane armory pages.
package armory

import (
	"context"
	"net/http"

	"github.com/user/armory-card/internal/domain"
)

// Fetcher retrieves upstream pages. target labels the request kind.
type Fetcher interface {
	Get(ctx context.Context, target, url string, header http.Header) ([]byte, error)
}

// PageCache stores serialized sheets and talent sets by key.
type PageCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// ItemMetaCache stores item lookups, including failed ones.
type ItemMetaCache interface {
	Get(ctx context.Context, itemID int) (domain.ItemMeta, bool)
	Set(ctx context.Context, itemID int, meta domain.ItemMeta)
}

// Resolver turns an item id into display metadata. It never fails; unknown fields stay nil.
type Resolver interface {
	Resolve(ctx context.Context, itemID int) domain.ItemMeta
}
