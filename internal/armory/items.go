package armory

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/monitoring"
	"go.uber.org/zap"
)

// ItemReferer is sent with item database requests.
const ItemReferer = "https://armory.warmane.com/"

var (
	titleSuffixRe = regexp.MustCompile(`\s+-\s+.*$`)
	itemLevelRe   = regexp.MustCompile(`(?i)Item Level\s*(\d{1,3})`)
)

// ItemResolver looks item metadata up in the item database, caching every outcome.
type ItemResolver struct {
	urlTemplate string
	fetcher     Fetcher
	cache       ItemMetaCache
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

// NewItemResolver builds a resolver. urlTemplate must contain a single %d for the item id.
func NewItemResolver(urlTemplate string, f Fetcher, c ItemMetaCache, m *monitoring.Metrics, l *zap.Logger) *ItemResolver {
	return &ItemResolver{urlTemplate: urlTemplate, fetcher: f, cache: c, metrics: m, logger: l}
}

// Resolve returns cached metadata when live. Otherwise it fetches the item page once and
// stores the result, even when nothing could be extracted, so failures are not retried
// until the entry expires.
func (r *ItemResolver) Resolve(ctx context.Context, itemID int) domain.ItemMeta {
	if meta, ok := r.cache.Get(ctx, itemID); ok {
		r.metrics.IncItemLookup("cached")
		return meta
	}

	meta, err := r.lookup(ctx, itemID)
	if err != nil {
		r.metrics.IncItemLookup("failed")
		r.logger.Warn("item lookup failed",
			zap.Int("item_id", itemID),
			zap.Error(err))
		meta = domain.ItemMeta{}
	} else {
		r.metrics.IncItemLookup("fetched")
	}

	r.cache.Set(ctx, itemID, meta)
	return meta
}

func (r *ItemResolver) lookup(ctx context.Context, itemID int) (domain.ItemMeta, error) {
	url := fmt.Sprintf(r.urlTemplate, itemID)
	header := http.Header{}
	header.Set("Referer", ItemReferer)

	body, err := r.fetcher.Get(ctx, "item", url, header)
	if err != nil {
		return domain.ItemMeta{}, err
	}
	return ParseItemPage(body)
}

// ParseItemPage extracts the item name from the page title and the item level from the page text.
func ParseItemPage(body []byte) (domain.ItemMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ItemMeta{}, fmt.Errorf("parse item page: %w", err)
	}

	var meta domain.ItemMeta
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if name := strings.TrimSpace(titleSuffixRe.ReplaceAllString(title, "")); name != "" {
		meta.Name = &name
	}
	if m := itemLevelRe.FindSubmatch(body); m != nil {
		if ilvl, err := strconv.Atoi(string(m[1])); err == nil && ilvl > 0 {
			meta.ILvl = &ilvl
		}
	}
	return meta, nil
}
