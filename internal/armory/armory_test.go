package armory

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/internal/cache"
	"github.com/user/armory-card/internal/fetch"
	"github.com/user/armory-card/internal/proxy"
	"github.com/user/armory-card/internal/storage"
	"go.uber.org/zap"
)

const testBase = "https://armory.warmane.com"

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

func parseFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	return parseHTML(t, readFixture(t, name))
}

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// countingServer serves routes and counts every request it receives.
func countingServer(t *testing.T, routes map[string][]byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	pm, err := proxy.NewManager(nil, "armory-card-test")
	if err != nil {
		t.Fatalf("proxy manager: %v", err)
	}
	return fetch.NewClient(pm, "en-US", 2*time.Second, nil, zap.NewNop())
}

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testClock is a settable clock for cache expiry tests.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newPageCache(t *testing.T, clock *testClock) *cache.PageCache {
	t.Helper()
	return cache.NewPageCache(newTestStore(t), 30*time.Minute, nil, zap.NewNop(), cache.WithClock(clock.Now))
}

func newItemCache(t *testing.T, clock *testClock) *cache.ItemCache {
	t.Helper()
	return cache.NewItemCache(newTestStore(t), 7*24*time.Hour, nil, zap.NewNop(), cache.WithClock(clock.Now))
}
