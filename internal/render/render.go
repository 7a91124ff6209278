// Package render paints layout plans into PNG images.
package render

import (
	"context"
	"net/http"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/user/armory-card/internal/layout"
	"go.uber.org/zap"
)

// Renderer paints a plan and returns the encoded PNG.
type Renderer interface {
	Render(ctx context.Context, p *layout.Plan) ([]byte, error)
	Name() string
}

// Fetcher retrieves image bytes.
type Fetcher interface {
	Get(ctx context.Context, target, url string, header http.Header) ([]byte, error)
}

// IconLoader downloads the images a plan references, a bounded number at a time.
type IconLoader struct {
	fetcher       Fetcher
	maxConcurrent int
	logger        *zap.Logger
}

func NewIconLoader(f Fetcher, maxConcurrent int, l *zap.Logger) *IconLoader {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &IconLoader{fetcher: f, maxConcurrent: maxConcurrent, logger: l}
}

// Fetch returns the bytes of every URL that could be downloaded. Failed
// downloads are logged and left out; the card is drawn without them.
func (l *IconLoader) Fetch(ctx context.Context, urls []string) map[string][]byte {
	out := make(map[string][]byte, len(urls))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(l.maxConcurrent)
	for _, u := range urls {
		u := u
		p.Go(func() {
			data, err := l.fetcher.Get(ctx, "icon", u, nil)
			if err != nil {
				l.logger.Debug("icon download failed", zap.String("url", u), zap.Error(err))
				return
			}
			mu.Lock()
			out[u] = data
			mu.Unlock()
		})
	}
	p.Wait()
	return out
}
