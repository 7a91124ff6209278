package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/user/armory-card/internal/layout"
	"github.com/user/armory-card/internal/monitoring"
	"go.uber.org/zap"
)

// awaitAssets resolves once fonts and every image in the document have decoded.
const awaitAssets = `Promise.all([
	document.fonts.ready,
	...Array.from(document.images).map(img => img.decode().catch(() => null))
]).then(() => true)`

// BrowserRenderer lays plans out as HTML and screenshots them in headless Chrome.
type BrowserRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	icons    *IconLoader
	timeout  time.Duration
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewBrowserRenderer starts an allocator for headless Chrome. execPath may be
// empty to use the browser found on PATH. Close releases it.
func NewBrowserRenderer(execPath string, icons *IconLoader, timeout time.Duration, m *monitoring.Metrics, l *zap.Logger) *BrowserRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserRenderer{
		allocCtx: allocCtx,
		cancel:   cancel,
		icons:    icons,
		timeout:  timeout,
		metrics:  m,
		logger:   l,
	}
}

func (r *BrowserRenderer) Name() string { return "browser" }

// Close shuts the browser down.
func (r *BrowserRenderer) Close() {
	r.cancel()
}

func (r *BrowserRenderer) Render(ctx context.Context, p *layout.Plan) ([]byte, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveRender(p.Name, r.Name(), time.Since(start)) }()

	doc, err := Markup(p, r.icons.Fetch(ctx, p.ImageURLs()))
	if err != nil {
		return nil, err
	}

	taskCtx, cancel := chromedp.NewContext(r.allocCtx, chromedp.WithLogf(r.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, r.timeout)
	defer cancel()

	var ready bool
	var buf []byte
	err = chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(p.Width), int64(p.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.Evaluate(awaitAssets, &ready, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		}),
		chromedp.Screenshot("#card", &buf, chromedp.ByQuery),
	)
	if err != nil {
		r.logger.Error("browser render failed", zap.String("card", p.Name), zap.Error(err))
		return nil, fmt.Errorf("screenshot %s card: %w", p.Name, err)
	}
	return buf, nil
}
