package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/monitoring"
	"github.com/user/armory-card/internal/proxy"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// Client issues upstream GET requests with a fixed timeout, user agent and language preference.
type Client struct {
	httpClient     *http.Client
	proxyManager   *proxy.Manager
	acceptLanguage string
	timeout        time.Duration
	metrics        *monitoring.Metrics
	logger         *zap.Logger
}

func NewClient(pm *proxy.Manager, acceptLanguage string, timeout time.Duration, m *monitoring.Metrics, l *zap.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = pm.Proxy
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		proxyManager:   pm,
		acceptLanguage: acceptLanguage,
		timeout:        timeout,
		metrics:        m,
		logger:         l,
	}
}

// Get fetches url and returns the body of a 2xx response.
// target labels the request in metrics ("profile", "talents", "item", "icon").
// The request is detached from ctx cancellation: it runs until it completes or times out.
func (c *Client) Get(ctx context.Context, target, url string, header http.Header) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.UpstreamFetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.proxyManager.GetUserAgent())
	req.Header.Set("Accept-Language", c.acceptLanguage)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(target, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncFetch(target, "http_error")
		c.logger.Warn("upstream returned non-success status",
			zap.String("target", target),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return nil, &domain.UpstreamFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.classify(target, url, fmt.Errorf("read body: %w", err))
	}

	c.metrics.IncFetch(target, "ok")
	c.logger.Debug("upstream fetch complete",
		zap.String("target", target),
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return body, nil
}

func (c *Client) classify(target, url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.metrics.IncFetch(target, "timeout")
		c.logger.Warn("upstream fetch timed out", zap.String("target", target), zap.String("url", url))
		return &domain.TimeoutError{URL: url, Timeout: c.timeout, Err: err}
	}
	c.metrics.IncFetch(target, "network_error")
	c.logger.Warn("upstream fetch failed", zap.String("target", target), zap.String("url", url), zap.Error(err))
	return &domain.UpstreamFetchError{URL: url, Err: err}
}
