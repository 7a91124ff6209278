package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Manager handles the rotation of outbound proxies and the user agent sent upstream.
type Manager struct {
	proxies    []*url.URL
	userAgent  string
	mu         sync.Mutex
	proxyIndex int
}

// NewManager parses the proxy list. An empty list means direct connections.
func NewManager(proxies []string, userAgent string) (*Manager, error) {
	m := &Manager{userAgent: userAgent}
	for _, raw := range proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		m.proxies = append(m.proxies, u)
	}
	return m, nil
}

// GetProxy returns a proxy URL from the list, rotating sequentially.
func (m *Manager) GetProxy() *url.URL {
	if len(m.proxies) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return p
}

// Proxy satisfies http.Transport.Proxy.
func (m *Manager) Proxy(_ *http.Request) (*url.URL, error) {
	return m.GetProxy(), nil
}

// GetUserAgent returns the descriptive user agent used for every upstream request.
func (m *Manager) GetUserAgent() string {
	return m.userAgent
}
