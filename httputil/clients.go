package httputil

import (
	"net/http"
	"net/url"
	"time"
)

// NewScrapingClient builds the shared client used by all source adapters.
// Redirects are followed so listing URLs that bounce through a tracker
// still land on the result page; the timeout bounds one whole exchange.
// An empty proxyURL means direct connections.
func NewScrapingClient(proxyURL string) *http.Client {
	transport := &http.Transport{
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
	}
}
