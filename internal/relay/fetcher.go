package relay

import (
	"context"
	"net/http"
	"time"
)

// browserUserAgent is sent on every upstream request; some CDNs reject
// non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Default upstream timeouts: the feed is a small JSON document, playlists and
// segments can be larger.
const (
	DefaultFeedTimeout   = 5 * time.Second
	DefaultStreamTimeout = 10 * time.Second
)

// Fetcher performs upstream GETs. The concrete implementation is HTTP;
// tests substitute fakes.
type Fetcher interface {
	// Fetch issues a GET for url. The request is bounded by the fetcher's
	// timeout and canceled when ctx is. The caller owns the response body.
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

// HTTPFetcher fetches over HTTP(S) with a bounded timeout and a browser-like
// user agent. The timeout covers the whole exchange including body reads, so
// a stalled origin cannot hold a segment stream open forever.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests are aborted after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	return f.client.Do(req)
}
