package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Service implements the playlist relay and segment proxy on top of the
// catalog, the session store, and an upstream fetcher.
type Service struct {
	catalog  *Catalog
	sessions SessionStore
	fetcher  Fetcher
}

// NewService returns a Service using the given collaborators. The fetcher is
// the one used for playlists and segments; the catalog carries its own.
func NewService(catalog *Catalog, sessions SessionStore, fetcher Fetcher) *Service {
	return &Service{catalog: catalog, sessions: sessions, fetcher: fetcher}
}

// MasterPlaylist fetches the origin playlist for the match and variant,
// records the origin's base directory URL for later segment requests, and
// returns the rewritten playlist text.
func (s *Service) MasterPlaylist(ctx context.Context, id MatchID, variant Variant) (string, error) {
	streamURL, err := s.catalog.StreamURL(ctx, id, variant)
	if err != nil {
		return "", err
	}
	if !strings.Contains(streamURL, ".m3u8") {
		return "", fmt.Errorf("%w: %s", ErrInvalidStream, streamURL)
	}

	resp, err := s.fetcher.Fetch(ctx, streamURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetching playlist: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamStatusError{URL: streamURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading playlist: %v", ErrUpstream, err)
	}

	// Recorded only after a successful fetch; overwrites any prior entry
	// for this match.
	s.sessions.SetBaseURL(id, BaseDirURL(streamURL))

	return RewritePlaylist(string(body), id), nil
}

// Segment resolves a previously rewritten relative path against the match's
// recorded base URL and returns the origin response for streaming. The caller
// owns the response body; a non-2xx origin status is returned as-is so the
// caller can mirror it.
func (s *Service) Segment(ctx context.Context, id MatchID, relativePath string) (*http.Response, error) {
	if hasTraversal(relativePath) {
		return nil, fmt.Errorf("%w: %q", ErrBadSegmentPath, relativePath)
	}

	base, ok := s.sessions.BaseURL(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	resp, err := s.fetcher.Fetch(ctx, base+relativePath)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching segment: %v", ErrUpstream, err)
	}
	return resp, nil
}

// hasTraversal reports whether the path contains a parent-directory element.
// Playlist-derived tokens never do; anything that does is someone probing.
func hasTraversal(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
