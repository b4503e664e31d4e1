package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrMatchNotFound is returned when the catalog has no match with the
	// requested id.
	ErrMatchNotFound = errors.New("match not found")

	// ErrVariantNotFound is returned when a match does not offer the
	// requested CDN variant.
	ErrVariantNotFound = errors.New("stream variant not found")

	// ErrInvalidStream is returned when a variant URL exists but does not
	// look like an HLS playlist.
	ErrInvalidStream = errors.New("stream URL is not an HLS playlist")

	// ErrSessionNotFound is returned when a segment is requested for a match
	// whose master playlist has never been relayed.
	ErrSessionNotFound = errors.New("no relay session for match")

	// ErrBadSegmentPath is returned when a segment path contains a
	// parent-directory traversal element.
	ErrBadSegmentPath = errors.New("segment path rejected")

	// ErrUpstream covers transport-level failures and timeouts talking to
	// the feed or the origin CDN.
	ErrUpstream = errors.New("upstream request failed")

	// ErrMalformedFeed is returned when the feed body is not valid JSON.
	ErrMalformedFeed = errors.New("upstream feed is not valid JSON")
)

// UpstreamStatusError reports a non-2xx response from the origin CDN for a
// playlist or segment, so callers can mirror or translate the origin status
// code. Feed failures are reported as ErrUpstream instead.
type UpstreamStatusError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}
