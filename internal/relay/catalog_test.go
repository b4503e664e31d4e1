package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fetcherFunc adapts a function to the Fetcher interface for tests.
type fetcherFunc func(ctx context.Context, url string) (*http.Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (*http.Response, error) {
	return f(ctx, url)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const sampleFeed = `{"matches":[
	{"match_id":1,"status":"LIVE","event_category":"Cricket","team_1":"AUS","team_2":"IND","adfree_stream":"https://cdn.example/a/master.m3u8","dai_stream":"https://cdn.example/d/master.m3u8"},
	{"match_id":"2","status":"NOT_STARTED","event_category":"Football","stream":"https://cdn.example/f/master.m3u8"},
	{"match_id":3,"status":"ENDED","event_category":"Cricket","hindi_stream":"https://cdn.example/h/master.m3u8"}
]}`

func newTestCatalog(t *testing.T, feed string, ttl time.Duration, calls *atomic.Int64) *Catalog {
	t.Helper()
	fetcher := fetcherFunc(func(ctx context.Context, url string) (*http.Response, error) {
		if calls != nil {
			calls.Add(1)
		}
		return jsonResponse(http.StatusOK, feed), nil
	})
	return NewCatalog(fetcher, "https://feed.example/matches", ttl)
}

func TestCatalog_Snapshot_aggregates(t *testing.T) {
	c := newTestCatalog(t, sampleFeed, time.Minute, nil)

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalMatches != 3 {
		t.Errorf("TotalMatches = %d, want 3", snap.TotalMatches)
	}
	if snap.LiveMatches != 1 {
		t.Errorf("LiveMatches = %d, want 1", snap.LiveMatches)
	}
	if snap.UpcomingMatches != 1 {
		t.Errorf("UpcomingMatches = %d, want 1", snap.UpcomingMatches)
	}
	if len(snap.Categories) != 2 || snap.Categories[0] != "Cricket" || snap.Categories[1] != "Football" {
		t.Errorf("Categories = %v, want [Cricket Football]", snap.Categories)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestCatalog_Snapshot_normalizes_numeric_and_string_ids(t *testing.T) {
	c := newTestCatalog(t, sampleFeed, time.Minute, nil)

	if _, err := c.Match(context.Background(), MatchID("1")); err != nil {
		t.Errorf("numeric feed id should normalize to \"1\": %v", err)
	}
	if _, err := c.Match(context.Background(), MatchID("2")); err != nil {
		t.Errorf("string feed id should stay \"2\": %v", err)
	}
}

func TestCatalog_Snapshot_cached_within_ttl(t *testing.T) {
	var calls atomic.Int64
	c := newTestCatalog(t, sampleFeed, time.Minute, &calls)

	first, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for i := 0; i < 10; i++ {
		snap, err := c.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		if snap != first {
			t.Fatal("cached snapshot should be the identical object")
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1 within TTL", n)
	}
}

func TestCatalog_Snapshot_refreshes_after_ttl(t *testing.T) {
	var calls atomic.Int64
	c := newTestCatalog(t, sampleFeed, 20*time.Millisecond, &calls)

	first, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	second, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot after TTL: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after TTL elapsed", n)
	}
	if !second.FetchedAt.After(first.FetchedAt) {
		t.Errorf("snapshot timestamp should advance: first=%v second=%v", first.FetchedAt, second.FetchedAt)
	}
}

func TestCatalog_Snapshot_malformed_feed(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, url string) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "<html>not json</html>"), nil
	})
	c := NewCatalog(fetcher, "https://feed.example/matches", time.Minute)

	_, err := c.Snapshot(context.Background())
	if !errors.Is(err, ErrMalformedFeed) {
		t.Errorf("expected ErrMalformedFeed, got %v", err)
	}
}

func TestCatalog_Snapshot_feed_transport_error(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, url string) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := NewCatalog(fetcher, "https://feed.example/matches", time.Minute)

	_, err := c.Snapshot(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestCatalog_Snapshot_feed_bad_status(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, url string) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, "down"), nil
	})
	c := NewCatalog(fetcher, "https://feed.example/matches", time.Minute)

	_, err := c.Snapshot(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("feed non-2xx should be ErrUpstream, got %v", err)
	}
	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		t.Errorf("feed non-2xx must not look like an origin stream response: %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the feed status: %v", err)
	}
}

func TestCatalog_StreamURL(t *testing.T) {
	c := newTestCatalog(t, sampleFeed, time.Minute, nil)
	ctx := context.Background()

	t.Run("known_variant", func(t *testing.T) {
		u, err := c.StreamURL(ctx, MatchID("1"), VariantAdFree)
		if err != nil {
			t.Fatalf("StreamURL: %v", err)
		}
		if u != "https://cdn.example/a/master.m3u8" {
			t.Errorf("StreamURL = %q", u)
		}
	})

	t.Run("missing_variant", func(t *testing.T) {
		_, err := c.StreamURL(ctx, MatchID("1"), VariantHindi)
		if !errors.Is(err, ErrVariantNotFound) {
			t.Errorf("expected ErrVariantNotFound, got %v", err)
		}
	})

	t.Run("unknown_match", func(t *testing.T) {
		_, err := c.StreamURL(ctx, MatchID("999"), VariantAdFree)
		if !errors.Is(err, ErrMatchNotFound) {
			t.Errorf("expected ErrMatchNotFound, got %v", err)
		}
	})
}

func TestCatalog_Match_variants_derived(t *testing.T) {
	c := newTestCatalog(t, sampleFeed, time.Minute, nil)

	m, err := c.Match(context.Background(), MatchID("1"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(m.Variants) != 2 || m.Variants[0] != VariantAdFree || m.Variants[1] != VariantDAI {
		t.Errorf("Variants = %v, want [adfree dai]", m.Variants)
	}
	if len(m.Teams) != 2 {
		t.Errorf("Teams = %v, want two teams", m.Teams)
	}
}

func TestCatalog_OnRefresh_hook(t *testing.T) {
	var calls atomic.Int64
	c := newTestCatalog(t, sampleFeed, time.Minute, nil)
	c.OnRefresh(func() { calls.Add(1) })

	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("refresh hook calls = %d, want 1", n)
	}
}

func TestCatalog_Cached_does_not_fetch(t *testing.T) {
	var calls atomic.Int64
	c := newTestCatalog(t, sampleFeed, time.Minute, &calls)

	if _, ok := c.Cached(); ok {
		t.Error("Cached should miss before any fetch")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("Cached must not fetch, calls = %d", n)
	}

	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, ok := c.Cached(); !ok {
		t.Error("Cached should hit after a fetch")
	}
}
