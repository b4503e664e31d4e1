package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCatalogTTL bounds how long a fetched match list is served before the
// next request triggers a refresh.
const DefaultCatalogTTL = 30 * time.Second

const snapshotKey = "snapshot"

// Catalog serves the most recently fetched match list, refreshing from the
// feed when the cached snapshot has expired. Concurrent requests arriving in
// the stale window may each fetch the feed; last write wins and every fetch
// builds a self-consistent snapshot, so the duplication is only wasted
// bandwidth.
type Catalog struct {
	fetcher   Fetcher
	feedURL   string
	cache     *gocache.Cache
	onRefresh func()
}

// NewCatalog returns a catalog backed by fetcher and the given feed URL.
// If ttl <= 0, DefaultCatalogTTL is used.
func NewCatalog(fetcher Fetcher, feedURL string, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{
		fetcher: fetcher,
		feedURL: feedURL,
		cache:   gocache.New(ttl, 10*time.Minute),
	}
}

// OnRefresh registers a hook called after each successful feed fetch.
// Used to count refreshes in metrics; may be nil.
func (c *Catalog) OnRefresh(fn func()) {
	c.onRefresh = fn
}

// Snapshot returns the current snapshot, fetching the feed first if the
// cached one has expired.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	if v, ok := c.cache.Get(snapshotKey); ok {
		return v.(*Snapshot), nil
	}
	return c.refresh(ctx)
}

// Cached returns the snapshot currently in cache without triggering a fetch.
func (c *Catalog) Cached() (*Snapshot, bool) {
	v, ok := c.cache.Get(snapshotKey)
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// Match returns the match with the given id from the current snapshot.
func (c *Catalog) Match(ctx context.Context, id MatchID) (Match, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return Match{}, err
	}
	for _, m := range snap.Matches {
		if m.ID == id {
			return m, nil
		}
	}
	return Match{}, ErrMatchNotFound
}

// StreamURL resolves the playlist URL for a match and CDN variant. A match
// without the variant yields ErrVariantNotFound; whether the URL is usable is
// checked later by the relay.
func (c *Catalog) StreamURL(ctx context.Context, id MatchID, variant Variant) (string, error) {
	m, err := c.Match(ctx, id)
	if err != nil {
		return "", err
	}
	u, ok := m.Streams[variant]
	if !ok || u == "" {
		return "", ErrVariantNotFound
	}
	return u, nil
}

func (c *Catalog) refresh(ctx context.Context) (*Snapshot, error) {
	resp, err := c.fetcher.Fetch(ctx, c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching feed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	// A feed outage is an upstream fault, not an origin stream response;
	// callers must never mistake it for a missing or rejected stream.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: feed %s returned status %d", ErrUpstream, c.feedURL, resp.StatusCode)
	}

	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	snap := buildSnapshot(payload, time.Now().UTC())
	c.cache.Set(snapshotKey, snap, gocache.DefaultExpiration)
	if c.onRefresh != nil {
		c.onRefresh()
	}
	return snap, nil
}

// buildSnapshot normalizes the feed payload and computes the aggregates in
// the same pass, so counts always agree with the match list.
func buildSnapshot(payload feedPayload, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{FetchedAt: fetchedAt}
	seen := make(map[string]bool)
	for _, fm := range payload.Matches {
		m := normalizeMatch(fm)
		snap.Matches = append(snap.Matches, m)
		snap.TotalMatches++
		switch m.Status {
		case StatusLive:
			snap.LiveMatches++
		case StatusNotStarted:
			snap.UpcomingMatches++
		}
		if m.Category != "" && !seen[m.Category] {
			seen[m.Category] = true
			snap.Categories = append(snap.Categories, m.Category)
		}
	}
	sort.Strings(snap.Categories)
	return snap
}

func normalizeMatch(fm feedMatch) Match {
	m := Match{
		ID:       MatchID(fm.MatchID),
		Status:   fm.Status,
		Category: fm.Category,
		Streams:  make(StreamSet),
	}
	for _, team := range []string{fm.Team1, fm.Team2} {
		if team != "" {
			m.Teams = append(m.Teams, team)
		}
	}
	urls := map[Variant]string{
		VariantAdFree:  fm.AdFree,
		VariantDAI:     fm.DAI,
		VariantPrimary: fm.Stream,
		VariantAkamai:  fm.Akamai,
		VariantFastly:  fm.Fastly,
		VariantHindi:   fm.Hindi,
	}
	for _, v := range Variants {
		if urls[v] != "" {
			m.Streams[v] = urls[v]
			m.Variants = append(m.Variants, v)
		}
	}
	return m
}
