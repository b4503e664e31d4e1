package relay

import "sync"

// SessionStore records, per match, the base directory URL of the last master
// playlist successfully fetched for it. An entry is only written after a
// successful origin fetch, is overwritten on every later master-playlist
// request for the same match, and never expires.
//
// The store is keyed by match id alone: concurrent master-playlist requests
// for different variants of one match race to set the single entry, and later
// segment requests resolve against whichever variant won. Known limitation of
// the design, kept rather than re-keyed by (match, variant).
type SessionStore interface {
	BaseURL(id MatchID) (string, bool)
	SetBaseURL(id MatchID, baseURL string)

	// Len returns the number of matches with a recorded base URL. Used for
	// metrics.
	Len() int
}

// InMemorySessionStore is a concurrency-safe in-memory SessionStore.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	baseURLs map[MatchID]string
}

// NewInMemorySessionStore returns a new empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		baseURLs: make(map[MatchID]string),
	}
}

// BaseURL implements SessionStore.BaseURL.
func (s *InMemorySessionStore) BaseURL(id MatchID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.baseURLs[id]
	return u, ok
}

// SetBaseURL implements SessionStore.SetBaseURL.
func (s *InMemorySessionStore) SetBaseURL(id MatchID, baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURLs[id] = baseURL
}

// Len implements SessionStore.Len.
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.baseURLs)
}
