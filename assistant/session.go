package assistant

import (
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// CacheEntry is one cached value with its write time.
type CacheEntry struct {
	Value     any
	Timestamp time.Time
}

// Expired is the pure expiry check; callers supply the clock.
func (e CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.Timestamp) > ttl
}

// Session carries the credential, user preferences and a small expiring
// cache. It is injected into the orchestrator instead of living in
// ambient global state.
type Session struct {
	mu          sync.Mutex
	token       string
	preferences map[string]any
	cache       map[string]CacheEntry
	ttl         time.Duration
}

func NewSession(token string, preferences map[string]any) *Session {
	return &Session{
		token:       token,
		preferences: preferences,
		cache:       make(map[string]CacheEntry),
		ttl:         defaultCacheTTL,
	}
}

func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ClearCredential drops the stored token; called on a 401.
func (s *Session) ClearCredential() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cache = make(map[string]CacheEntry)
}

func (s *Session) Preferences() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs := make(map[string]any, len(s.preferences))
	for k, v := range s.preferences {
		prefs[k] = v
	}
	return prefs
}

func (s *Session) CachePut(key string, value any, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = CacheEntry{Value: value, Timestamp: now}
}

func (s *Session) CacheGet(key string, now time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok || entry.Expired(s.ttl, now) {
		return nil, false
	}
	return entry.Value, true
}
