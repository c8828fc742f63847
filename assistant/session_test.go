package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheEntryExpired(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := CacheEntry{Value: "v", Timestamp: base}

	assert.False(t, entry.Expired(5*time.Minute, base))
	assert.False(t, entry.Expired(5*time.Minute, base.Add(5*time.Minute)))
	assert.True(t, entry.Expired(5*time.Minute, base.Add(5*time.Minute+time.Second)))
}

func TestSessionCache(t *testing.T) {
	s := NewSession("token", nil)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	s.CachePut("history", []string{"a"}, now)

	got, ok := s.CacheGet("history", now.Add(time.Minute))
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, got)

	_, ok = s.CacheGet("history", now.Add(10*time.Minute))
	assert.False(t, ok, "expired entry must not be returned")

	_, ok = s.CacheGet("missing", now)
	assert.False(t, ok)
}

func TestSessionClearCredential(t *testing.T) {
	s := NewSession("token", map[string]any{"lang": "vi"})
	now := time.Now()
	s.CachePut("history", "cached", now)

	s.ClearCredential()

	assert.Empty(t, s.Credential())
	_, ok := s.CacheGet("history", now)
	assert.False(t, ok, "cache is dropped with the credential")
	assert.Equal(t, map[string]any{"lang": "vi"}, s.Preferences())
}
