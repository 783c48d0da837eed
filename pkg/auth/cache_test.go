package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *SessionCache {
	t.Helper()
	return NewSessionCache(filepath.Join(t.TempDir(), "session_cache.json"), ttl, nil)
}

func TestSessionCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)

	cookies := map[string]string{"_session_id": "abc", "remember_token": "xyz"}
	require.NoError(t, cache.Save(cookies))

	loaded, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, cookies, loaded)
}

func TestSessionCacheMissingFile(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestSessionCacheExpiredRecordDeleted(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Save(map[string]string{"_session_id": "abc"}))

	// Age the record past the TTL
	cache.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, ok := cache.Load()
	assert.False(t, ok)

	_, err := os.Stat(cache.path)
	assert.True(t, os.IsNotExist(err), "expired cache file must be deleted")
}

func TestSessionCacheWithinTTL(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Save(map[string]string{"_session_id": "abc"}))

	cache.now = func() time.Time { return time.Now().Add(23 * time.Hour) }

	_, ok := cache.Load()
	assert.True(t, ok)
}

func TestSessionCacheCorruptRecordDeleted(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, os.WriteFile(cache.path, []byte("{not json"), 0600))

	_, ok := cache.Load()
	assert.False(t, ok)

	_, err := os.Stat(cache.path)
	assert.True(t, os.IsNotExist(err), "corrupt cache file must be deleted")
}

func TestSessionCacheMissingCreatedAt(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, os.WriteFile(cache.path, []byte(`{"cookies":{"a":"b"}}`), 0600))

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestSessionCacheSaveOverwrites(t *testing.T) {
	cache := newTestCache(t, 24*time.Hour)
	require.NoError(t, cache.Save(map[string]string{"_session_id": "old"}))
	require.NoError(t, cache.Save(map[string]string{"_session_id": "new"}))

	loaded, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, "new", loaded["_session_id"])
}
