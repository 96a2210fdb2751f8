package mailmerge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStorage counts the lookups that reach the wrapped storage.
type countingStorage struct {
	TemplateStorage
	mu       sync.Mutex
	gets     int
	versions int
}

func (c *countingStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.TemplateStorage.Get(ctx, name)
}

func (c *countingStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	c.mu.Lock()
	c.versions++
	c.mu.Unlock()
	return c.TemplateStorage.GetVersion(ctx, name, version)
}

// fakeClock is a settable time source for cache expiry.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, config CacheConfig) (*CachedStorage, *countingStorage, *fakeClock) {
	t.Helper()
	backend := &countingStorage{TemplateStorage: NewMemoryStorage()}
	cache := NewCachedStorage(backend, config)
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	cache.now = clock.now
	return cache, backend, clock
}

func TestCachedStorage_GetCachesLatestForTTL(t *testing.T) {
	ctx := context.Background()
	cache, backend, clock := newTestCache(t, CacheConfig{TTL: time.Minute})
	require.NoError(t, backend.Save(ctx, sampleStoredTemplate("welcome")))

	first, err := cache.Get(ctx, "welcome")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets)
	assert.Equal(t, first, second)

	// Callers get copies.
	second.Template.Subject = "changed"
	third, err := cache.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Hello {{first}}", third.Template.Subject)

	clock.advance(time.Minute)
	_, err = cache.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.gets)
}

func TestCachedStorage_VersionsNeverExpire(t *testing.T) {
	ctx := context.Background()
	cache, backend, clock := newTestCache(t, CacheConfig{TTL: time.Minute})
	require.NoError(t, backend.Save(ctx, sampleStoredTemplate("welcome")))

	_, err := cache.GetVersion(ctx, "welcome", 1)
	require.NoError(t, err)
	clock.advance(24 * time.Hour)
	v1, err := cache.GetVersion(ctx, "welcome", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.versions)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, CacheStats{Entries: 1, Versions: 1}, cache.Stats())
}

func TestCachedStorage_SaveInvalidatesName(t *testing.T) {
	ctx := context.Background()
	cache, backend, _ := newTestCache(t, DefaultCacheConfig())
	require.NoError(t, cache.Save(ctx, sampleStoredTemplate("welcome")))
	require.NoError(t, cache.Save(ctx, sampleStoredTemplate("other")))

	_, err := cache.Get(ctx, "welcome")
	require.NoError(t, err)
	_, err = cache.GetVersion(ctx, "welcome", 1)
	require.NoError(t, err)
	_, err = cache.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Stats().Entries)

	second := sampleStoredTemplate("welcome")
	second.Template.Subject = "v2"
	require.NoError(t, cache.Save(ctx, second))
	assert.Equal(t, CacheStats{Entries: 1, Latest: 1}, cache.Stats())

	latest, err := cache.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.Template.Subject)
	assert.Equal(t, 3, backend.gets)
}

func TestCachedStorage_NegativeCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled", func(t *testing.T) {
		cache, backend, clock := newTestCache(t, CacheConfig{NegativeTTL: 10 * time.Second})

		_, err := cache.Get(ctx, "missing")
		assert.True(t, IsNotFound(err))
		_, err = cache.Get(ctx, "missing")
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 1, backend.gets)

		exists, err := cache.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, 1, cache.Stats().Negative)

		clock.advance(10 * time.Second)
		_, err = cache.Get(ctx, "missing")
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 2, backend.gets)
	})

	t.Run("disabled", func(t *testing.T) {
		cache, backend, _ := newTestCache(t, CacheConfig{})

		_, _ = cache.Get(ctx, "missing")
		_, _ = cache.Get(ctx, "missing")
		assert.Equal(t, 2, backend.gets)
		assert.Equal(t, 0, cache.Stats().Entries)
	})

	t.Run("save clears negative entry", func(t *testing.T) {
		cache, _, _ := newTestCache(t, CacheConfig{NegativeTTL: time.Hour})

		_, err := cache.Get(ctx, "welcome")
		require.True(t, IsNotFound(err))
		require.NoError(t, cache.Save(ctx, sampleStoredTemplate("welcome")))

		got, err := cache.Get(ctx, "welcome")
		require.NoError(t, err)
		assert.Equal(t, "welcome", got.Name)
	})
}

func TestCachedStorage_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	cache, backend, clock := newTestCache(t, CacheConfig{MaxEntries: 2})
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, backend.Save(ctx, sampleStoredTemplate(name)))
	}

	_, _ = cache.Get(ctx, "a")
	clock.advance(time.Second)
	_, _ = cache.Get(ctx, "b")
	clock.advance(time.Second)
	_, _ = cache.Get(ctx, "a") // a is now more recent than b
	clock.advance(time.Second)
	_, _ = cache.Get(ctx, "c") // evicts b
	assert.Equal(t, 3, backend.gets)

	_, _ = cache.Get(ctx, "a")
	assert.Equal(t, 3, backend.gets)
	_, _ = cache.Get(ctx, "b")
	assert.Equal(t, 4, backend.gets)
	assert.Equal(t, 2, cache.Stats().Entries)
}

func TestCachedStorage_DeleteAndInvalidateAll(t *testing.T) {
	ctx := context.Background()
	cache, backend, _ := newTestCache(t, DefaultCacheConfig())
	require.NoError(t, cache.Save(ctx, sampleStoredTemplate("welcome")))

	exists, err := cache.Exists(ctx, "welcome")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = cache.Get(ctx, "welcome")
	require.NoError(t, err)
	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Stats().Entries)

	_, err = cache.Get(ctx, "welcome")
	require.NoError(t, err)
	require.NoError(t, cache.Delete(ctx, "welcome"))
	_, err = cache.Get(ctx, "welcome")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 3, backend.gets)
}

func TestCachedStorage_PassThrough(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t, DefaultCacheConfig())
	require.NoError(t, cache.Save(ctx, sampleStoredTemplate("welcome")))
	require.NoError(t, cache.Save(ctx, sampleStoredTemplate("welcome")))

	versions, err := cache.ListVersions(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, versions)

	list, err := cache.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, storedNames(list))
}

func TestCachedStorage_Closed(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t, DefaultCacheConfig())
	require.NoError(t, cache.Close())

	_, err := cache.Get(ctx, "welcome")
	assert.Error(t, err)
	_, err = cache.Exists(ctx, "welcome")
	assert.Error(t, err)

	cache.InvalidateAll()
	assert.Equal(t, CacheStats{}, cache.Stats())
}

func TestCachedStorage_VersionKeysDoNotCollide(t *testing.T) {
	assert.NotEqual(t, versionCacheKey("a", 1), "a@v1")
	assert.NotEqual(t, versionCacheKey("a", 12), versionCacheKey("a1", 2))
}
