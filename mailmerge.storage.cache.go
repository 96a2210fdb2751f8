package mailmerge

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// CachedStorage wraps a TemplateStorage and caches template lookups.
//
// The latest version of a name is cached for TTL, since a Save through
// another client can supersede it. A specific version never changes once
// saved, so GetVersion results stay cached until the name is invalidated
// or evicted. Lookups that found nothing are cached for NegativeTTL.
type CachedStorage struct {
	storage TemplateStorage
	config  CacheConfig
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
	closed  bool
}

// CacheConfig configures a CachedStorage.
type CacheConfig struct {
	// TTL bounds how long the latest version of a name is served from cache.
	TTL time.Duration

	// MaxEntries caps the number of cached lookups. The least recently used
	// entry is evicted when it is reached.
	MaxEntries int

	// NegativeTTL bounds how long a not found result is cached. Zero
	// disables negative caching.
	NegativeTTL time.Duration
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:         CacheDefaultTTL,
		MaxEntries:  CacheDefaultMaxEntries,
		NegativeTTL: CacheDefaultNegativeTTL,
	}
}

// CacheStats reports the content of the cache.
type CacheStats struct {
	Entries  int
	Latest   int
	Versions int
	Negative int
}

type cacheEntry struct {
	name       string
	template   *StoredTemplate
	pinned     bool // a specific version; immune to TTL
	notFound   error
	cachedAt   time.Time
	accessedAt time.Time
}

// NewCachedStorage wraps storage. Zero fields of config take their defaults.
func NewCachedStorage(storage TemplateStorage, config CacheConfig) *CachedStorage {
	if config.TTL <= 0 {
		config.TTL = CacheDefaultTTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = CacheDefaultMaxEntries
	}
	return &CachedStorage{
		storage: storage,
		config:  config,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the latest version of name, from cache when fresh.
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	return s.lookup(ctx, name, name, false, func() (*StoredTemplate, error) {
		return s.storage.Get(ctx, name)
	})
}

// GetVersion returns a specific version, from cache when present.
func (s *CachedStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	return s.lookup(ctx, versionCacheKey(name, version), name, true, func() (*StoredTemplate, error) {
		return s.storage.GetVersion(ctx, name, version)
	})
}

func (s *CachedStorage) lookup(ctx context.Context, key, name string, pinned bool, load func() (*StoredTemplate, error)) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.entries[key]; ok && s.fresh(entry) {
		entry.accessedAt = s.now()
		tmpl, notFound := entry.template, entry.notFound
		s.mu.Unlock()
		if notFound != nil {
			return nil, notFound
		}
		return copyStoredTemplate(tmpl), nil
	}
	s.mu.Unlock()

	tmpl, err := load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, NewStorageClosedError()
	}

	switch {
	case err == nil:
		s.add(key, &cacheEntry{name: name, template: copyStoredTemplate(tmpl), pinned: pinned})
		return tmpl, nil
	case IsNotFound(err) && s.config.NegativeTTL > 0:
		s.add(key, &cacheEntry{name: name, notFound: err})
	}
	return nil, err
}

// Save stores tmpl and invalidates every cached lookup of its name.
func (s *CachedStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := s.storage.Save(ctx, tmpl); err != nil {
		return err
	}
	s.Invalidate(tmpl.Name)
	return nil
}

// Delete removes a template and invalidates every cached lookup of its name.
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List is not cached.
func (s *CachedStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	return s.storage.List(ctx, query)
}

// Exists answers from a fresh cached Get when there is one.
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.entries[name]; ok && s.fresh(entry) {
		s.mu.Unlock()
		return entry.notFound == nil, nil
	}
	s.mu.Unlock()

	return s.storage.Exists(ctx, name)
}

// ListVersions is not cached.
func (s *CachedStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	return s.storage.ListVersions(ctx, name)
}

// Close drops the cache and closes the wrapped storage.
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.entries = nil
	s.mu.Unlock()

	return s.storage.Close()
}

// Invalidate drops every cached lookup of name.
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.name == name {
			delete(s.entries, key)
		}
	}
}

// InvalidateAll clears the cache.
func (s *CachedStorage) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.entries = make(map[string]*cacheEntry)
	}
}

// Stats counts the fresh entries of the cache.
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats CacheStats
	for _, entry := range s.entries {
		if !s.fresh(entry) {
			continue
		}
		stats.Entries++
		switch {
		case entry.notFound != nil:
			stats.Negative++
		case entry.pinned:
			stats.Versions++
		default:
			stats.Latest++
		}
	}
	return stats
}

// fresh reports whether entry may still be served. Caller holds mu.
func (s *CachedStorage) fresh(entry *cacheEntry) bool {
	switch {
	case entry.notFound != nil:
		return s.now().Sub(entry.cachedAt) < s.config.NegativeTTL
	case entry.pinned:
		return true
	default:
		return s.now().Sub(entry.cachedAt) < s.config.TTL
	}
}

// add stores entry under key, evicting the least recently used entry when
// the cache is full. Caller holds mu.
func (s *CachedStorage) add(key string, entry *cacheEntry) {
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.config.MaxEntries {
		s.evictLeastRecentlyUsed()
	}
	now := s.now()
	entry.cachedAt = now
	entry.accessedAt = now
	s.entries[key] = entry
}

func (s *CachedStorage) evictLeastRecentlyUsed() {
	var (
		oldestKey string
		oldest    *cacheEntry
	)
	for key, entry := range s.entries {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest != nil {
		delete(s.entries, oldestKey)
	}
}

func versionCacheKey(name string, version int) string {
	return name + CacheVersionKeySeparator + strconv.Itoa(version)
}
