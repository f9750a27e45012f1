package channels

import (
	"context"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type cacheEntry struct {
	profile models.ChannelProfile
	expires time.Time
}

// CachingProvider wraps another ProfileProvider with a TTL-based in-memory
// cache. Entries are keyed per viewer because IsSubscribed differs between
// viewers; a profile may be stale for at most the TTL.
type CachingProvider struct {
	base ProfileProvider
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a ProfileProvider that caches lookups for the provided TTL.
func NewCachingProvider(base ProfileProvider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Profile returns a cached profile when available, otherwise it delegates to
// the underlying provider and stores the result.
func (c *CachingProvider) Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	key := username + "|" + viewerID
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	profile, err := c.base.Profile(ctx, username, viewerID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	c.mu.Lock()
	c.items[key] = cacheEntry{profile: profile, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return profile, nil
}
