// Package cache provides the in-memory permission group cache and the
// cross-instance invalidation channel for the extension registry.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/domain/identity"
)

// Constants for in-memory cache configuration
const (
	defaultGroupTTL        = 60 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// GroupCache caches permission groups by id so the access check on every
// request does not hit the store. Entries are short-lived; a stale grant is
// tolerated for at most the TTL.
type GroupCache interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.PermissionGroup, error)
	Set(ctx context.Context, group *identity.PermissionGroup, ttl time.Duration) error
	Delete(ctx context.Context, id uuid.UUID) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

// InMemoryGroupCache implements GroupCache using in-memory storage
type InMemoryGroupCache struct {
	groups  sync.Map // map[string]*groupEntry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// groupEntry wraps a cached group with expiration time
type groupEntry struct {
	group     *identity.PermissionGroup
	expiresAt time.Time
}

func (e *groupEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryGroupCacheOption is a functional option for configuring the cache
type InMemoryGroupCacheOption func(*InMemoryGroupCache)

// WithGroupTTL sets the default entry TTL
func WithGroupTTL(ttl time.Duration) InMemoryGroupCacheOption {
	return func(c *InMemoryGroupCache) {
		c.ttl = ttl
	}
}

// WithGroupCacheLogger sets the logger for the cache
func WithGroupCacheLogger(logger *zap.Logger) InMemoryGroupCacheOption {
	return func(c *InMemoryGroupCache) {
		c.logger = logger
	}
}

// NewInMemoryGroupCache creates a new in-memory permission group cache
func NewInMemoryGroupCache(opts ...InMemoryGroupCacheOption) *InMemoryGroupCache {
	cache := &InMemoryGroupCache{
		ttl:    defaultGroupTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a permission group from cache. A miss is (nil, nil).
func (c *InMemoryGroupCache) Get(_ context.Context, id uuid.UUID) (*identity.PermissionGroup, error) {
	if value, ok := c.groups.Load(id.String()); ok {
		entry := value.(*groupEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.group, nil
		}
		c.groups.Delete(id.String())
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a permission group in cache
func (c *InMemoryGroupCache) Set(_ context.Context, group *identity.PermissionGroup, ttl time.Duration) error {
	if group == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	c.groups.Store(group.ID.String(), &groupEntry{
		group:     group,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a permission group from cache
func (c *InMemoryGroupCache) Delete(_ context.Context, id uuid.UUID) error {
	c.groups.Delete(id.String())
	return nil
}

// InvalidateAll removes all cached groups
func (c *InMemoryGroupCache) InvalidateAll(_ context.Context) error {
	c.groups.Range(func(key, _ any) bool {
		c.groups.Delete(key)
		return true
	})
	c.logger.Info("invalidated permission group cache")
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryGroupCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryGroupCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries
func (c *InMemoryGroupCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("panic in group cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *InMemoryGroupCache) doCleanup() {
	var removed int
	c.groups.Range(func(key, value any) bool {
		if value.(*groupEntry).isExpired() {
			c.groups.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("cleaned up expired group cache entries", zap.Int("removed", removed))
	}
}

var _ GroupCache = (*InMemoryGroupCache)(nil)
