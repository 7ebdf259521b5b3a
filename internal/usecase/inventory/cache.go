package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/quarrylabs/quarry/internal/domain"
)

// DefaultTTL is how long a namespace inventory stays fresh.
const DefaultTTL = 30 * time.Minute

// Snapshot is one cached namespace inventory generation.
type Snapshot struct {
	Data      []domain.NamespaceInfo
	ExpiresAt time.Time
}

// Cache is a single-slot TTL cache for the namespace inventory. The mutex is
// held across the refresh fetch, so concurrent readers at expiry trigger
// exactly one backend round trip (single-flight).
type Cache struct {
	mu   sync.Mutex
	slot *Snapshot
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a cache with the given TTL (DefaultTTL if non-positive).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now}
}

// WithClock overrides the time source (tests).
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached inventory, refreshing via fetch when the slot is
// empty or expired. The second return reports a cache hit.
func (c *Cache) Get(
	ctx context.Context,
	fetch func(ctx context.Context) ([]domain.NamespaceInfo, error),
) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil && c.now().Before(c.slot.ExpiresAt) {
		return *c.slot, true, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}

	c.slot = &Snapshot{Data: data, ExpiresAt: c.now().Add(c.ttl)}
	return *c.slot, false, nil
}

// Invalidate clears the slot unconditionally.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = nil
}
