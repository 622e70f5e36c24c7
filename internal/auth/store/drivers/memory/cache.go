// Package memory is an in-process grant cache for single-node deployments
// and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
)

type entry struct {
	grant     domain.CIBACacheGrant
	expiresAt time.Time
}

// Cache implements store.GrantCache with a mutex-guarded map. Expired
// entries are dropped on access.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]entry
	index   map[string]store.ExpiredGrant
}

// NewCache returns an empty cache. A nil clock uses time.Now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		now:     now,
		entries: make(map[string]entry),
		index:   make(map[string]store.ExpiredGrant),
	}
}

func clone(g domain.CIBACacheGrant) domain.CIBACacheGrant {
	g.Scopes = slices.Clone(g.Scopes)
	g.ACRValues = slices.Clone(g.ACRValues)
	return g
}

// lookup must be called with mu held.
func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

func (c *Cache) Get(_ context.Context, key string) (domain.CIBACacheGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return domain.CIBACacheGrant{}, store.ErrNotFound
	}
	return clone(e.grant), nil
}

func (c *Cache) Put(_ context.Context, key string, ttl time.Duration, g domain.CIBACacheGrant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		return store.ErrAlreadyExists
	}
	c.entries[key] = entry{grant: clone(g), expiresAt: c.now().Add(ttl)}
	if !g.RequestStatus.IsTerminal() {
		c.index[key] = store.ExpiryRecord(g)
	}
	return nil
}

func (c *Cache) Update(_ context.Context, key string, fn func(g *domain.CIBACacheGrant) error) (domain.CIBACacheGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return domain.CIBACacheGrant{}, store.ErrNotFound
	}

	next := clone(e.grant)
	if err := fn(&next); err != nil {
		return clone(e.grant), err
	}
	next.Version = e.grant.Version + 1

	c.entries[key] = entry{grant: clone(next), expiresAt: e.expiresAt}
	if next.RequestStatus.IsTerminal() {
		delete(c.index, key)
	}
	return next, nil
}

func (c *Cache) PopExpired(_ context.Context, now time.Time, limit int) ([]store.ExpiredGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []store.ExpiredGrant
	for _, rec := range c.index {
		if rec.ExpiresAt <= now.UnixMilli() {
			due = append(due, rec)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt < due[j].ExpiresAt })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, rec := range due {
		delete(c.index, rec.Key)
	}
	return due, nil
}

func (c *Cache) Requeue(_ context.Context, rec store.ExpiredGrant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[rec.Key] = rec
	return nil
}

func (c *Cache) Ping(context.Context) error { return nil }
func (c *Cache) Close() error               { return nil }
