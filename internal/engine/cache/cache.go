//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package cache implements the engine's decision cache.
//
// The cache memoizes authorization decisions keyed by (principal,
// resource, action) with a fixed TTL.  It exists to absorb the common
// case of a principal touching the same resource repeatedly within a
// short window; correctness is preserved by synchronous invalidation
// from the backend whenever rules, groups, or memberships change.
package cache

import (
	"sync"
	"time"

	"github.com/pagesentry/permengine/pkg/engine/model"
)

const cleanupInterval = time.Minute

// Key identifies a cached decision.
type Key struct {
	PrincipalID  string
	ResourcePath string
	Action       model.Action
}

type entry struct {
	decision  model.Decision
	expiresAt time.Time
}

// Cache is a TTL decision cache safe for concurrent use.  Expired
// entries are treated as absent on read and reaped periodically by a
// background janitor.
type Cache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[Key]entry
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a decision cache with the given TTL and starts its
// janitor goroutine.  Call [Cache.Stop] when the cache is no longer
// needed.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		ttl:    ttl,
		items:  make(map[Key]entry),
		stopCh: make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns the cached decision for the key, if present and fresh.
func (c *Cache) Get(key Key) (model.Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return model.Decision{}, false
	}
	return e.decision, true
}

// Put stores a decision under the key with the cache's TTL.
func (c *Cache) Put(key Key, decision model.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{
		decision:  decision,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// InvalidateUser drops all cached decisions for the given principal.
func (c *Cache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if key.PrincipalID == userID {
			delete(c.items, key)
		}
	}
}

// InvalidateGroup drops all cached decisions that consulted the given
// group when they were computed.
func (c *Cache) InvalidateGroup(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.items {
		for _, g := range e.decision.Groups {
			if g == groupID {
				delete(c.items, key)
				break
			}
		}
	}
}

// InvalidateAll drops every cached decision.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]entry)
}

// Len returns the number of entries currently held, including entries
// that have expired but not yet been reaped.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stop terminates the janitor goroutine.  Safe to call multiple times.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.reap()
		}
	}
}

func (c *Cache) reap() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
		}
	}
}
