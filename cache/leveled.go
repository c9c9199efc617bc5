package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Key identifies either a single cache entry (Exact) or a whole family of
// entries sharing a template (Pattern). Exactly one of the two is set.
type Key struct {
	Exact   string
	Pattern *PatternKey
}

// ExactKey builds a Key naming a single concrete cache entry.
func ExactKey(key string) Key {
	return Key{Exact: key}
}

// PatternOf builds a Key naming one instance of a template family.
func PatternOf(template string, values ...string) Key {
	return Key{Pattern: &PatternKey{Template: template, Values: values}}
}

// String renders the concrete cache key this Key currently names.
func (k Key) String() string {
	if k.Pattern != nil {
		return k.Pattern.Materialize()
	}
	return k.Exact
}

// IsPattern reports whether k names a template family rather than a single
// exact entry.
func (k Key) IsPattern() bool {
	return k.Pattern != nil
}

// LeveledCache composes the local byte-weighted LRU with a remote KV tier
// and a pattern registry, giving callers read-through Get/Save/Invalidate
// over both tiers at once. TTL lives only on the remote tier; the local
// tier is a pure recency cache with no expiry of its own.
type LeveledCache struct {
	local    *LocalCache
	remote   RemoteCache
	registry *PatternRegistry
}

// NewLeveledCache assembles the two tiers and the pattern registry into one
// facade.
func NewLeveledCache(local *LocalCache, remote RemoteCache, registry *PatternRegistry) *LeveledCache {
	return &LeveledCache{local: local, remote: remote, registry: registry}
}

// Get checks the local tier first, then the remote tier, repopulating the
// local tier on a remote hit. The second return value is false on a miss
// in both tiers and true whenever bytes were found. A remote-tier failure
// is treated the same as a miss, so a cache outage never fails a read;
// the returned error is always nil.
func (c *LeveledCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := c.local.Get(key); ok {
		return v, true, nil
	}

	v, err := c.remote.Get(ctx, key)
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, nil
	}

	c.local.Set(key, v)
	return v, true, nil
}

// Save writes value to both tiers under key, with ttl applying to the
// remote tier only. For a Pattern key, the materialized key is also
// recorded in the pattern registry so a later family invalidation can find
// it without scanning the remote store.
func (c *LeveledCache) Save(ctx context.Context, key Key, value []byte, ttl time.Duration) error {
	materialized := key.String()

	if key.IsPattern() {
		c.registry.Record(key.Pattern.Template, materialized)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.remote.Set(gctx, materialized, value, ttl)
	})
	g.Go(func() error {
		c.local.Set(materialized, value)
		return nil
	})
	return g.Wait()
}

// Invalidate drops key from both tiers. For an Exact key this is a single
// concurrent remote-delete/local-invalidate pair. For a Pattern key it
// fans out over every concrete key the registry has recorded under that
// template, then clears the registry entry so it cannot grow unbounded
// across repeated invalidations of the same family.
func (c *LeveledCache) Invalidate(ctx context.Context, key Key) error {
	if !key.IsPattern() {
		return c.invalidateOne(ctx, key.Exact)
	}

	template := key.Pattern.Template
	keys := c.registry.Keys(template)

	g, gctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			return c.invalidateOne(gctx, k)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.registry.Clear(template)
	return nil
}

func (c *LeveledCache) invalidateOne(ctx context.Context, key string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.remote.Delete(gctx, key)
	})
	g.Go(func() error {
		c.local.Invalidate(key)
		return nil
	})
	return g.Wait()
}
