package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeveledCache(t *testing.T) (*LeveledCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	local := NewLocalCache(1 << 20)
	remote := NewRedisCache(client)
	registry := NewPatternRegistry()

	return NewLeveledCache(local, remote, registry), mr
}

func TestLeveledCacheMissThenHit(t *testing.T) {
	c, _ := newTestLeveledCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "users_id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Save(ctx, ExactKey("users_id"), []byte("[1,2,3]"), 300*time.Second))

	v, ok, err := c.Get(ctx, "users_id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("[1,2,3]"), v)
}

func TestLeveledCacheRemoteHitRepopulatesLocalTier(t *testing.T) {
	c, mr := newTestLeveledCache(t)
	ctx := context.Background()

	// Bypass Save and write straight to the remote tier, simulating a
	// value cached by another process instance.
	require.NoError(t, mr.Set("total_events", "42"))
	mr.SetTTL("total_events", time.Minute)

	v, ok, err := c.Get(ctx, "total_events")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", string(v))

	// The local tier should now serve it even after the remote key expires.
	mr.FastForward(time.Hour)
	v, ok, err = c.Get(ctx, "total_events")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", string(v))
}

func TestLeveledCacheInvalidateExactKey(t *testing.T) {
	c, _ := newTestLeveledCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, ExactKey("user_events_7"), []byte("[]"), 300*time.Second))
	require.NoError(t, c.Invalidate(ctx, ExactKey("user_events_7")))

	_, ok, err := c.Get(ctx, "user_events_7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeveledCacheInvalidatePatternDropsEveryMaterializedKey(t *testing.T) {
	c, _ := newTestLeveledCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, PatternOf("page_{}_{}", "1", "50"), []byte("a"), 300*time.Second))
	require.NoError(t, c.Save(ctx, PatternOf("page_{}_{}", "2", "50"), []byte("b"), 300*time.Second))

	require.NoError(t, c.Invalidate(ctx, PatternOf("page_{}_{}")))

	_, ok, err := c.Get(ctx, "page_1_50")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "page_2_50")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, c.registry.Keys("page_{}_{}"))
}
