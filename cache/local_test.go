package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCacheGetSetRoundTrip(t *testing.T) {
	c := NewLocalCache(1024)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k1", []byte("hello"))
	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)
}

func TestLocalCacheEvictsOldestWhenOverCapacity(t *testing.T) {
	// Capacity fits two 4-byte entries but not three.
	c := NewLocalCache(8)

	c.Set("a", []byte("aaaa"))
	c.Set("b", []byte("bbbb"))
	c.Set("c", []byte("cccc"))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted to stay under the byte budget")

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	_, _, used, capacity := c.Stats()
	assert.LessOrEqual(t, used, capacity)
}

func TestLocalCacheGetRefreshesRecency(t *testing.T) {
	c := NewLocalCache(8)

	c.Set("a", []byte("aaaa"))
	c.Set("b", []byte("bbbb"))

	// Touch "a" so it is no longer the least recently used entry.
	_, _ = c.Get("a")

	c.Set("c", []byte("cccc"))

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used after a was touched, so it should be evicted instead")

	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLocalCacheInvalidate(t *testing.T) {
	c := NewLocalCache(1024)
	c.Set("k1", []byte("value"))

	c.Invalidate("k1")

	_, ok := c.Get("k1")
	assert.False(t, ok)

	_, _, used, _ := c.Stats()
	assert.Zero(t, used)
}
