package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorProducesMonotonicIDs(t *testing.T) {
	gen, err := New()
	require.NoError(t, err)

	var last int64
	for i := 0; i < 100; i++ {
		id := gen.Next()
		assert.Greater(t, id, last)
		last = id
	}
}

func TestNewAssignsSequentialWorkerIDs(t *testing.T) {
	first, err := New()
	require.NoError(t, err)
	second, err := New()
	require.NoError(t, err)

	assert.Equal(t, first.WorkerID()+1, second.WorkerID())
}

func TestGeneratorsWithDifferentWorkerIDsDoNotCollide(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for i := 0; i < 50; i++ {
		id := a.Next()
		assert.False(t, seen[id])
		seen[id] = true
	}
	for i := 0; i < 50; i++ {
		id := b.Next()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
