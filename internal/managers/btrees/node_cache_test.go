package btrees

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func TestNodeCache_LRU(t *testing.T) {
	cache := NewNodeCache(2)
	a, b, c := &btrees.Node{}, &btrees.Node{}, &btrees.Node{}

	cache.Put(0x1000, a)
	cache.Put(0x2000, b)
	_, ok := cache.Get(0x1000)
	require.True(t, ok)

	cache.Put(0x3000, c)
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get(0x2000)
	assert.False(t, ok, "least recently used entry should be evicted")

	got, ok := cache.Get(0x1000)
	assert.True(t, ok)
	assert.Same(t, a, got)

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestNodeCache_PutKeepsFirst(t *testing.T) {
	cache := NewNodeCache(0)
	first, second := &btrees.Node{}, &btrees.Node{}
	cache.Put(0x1000, first)
	cache.Put(0x1000, second)

	got, _ := cache.Get(0x1000)
	assert.Same(t, first, got)
}

func TestNodeCache_GetOrLoad(t *testing.T) {
	cache := NewNodeCache(4)
	loads := 0
	node := &btrees.Node{}

	load := func() (*btrees.Node, error) {
		loads++
		return node, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrLoad(0x4000, load)
		require.NoError(t, err)
		assert.Same(t, node, got)
	}
	assert.Equal(t, 1, loads)

	failing := func() (*btrees.Node, error) {
		loads++
		return nil, types.NewDamageError("bad node")
	}
	_, err := cache.GetOrLoad(0x8000, failing)
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
	_, err = cache.GetOrLoad(0x8000, failing)
	assert.Error(t, err)
	assert.Equal(t, 3, loads, "failures are not cached")
}
