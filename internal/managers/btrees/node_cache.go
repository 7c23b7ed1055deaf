package btrees

import (
	"container/list"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DefaultCacheSize is the node count used when no size is configured.
const DefaultCacheSize = 1024

// NodeCache is an LRU cache of decoded nodes keyed by logical address. Concurrent
// loads of one address share a single read.
type NodeCache struct {
	entries map[types.LogicalAddr]*list.Element
	order   *list.List // front is most recently used
	max     int

	hits      int64
	misses    int64
	evictions int64

	mu    sync.Mutex
	loads singleflight.Group
}

type cacheEntry struct {
	addr types.LogicalAddr
	node *btrees.Node
}

// NewNodeCache creates a cache holding up to maxNodes nodes.
func NewNodeCache(maxNodes int) *NodeCache {
	if maxNodes <= 0 {
		maxNodes = DefaultCacheSize
	}
	return &NodeCache{
		entries: make(map[types.LogicalAddr]*list.Element),
		order:   list.New(),
		max:     maxNodes,
	}
}

// Get returns the cached node at addr.
func (c *NodeCache) Get(addr types.LogicalAddr) (*btrees.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[addr]; ok {
		c.order.MoveToFront(el)
		c.hits++
		return el.Value.(*cacheEntry).node, true
	}
	c.misses++
	return nil, false
}

func (c *NodeCache) peek(addr types.LogicalAddr) (*btrees.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[addr]; ok {
		return el.Value.(*cacheEntry).node, true
	}
	return nil, false
}

// Put stores a node. Storing an address twice keeps the first node.
func (c *NodeCache) Put(addr types.LogicalAddr, node *btrees.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[addr]; ok {
		c.order.MoveToFront(el)
		return
	}
	c.entries[addr] = c.order.PushFront(&cacheEntry{addr: addr, node: node})

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		delete(c.entries, oldest.Value.(*cacheEntry).addr)
		c.order.Remove(oldest)
		c.evictions++
	}
}

// GetOrLoad returns the cached node or calls load once, however many goroutines ask
// for addr at the same time. Failed loads are not cached.
func (c *NodeCache) GetOrLoad(addr types.LogicalAddr, load func() (*btrees.Node, error)) (*btrees.Node, error) {
	if node, ok := c.Get(addr); ok {
		return node, nil
	}

	v, err, _ := c.loads.Do(strconv.FormatUint(uint64(addr), 16), func() (any, error) {
		if node, ok := c.peek(addr); ok {
			return node, nil
		}
		node, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(addr, node)
		return node, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*btrees.Node), nil
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every cached node. Statistics are kept.
func (c *NodeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[types.LogicalAddr]*list.Element)
	c.order.Init()
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Cached    int
	Hits      int64
	Misses    int64
	HitRate   float64
	Evictions int64
}

// Stats returns current statistics.
func (c *NodeCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Cached:    c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
