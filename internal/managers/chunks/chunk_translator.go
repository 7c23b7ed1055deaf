package chunks

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Mapping is one chunk: a logical range and where it is stored.
type Mapping struct {
	Start types.LogicalAddr
	Chunk *types.ChunkItem
}

// End returns the first logical address past the chunk.
func (m Mapping) End() types.LogicalAddr {
	return m.Start + types.LogicalAddr(m.Chunk.Length)
}

// Overflows reports whether the chunk length runs past the end of the address space.
func (m Mapping) Overflows() bool {
	return m.End() < m.Start
}

// ChunkTranslator maps logical addresses to physical ones. It is safe for concurrent
// Translate calls once loaded.
type ChunkTranslator struct {
	devices interfaces.DeviceLocator

	mu       sync.RWMutex
	mappings []Mapping
}

// NewChunkTranslator creates an empty translator resolving devices through devices.
func NewChunkTranslator(devices interfaces.DeviceLocator) *ChunkTranslator {
	return &ChunkTranslator{devices: devices}
}

// Insert records a chunk item keyed by its logical start. A later insert for the
// same start replaces the earlier one.
func (ct *ChunkTranslator) Insert(key types.Key, chunk *types.ChunkItem) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	start := types.LogicalAddr(key.Offset)
	i := sort.Search(len(ct.mappings), func(i int) bool { return ct.mappings[i].Start >= start })
	if i < len(ct.mappings) && ct.mappings[i].Start == start {
		ct.mappings[i].Chunk = chunk
		return
	}
	ct.mappings = append(ct.mappings, Mapping{})
	copy(ct.mappings[i+1:], ct.mappings[i:])
	ct.mappings[i] = Mapping{Start: start, Chunk: chunk}
}

// LoadSystemChunks seeds the translator from the superblock's sys chunk array.
func (ct *ChunkTranslator) LoadSystemChunks(sb *types.Superblock, endian binary.ByteOrder) error {
	chunks, err := superblock.SystemChunks(sb, endian)
	if err != nil {
		return fmt.Errorf("failed to load system chunks: %w", err)
	}
	for _, c := range chunks {
		ct.Insert(c.Key, c.Chunk)
	}
	return nil
}

// LoadLeaf inserts every CHUNK_ITEM of a chunk tree leaf and returns how many it
// found.
func (ct *ChunkTranslator) LoadLeaf(leaf *btrees.Node) int {
	n := 0
	for _, it := range leaf.Items {
		chunk, ok := it.Payload.(*types.ChunkItem)
		if !ok {
			continue
		}
		ct.Insert(it.Key(), chunk)
		n++
	}
	return n
}

// Mappings returns a snapshot of the chunk map in logical order.
func (ct *ChunkTranslator) Mappings() []Mapping {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return append([]Mapping(nil), ct.mappings...)
}

// Lookup returns the mapping with the greatest start <= logical.
func (ct *ChunkTranslator) Lookup(logical types.LogicalAddr) (Mapping, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	i := sort.Search(len(ct.mappings), func(i int) bool { return ct.mappings[i].Start > logical })
	if i == 0 {
		return Mapping{}, false
	}
	return ct.mappings[i-1], true
}

// Translate returns the device and absolute image offset holding logical.
func (ct *ChunkTranslator) Translate(logical types.LogicalAddr) (types.PhysicalAddr, error) {
	m, ok := ct.Lookup(logical)
	if !ok {
		return types.PhysicalAddr{}, types.NewDamageError("no chunk maps logical address 0x%x", uint64(logical))
	}
	if m.Overflows() {
		return types.PhysicalAddr{}, types.NewDamageError("chunk at 0x%x has length 0x%x overflowing the logical address space", uint64(m.Start), m.Chunk.Length)
	}
	if logical >= m.End() {
		return types.PhysicalAddr{}, types.NewDamageError("logical address 0x%x is past chunk [0x%x, 0x%x)", uint64(logical), uint64(m.Start), uint64(m.End()))
	}

	switch len(m.Chunk.Stripes) {
	case 0:
		return types.PhysicalAddr{}, types.NewDamageError("chunk at 0x%x has no stripes", uint64(m.Start))
	case 1:
	default:
		return types.PhysicalAddr{}, types.NewUnsupportedError("chunk at 0x%x has %d stripes", uint64(m.Start), len(m.Chunk.Stripes))
	}

	stripe := m.Chunk.Stripes[0]
	delta := uint64(logical - m.Start)

	base, err := ct.devices.DeviceOffset(stripe.DeviceID)
	if err != nil {
		return types.PhysicalAddr{}, fmt.Errorf("chunk at 0x%x: %w", uint64(m.Start), err)
	}
	size, err := ct.devices.DeviceSize(stripe.DeviceID)
	if err != nil {
		return types.PhysicalAddr{}, fmt.Errorf("chunk at 0x%x: %w", uint64(m.Start), err)
	}
	if stripe.Offset >= size || delta >= size-stripe.Offset {
		return types.PhysicalAddr{}, types.NewDamageError("logical 0x%x maps to stripe offset 0x%x + 0x%x, beyond device %d size 0x%x",
			uint64(logical), stripe.Offset, delta, stripe.DeviceID, size)
	}
	offset := stripe.Offset + delta
	if base > math.MaxUint64-offset {
		return types.PhysicalAddr{}, types.NewDamageError("logical 0x%x maps to 0x%x past the end of device %d at image offset 0x%x",
			uint64(logical), offset, stripe.DeviceID, base)
	}

	return types.PhysicalAddr{DeviceID: stripe.DeviceID, Offset: base + offset}, nil
}
