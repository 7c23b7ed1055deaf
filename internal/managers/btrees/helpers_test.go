package btrees

import (
	"sync"

	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// memPool serves physical reads from one in-memory image.
type memPool struct {
	mu  sync.Mutex
	dev *testutil.MemDevice
}

func (m *memPool) ReadPhysical(addr types.PhysicalAddr, length uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev.ReadBytes(addr.Offset, length)
}

func (m *memPool) reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev.Reads
}

// identity maps logical addresses to the same physical offset.
type identity struct{}

func (identity) Translate(l types.LogicalAddr) (types.PhysicalAddr, error) {
	return types.PhysicalAddr{DeviceID: 1, Offset: uint64(l)}, nil
}

// testChunk maps the single chunk of testutil.BuildFilesystem.
type testChunk struct{}

func (testChunk) Translate(l types.LogicalAddr) (types.PhysicalAddr, error) {
	if l < testutil.ChunkLogical || l >= testutil.ChunkLogical+testutil.ChunkLength {
		return types.PhysicalAddr{}, types.NewDamageError("unmapped 0x%x", uint64(l))
	}
	return types.PhysicalAddr{DeviceID: 1, Offset: testutil.Physical(l)}, nil
}

func filesystemNavigator(opts Options) (*TreeNavigator, *memPool) {
	pool := &memPool{dev: &testutil.MemDevice{Data: testutil.BuildFilesystem()}}
	return NewTreeNavigator(pool, testChunk{}, opts), pool
}

// imageBuilder places nodes at logical == physical addresses.
type imageBuilder struct {
	data []byte
}

func newImageBuilder() *imageBuilder {
	return &imageBuilder{data: make([]byte, 0x100000)}
}

func (b *imageBuilder) leaf(addr types.LogicalAddr, items ...testutil.LeafItem) {
	copy(b.data[addr:], testutil.BuildLeaf(testutil.NodeOptions{Bytenr: addr, Owner: types.FSTreeObjectID}, items...))
}

func (b *imageBuilder) internal(addr types.LogicalAddr, level uint8, ptrs ...testutil.Pointer) {
	copy(b.data[addr:], testutil.BuildInternal(testutil.NodeOptions{Bytenr: addr, Owner: types.FSTreeObjectID, Level: level}, ptrs...))
}

func (b *imageBuilder) navigator(opts Options) (*TreeNavigator, *memPool) {
	pool := &memPool{dev: &testutil.MemDevice{Data: b.data}}
	return NewTreeNavigator(pool, identity{}, opts), pool
}

func dirItem(id, offset uint64) testutil.LeafItem {
	return testutil.LeafItem{
		Key:  types.Key{ObjectID: id, Type: types.ItemTypeDirItem, Offset: offset},
		Data: testutil.DirItemPayload(testutil.DirEntry{Type: types.DirEntryRegularFile, Name: "f"}),
	}
}

func key(id uint64, t types.ItemType, offset uint64) types.Key {
	return types.Key{ObjectID: id, Type: t, Offset: offset}
}

// threeLevelTree builds a level 2 root at 0x4000 over two level 1 nodes and four
// leaves. Object 5 DIR_ITEMs span leaves 2, 3 and 4.
func threeLevelTree() *imageBuilder {
	b := newImageBuilder()
	b.leaf(0x10000, dirItem(1, 0), dirItem(2, 0))
	b.leaf(0x14000, dirItem(3, 0), dirItem(5, 1))
	b.leaf(0x18000, dirItem(5, 2), dirItem(5, 3))
	b.leaf(0x1C000, dirItem(5, 4), dirItem(8, 0))
	b.internal(0x8000, 1,
		testutil.Pointer{Key: key(1, types.ItemTypeDirItem, 0), BlockPtr: 0x10000},
		testutil.Pointer{Key: key(3, types.ItemTypeDirItem, 0), BlockPtr: 0x14000})
	b.internal(0xC000, 1,
		testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 2), BlockPtr: 0x18000},
		testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 4), BlockPtr: 0x1C000})
	b.internal(0x4000, 2,
		testutil.Pointer{Key: key(1, types.ItemTypeDirItem, 0), BlockPtr: 0x8000},
		testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 2), BlockPtr: 0xC000})
	return b
}
