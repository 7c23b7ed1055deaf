package testutil

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// SysChunk is one entry of a synthetic sys chunk array.
type SysChunk struct {
	Logical uint64
	Payload []byte
}

// SuperblockOptions describes a synthetic superblock.
type SuperblockOptions struct {
	FSID       [16]byte
	DeviceID   uint64
	DeviceUUID [16]byte
	DeviceSize uint64
	NumDevices uint64
	RootTree   types.LogicalAddr
	ChunkTree  types.LogicalAddr
	RootLevel  uint8
	ChunkLevel uint8
	NodeSize   uint32
	Label      string
	SysChunks  []SysChunk
}

// BuildSuperblock encodes the SuperblockSize bytes stored at SuperblockAddr.
func BuildSuperblock(opts SuperblockOptions) []byte {
	if opts.NodeSize == 0 {
		opts.NodeSize = types.DefaultNodeSize
	}
	if opts.NumDevices == 0 {
		opts.NumDevices = 1
	}

	buf := make([]byte, types.SuperblockSize)
	copy(buf[types.SbOffFSID:], opts.FSID[:])
	le.PutUint64(buf[types.SbOffBytenr:], types.SuperblockAddr)
	copy(buf[types.SbOffMagic:], types.SuperblockMagic)
	le.PutUint64(buf[types.SbOffGeneration:], 9)
	le.PutUint64(buf[types.SbOffRoot:], uint64(opts.RootTree))
	le.PutUint64(buf[types.SbOffChunkRoot:], uint64(opts.ChunkTree))
	le.PutUint64(buf[types.SbOffTotalBytes:], opts.DeviceSize*opts.NumDevices)
	le.PutUint64(buf[types.SbOffBytesUsed:], 0x60000)
	le.PutUint64(buf[types.SbOffRootDirObjectID:], types.RootTreeDirObjectID)
	le.PutUint64(buf[types.SbOffNumDevices:], opts.NumDevices)
	le.PutUint32(buf[types.SbOffSectorSize:], 4096)
	le.PutUint32(buf[types.SbOffNodeSize:], opts.NodeSize)
	le.PutUint32(buf[types.SbOffLeafSize:], opts.NodeSize)
	le.PutUint32(buf[types.SbOffStripeSize:], 0x10000)
	le.PutUint64(buf[types.SbOffChunkRootGeneration:], 9)
	buf[types.SbOffRootLevel] = opts.RootLevel
	buf[types.SbOffChunkRootLevel] = opts.ChunkLevel

	copy(buf[types.SbOffDevItem:], DevItemPayload(opts.DeviceID, opts.DeviceSize, opts.DeviceUUID, opts.FSID))
	copy(buf[types.SbOffLabel:], opts.Label)

	pos := types.SysChunkArrayOffset
	for _, sc := range opts.SysChunks {
		PutKey(buf[pos:], types.Key{ObjectID: types.FirstChunkTreeObjectID, Type: types.ItemTypeChunkItem, Offset: sc.Logical})
		pos += types.KeySize
		pos += copy(buf[pos:], sc.Payload)
	}
	le.PutUint32(buf[types.SbOffSysChunkArraySize:], uint32(pos-types.SysChunkArrayOffset))

	return buf
}

// MemDevice is an in-memory device image.
type MemDevice struct {
	Data []byte

	// Reads counts ReadBytes calls.
	Reads int
}

// ReadBytes returns a copy of the requested range.
func (m *MemDevice) ReadBytes(offset, length uint64) ([]byte, error) {
	m.Reads++
	if offset+length > uint64(len(m.Data)) || offset+length < offset {
		return nil, fmt.Errorf("read of %d bytes at 0x%x beyond image of %d bytes", length, offset, len(m.Data))
	}
	return append([]byte(nil), m.Data[offset:offset+length]...), nil
}

// Size returns the image size.
func (m *MemDevice) Size() uint64 {
	return uint64(len(m.Data))
}

// Layout of the filesystem built by BuildFilesystem. Logical addresses map to
// physical ones at ChunkPhysical + (logical - ChunkLogical).
const (
	ImageSize     = 0x400000
	ChunkLogical  = 0x100000
	ChunkLength   = 0x100000
	ChunkPhysical = 0x200000

	ChunkTreeAddr   types.LogicalAddr = 0x100000
	RootTreeAddr    types.LogicalAddr = 0x104000
	FSTreeAddr      types.LogicalAddr = 0x108000
	ExtentTreeAddr  types.LogicalAddr = 0x10C000
	FSLeaf1Addr     types.LogicalAddr = 0x110000
	FSLeaf2Addr     types.LogicalAddr = 0x114000
	FileInode                         = 257
	SubdirInode                       = 258
	FileName                          = "hello.txt"
	SubdirName                        = "docs"
	FileSize                          = 12
	FilesystemLabel                   = "evidence"
)

// TestFSID is the filesystem id BuildFilesystem uses.
var TestFSID = [16]byte{0x5a, 0x8c, 0x21, 0x3e, 0x7d, 0x44, 0x4b, 0x10, 0x9a, 0x3b, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

// Physical returns the image offset of a logical address inside the test chunk.
func Physical(addr types.LogicalAddr) uint64 {
	return ChunkPhysical + uint64(addr) - ChunkLogical
}

// BuildFilesystem builds a one-device image: a chunk tree, a root tree listing the
// extent and FS trees, and a two-leaf FS tree holding a root directory with one file
// and one subdirectory.
func BuildFilesystem() []byte {
	img := make([]byte, ImageSize)
	chunk := ChunkItemPayload(ChunkLength, types.BlockGroupSystem|types.BlockGroupMetadata, Stripe{DeviceID: 1, Offset: ChunkPhysical})

	copy(img[types.SuperblockAddr:], BuildSuperblock(SuperblockOptions{
		FSID:       TestFSID,
		DeviceID:   1,
		DeviceUUID: [16]byte{0xd1},
		DeviceSize: ImageSize,
		RootTree:   RootTreeAddr,
		ChunkTree:  ChunkTreeAddr,
		RootLevel:  0,
		Label:      FilesystemLabel,
		SysChunks:  []SysChunk{{Logical: ChunkLogical, Payload: chunk}},
	}))

	place := func(addr types.LogicalAddr, node []byte) {
		copy(img[Physical(addr):], node)
	}

	place(ChunkTreeAddr, BuildLeaf(NodeOptions{Bytenr: ChunkTreeAddr, Owner: types.ChunkTreeObjectID, FSID: TestFSID},
		LeafItem{Key: types.Key{ObjectID: types.DevItemsObjectID, Type: types.ItemTypeDevItem, Offset: 1}, Data: DevItemPayload(1, ImageSize, [16]byte{0xd1}, TestFSID)},
		LeafItem{Key: types.Key{ObjectID: types.FirstChunkTreeObjectID, Type: types.ItemTypeChunkItem, Offset: ChunkLogical}, Data: chunk},
	))

	place(RootTreeAddr, BuildLeaf(NodeOptions{Bytenr: RootTreeAddr, Owner: types.RootTreeObjectID, FSID: TestFSID},
		LeafItem{Key: types.Key{ObjectID: types.ExtentTreeObjectID, Type: types.ItemTypeRootItem}, Data: RootItemPayload(ExtentTreeAddr, 0, false)},
		LeafItem{Key: types.Key{ObjectID: types.FSTreeObjectID, Type: types.ItemTypeRootItem}, Data: RootItemPayload(FSTreeAddr, 1, true)},
		LeafItem{Key: types.Key{ObjectID: types.RootTreeDirObjectID, Type: types.ItemTypeDirItem, Offset: 0x2ce}, Data: DirItemPayload(DirEntry{
			Location: types.Key{ObjectID: types.FSTreeObjectID, Type: types.ItemTypeRootItem, Offset: ^uint64(0)},
			Type:     types.DirEntryDirectory,
			Name:     "default",
		})},
	))

	place(ExtentTreeAddr, BuildLeaf(NodeOptions{Bytenr: ExtentTreeAddr, Owner: types.ExtentTreeObjectID, FSID: TestFSID}))

	root := uint64(types.FirstFreeObjectID)
	leaf1Key := types.Key{ObjectID: root, Type: types.ItemTypeInodeItem}
	leaf2Key := types.Key{ObjectID: root, Type: types.ItemTypeDirIndex, Offset: 2}

	place(FSTreeAddr, BuildInternal(NodeOptions{Bytenr: FSTreeAddr, Owner: types.FSTreeObjectID, Level: 1, FSID: TestFSID},
		Pointer{Key: leaf1Key, BlockPtr: FSLeaf1Addr},
		Pointer{Key: leaf2Key, BlockPtr: FSLeaf2Addr},
	))

	place(FSLeaf1Addr, BuildLeaf(NodeOptions{Bytenr: FSLeaf1Addr, Owner: types.FSTreeObjectID, FSID: TestFSID},
		LeafItem{Key: leaf1Key, Data: InodeItemPayload(0, 0o40755, 1)},
		LeafItem{Key: types.Key{ObjectID: root, Type: types.ItemTypeInodeRef, Offset: root}, Data: InodeRefPayload(0, "..")},
		LeafItem{Key: types.Key{ObjectID: root, Type: types.ItemTypeDirItem, Offset: 0x1000}, Data: DirItemPayload(DirEntry{
			Location: types.Key{ObjectID: FileInode, Type: types.ItemTypeInodeItem},
			Type:     types.DirEntryRegularFile,
			Name:     FileName,
		})},
		LeafItem{Key: types.Key{ObjectID: root, Type: types.ItemTypeDirItem, Offset: 0x2000}, Data: DirItemPayload(DirEntry{
			Location: types.Key{ObjectID: SubdirInode, Type: types.ItemTypeInodeItem},
			Type:     types.DirEntryDirectory,
			Name:     SubdirName,
		})},
	))

	place(FSLeaf2Addr, BuildLeaf(NodeOptions{Bytenr: FSLeaf2Addr, Owner: types.FSTreeObjectID, FSID: TestFSID},
		LeafItem{Key: leaf2Key, Data: DirItemPayload(DirEntry{
			Location: types.Key{ObjectID: FileInode, Type: types.ItemTypeInodeItem},
			Type:     types.DirEntryRegularFile,
			Name:     FileName,
		})},
		LeafItem{Key: types.Key{ObjectID: root, Type: types.ItemTypeDirIndex, Offset: 3}, Data: DirItemPayload(DirEntry{
			Location: types.Key{ObjectID: SubdirInode, Type: types.ItemTypeInodeItem},
			Type:     types.DirEntryDirectory,
			Name:     SubdirName,
		})},
		LeafItem{Key: types.Key{ObjectID: FileInode, Type: types.ItemTypeInodeItem}, Data: InodeItemPayload(FileSize, 0o100644, 1)},
		LeafItem{Key: types.Key{ObjectID: FileInode, Type: types.ItemTypeInodeRef, Offset: root}, Data: InodeRefPayload(2, FileName)},
		LeafItem{Key: types.Key{ObjectID: SubdirInode, Type: types.ItemTypeInodeItem}, Data: InodeItemPayload(0, 0o40755, 1)},
		LeafItem{Key: types.Key{ObjectID: SubdirInode, Type: types.ItemTypeInodeRef, Offset: root}, Data: InodeRefPayload(3, SubdirName)},
	))

	return img
}
