package types

// Metadata B-tree (btrfs_header, btrfs_disk_key, btrfs_item, btrfs_key_ptr)
// Every tree in btrfs is built from nodes that share one header layout. Leaves carry
// item headers followed by a shared data area, internal nodes carry key pointers.

// LogicalAddr is an address in the filesystem's virtual address space.
// It must be translated through the chunk map before any image read.
type LogicalAddr uint64

// PhysicalAddr locates bytes on one device of the pool.
type PhysicalAddr struct {
	// The device that holds the bytes.
	DeviceID uint64

	// Absolute byte offset inside that device's image, the device start offset
	// included.
	Offset uint64
}

// Key identifies an item. Keys order every item of a tree lexicographically on
// (ObjectID, Type, Offset).
type Key struct {
	// The object the item belongs to (inode number, tree id, device id...).
	ObjectID uint64

	// The item type. Selects the payload decoder.
	Type ItemType

	// Type dependent. For chunk items this is the logical start of the chunk.
	Offset uint64
}

// Compare returns -1, 0 or 1 ordering k against other on (ObjectID, Type, Offset).
func (k Key) Compare(other Key) int {
	switch {
	case k.ObjectID < other.ObjectID:
		return -1
	case k.ObjectID > other.ObjectID:
		return 1
	case k.Type < other.Type:
		return -1
	case k.Type > other.Type:
		return 1
	case k.Offset < other.Offset:
		return -1
	case k.Offset > other.Offset:
		return 1
	}
	return 0
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// NodeHeader is the header shared by leaf and internal nodes (btrfs_header).
type NodeHeader struct {
	// Checksum of everything after this field.
	Checksum [ChecksumSize]byte

	// Filesystem identifier (or metadata uuid) the node belongs to.
	FSID Identifier

	// Logical address of this node. Must match the address it was read from.
	Bytenr LogicalAddr

	// Header flags and backref revision.
	Flags uint64

	// Identifier of the chunk tree.
	ChunkTreeUUID Identifier

	// Transaction generation that wrote the node.
	Generation uint64

	// The tree that owns this node.
	Owner uint64

	// Number of item headers (leaf) or key pointers (internal node).
	NumItems uint32

	// Zero for leaves, the height above the leaves otherwise.
	Level uint8
}

// IsLeaf reports whether the header describes a leaf.
func (h NodeHeader) IsLeaf() bool {
	return h.Level == 0
}

// ItemHeader locates one item's payload inside a leaf (btrfs_item).
type ItemHeader struct {
	Key Key

	// Offset of the payload, counted from the end of the node header.
	DataOffset uint32

	// Length of the payload in bytes.
	DataSize uint32
}

// KeyPointer references a child node from an internal node (btrfs_key_ptr).
type KeyPointer struct {
	// Lowest key stored in the child subtree.
	Key Key

	// Logical address of the child node.
	BlockPtr LogicalAddr

	// Generation the child was written in.
	Generation uint64
}

// Node layout sizes.
const (
	ChecksumSize     = 0x20
	NodeHeaderSize   = 0x65
	KeySize          = 0x11
	ItemHeaderSize   = 0x19
	KeyPointerSize   = 0x21
	MaxTreeLevel     = 8
	DefaultNodeSize  = 0x4000
	UUIDSize         = 0x10
	NodeFlagWritten  = 1 << 0
	NodeFlagReloc    = 1 << 1
	NodeBackrefShift = 56
)

// Well-known tree and object identifiers.
const (
	RootTreeObjectID       uint64 = 1
	ExtentTreeObjectID     uint64 = 2
	ChunkTreeObjectID      uint64 = 3
	DevTreeObjectID        uint64 = 4
	FSTreeObjectID         uint64 = 5
	RootTreeDirObjectID    uint64 = 6
	CsumTreeObjectID       uint64 = 7
	QuotaTreeObjectID      uint64 = 8
	UUIDTreeObjectID       uint64 = 9
	FreeSpaceTreeObjectID  uint64 = 10
	DevItemsObjectID       uint64 = 1
	FirstChunkTreeObjectID uint64 = 256
	FirstFreeObjectID      uint64 = 256
)

// TreeName returns a readable name for a well-known tree id.
func TreeName(id uint64) string {
	switch id {
	case RootTreeObjectID:
		return "ROOT_TREE"
	case ExtentTreeObjectID:
		return "EXTENT_TREE"
	case ChunkTreeObjectID:
		return "CHUNK_TREE"
	case DevTreeObjectID:
		return "DEV_TREE"
	case FSTreeObjectID:
		return "FS_TREE"
	case RootTreeDirObjectID:
		return "ROOT_TREE_DIR"
	case CsumTreeObjectID:
		return "CSUM_TREE"
	case QuotaTreeObjectID:
		return "QUOTA_TREE"
	case UUIDTreeObjectID:
		return "UUID_TREE"
	case FreeSpaceTreeObjectID:
		return "FREE_SPACE_TREE"
	}
	if id >= FirstFreeObjectID {
		return "SUBVOLUME"
	}
	return "UNKNOWN_TREE"
}
