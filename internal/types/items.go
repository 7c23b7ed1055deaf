package types

import (
	"fmt"
	"time"
)

// ItemType is the type byte of a key. It selects how the item's payload is decoded.
type ItemType uint8

// Item types.
const (
	ItemTypeInodeItem      ItemType = 0x01
	ItemTypeInodeRef       ItemType = 0x0C
	ItemTypeInodeExtref    ItemType = 0x0D
	ItemTypeXattrItem      ItemType = 0x18
	ItemTypeOrphanItem     ItemType = 0x30
	ItemTypeDirLogItem     ItemType = 0x3C
	ItemTypeDirLogIndex    ItemType = 0x48
	ItemTypeDirItem        ItemType = 0x54
	ItemTypeDirIndex       ItemType = 0x60
	ItemTypeExtentData     ItemType = 0x6C
	ItemTypeExtentCsum     ItemType = 0x80
	ItemTypeRootItem       ItemType = 0x84
	ItemTypeRootBackref    ItemType = 0x90
	ItemTypeRootRef        ItemType = 0x9C
	ItemTypeExtentItem     ItemType = 0xA8
	ItemTypeMetadataItem   ItemType = 0xA9
	ItemTypeTreeBlockRef   ItemType = 0xB0
	ItemTypeExtentDataRef  ItemType = 0xB2
	ItemTypeSharedBlockRef ItemType = 0xB6
	ItemTypeSharedDataRef  ItemType = 0xB8
	ItemTypeBlockGroupItem ItemType = 0xC0
	ItemTypeFreeSpaceInfo  ItemType = 0xC6
	ItemTypeFreeSpaceExt   ItemType = 0xC7
	ItemTypeDevExtent      ItemType = 0xCC
	ItemTypeDevItem        ItemType = 0xD8
	ItemTypeChunkItem      ItemType = 0xE4
	ItemTypeQgroupStatus   ItemType = 0xF0
	ItemTypeDevStats       ItemType = 0xF9
	ItemTypeUUIDSubvol     ItemType = 0xFB
	ItemTypeUUIDRecvSubvol ItemType = 0xFC
	ItemTypeStringItem     ItemType = 0xFD
)

var itemTypeNames = map[ItemType]string{
	ItemTypeInodeItem:      "INODE_ITEM",
	ItemTypeInodeRef:       "INODE_REF",
	ItemTypeInodeExtref:    "INODE_EXTREF",
	ItemTypeXattrItem:      "XATTR_ITEM",
	ItemTypeOrphanItem:     "ORPHAN_ITEM",
	ItemTypeDirLogItem:     "DIR_LOG_ITEM",
	ItemTypeDirLogIndex:    "DIR_LOG_INDEX",
	ItemTypeDirItem:        "DIR_ITEM",
	ItemTypeDirIndex:       "DIR_INDEX",
	ItemTypeExtentData:     "EXTENT_DATA",
	ItemTypeExtentCsum:     "EXTENT_CSUM",
	ItemTypeRootItem:       "ROOT_ITEM",
	ItemTypeRootBackref:    "ROOT_BACKREF",
	ItemTypeRootRef:        "ROOT_REF",
	ItemTypeExtentItem:     "EXTENT_ITEM",
	ItemTypeMetadataItem:   "METADATA_ITEM",
	ItemTypeTreeBlockRef:   "TREE_BLOCK_REF",
	ItemTypeExtentDataRef:  "EXTENT_DATA_REF",
	ItemTypeSharedBlockRef: "SHARED_BLOCK_REF",
	ItemTypeSharedDataRef:  "SHARED_DATA_REF",
	ItemTypeBlockGroupItem: "BLOCK_GROUP_ITEM",
	ItemTypeFreeSpaceInfo:  "FREE_SPACE_INFO",
	ItemTypeFreeSpaceExt:   "FREE_SPACE_EXTENT",
	ItemTypeDevExtent:      "DEV_EXTENT",
	ItemTypeDevItem:        "DEV_ITEM",
	ItemTypeChunkItem:      "CHUNK_ITEM",
	ItemTypeQgroupStatus:   "QGROUP_STATUS",
	ItemTypeDevStats:       "DEV_STATS",
	ItemTypeUUIDSubvol:     "UUID_KEY_SUBVOL",
	ItemTypeUUIDRecvSubvol: "UUID_KEY_RECEIVED_SUBVOL",
	ItemTypeStringItem:     "STRING_ITEM",
}

// String returns the btrfs name of the item type.
func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN.%d", uint8(t))
}

// IsKnown reports whether the type is one btrfs defines.
func (t ItemType) IsKnown() bool {
	_, ok := itemTypeNames[t]
	return ok
}

// ItemPayload is the decoded body of a leaf item. The set of implementations is
// closed: one per decoded item type plus UnknownItem.
type ItemPayload interface {
	// PayloadType returns the item type the payload was decoded as.
	PayloadType() ItemType
}

// DirEntryType is the file type recorded in a directory entry.
type DirEntryType uint8

// Directory entry file types.
const (
	DirEntryUnknown     DirEntryType = 0
	DirEntryRegularFile DirEntryType = 1
	DirEntryDirectory   DirEntryType = 2
	DirEntryCharDevice  DirEntryType = 3
	DirEntryBlockDevice DirEntryType = 4
	DirEntryFIFO        DirEntryType = 5
	DirEntrySocket      DirEntryType = 6
	DirEntrySymlink     DirEntryType = 7
	DirEntryXattr       DirEntryType = 8
)

// String returns a short name of the entry type.
func (t DirEntryType) String() string {
	switch t {
	case DirEntryRegularFile:
		return "file"
	case DirEntryDirectory:
		return "dir"
	case DirEntryCharDevice:
		return "chrdev"
	case DirEntryBlockDevice:
		return "blkdev"
	case DirEntryFIFO:
		return "fifo"
	case DirEntrySocket:
		return "socket"
	case DirEntrySymlink:
		return "symlink"
	case DirEntryXattr:
		return "xattr"
	}
	return "unknown"
}

// DirEntry is one btrfs_dir_item record.
type DirEntry struct {
	// Key of the item the entry points at (INODE_ITEM or ROOT_ITEM).
	Location Key

	TransID uint64

	// Entry type.
	Type DirEntryType

	// Entry name.
	Name string

	// Extra data, only used by xattr entries.
	Data []byte
}

// DirItem is a DIR_ITEM payload. Several entries share one item when their name
// hashes collide.
type DirItem struct {
	Entries []DirEntry
}

// PayloadType implements ItemPayload.
func (*DirItem) PayloadType() ItemType { return ItemTypeDirItem }

// DirIndex is a DIR_INDEX payload: one entry keyed by its position in the directory.
type DirIndex struct {
	Entry DirEntry
}

// PayloadType implements ItemPayload.
func (*DirIndex) PayloadType() ItemType { return ItemTypeDirIndex }

// Timespec is a btrfs_timespec.
type Timespec struct {
	Sec  int64
	NSec uint32
}

// Time converts the timestamp to time.Time in UTC.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, int64(ts.NSec)).UTC()
}

// InodeItem is an INODE_ITEM payload (btrfs_inode_item).
type InodeItem struct {
	Generation uint64
	TransID    uint64
	Size       uint64
	NBytes     uint64
	BlockGroup uint64
	NLink      uint32
	UID        uint32
	GID        uint32
	Mode       uint32
	RDev       uint64
	Flags      uint64
	Sequence   uint64
	ATime      Timespec
	CTime      Timespec
	MTime      Timespec
	OTime      Timespec
}

// PayloadType implements ItemPayload.
func (*InodeItem) PayloadType() ItemType { return ItemTypeInodeItem }

// IsDir reports whether the mode describes a directory.
func (i *InodeItem) IsDir() bool {
	return i.Mode&0o170000 == 0o040000
}

// InodeRefEntry is one btrfs_inode_ref record.
type InodeRefEntry struct {
	// Index of the entry in the parent directory.
	Index uint64
	Name  string
}

// InodeRef is an INODE_REF payload. The key offset is the parent directory inode.
type InodeRef struct {
	Refs []InodeRefEntry
}

// PayloadType implements ItemPayload.
func (*InodeRef) PayloadType() ItemType { return ItemTypeInodeRef }

// RootItem is a ROOT_ITEM payload describing one tree.
type RootItem struct {
	Inode        InodeItem
	Generation   uint64
	RootDirID    uint64
	Bytenr       LogicalAddr
	ByteLimit    uint64
	BytesUsed    uint64
	LastSnapshot uint64
	Flags        uint64
	Refs         uint32
	DropProgress Key
	DropLevel    uint8
	Level        uint8

	// Set when the on-disk item carries the extended (v2) layout.
	HasExtended  bool
	GenerationV2 uint64
	UUID         Identifier
	ParentUUID   Identifier
	ReceivedUUID Identifier
	CTime        Timespec
	OTime        Timespec
}

// PayloadType implements ItemPayload.
func (*RootItem) PayloadType() ItemType { return ItemTypeRootItem }

// Root item flags.
const (
	RootSubvolReadOnly uint64 = 1 << 0
)

// DevItem describes one device of the pool (btrfs_dev_item).
type DevItem struct {
	DeviceID    uint64
	TotalBytes  uint64
	BytesUsed   uint64
	IOAlign     uint32
	IOWidth     uint32
	SectorSize  uint32
	Type        uint64
	Generation  uint64
	StartOffset uint64
	DevGroup    uint32
	SeekSpeed   uint8
	Bandwidth   uint8
	DeviceUUID  Identifier
	FSID        Identifier
}

// PayloadType implements ItemPayload.
func (*DevItem) PayloadType() ItemType { return ItemTypeDevItem }

// Stripe is one physical placement of a chunk.
type Stripe struct {
	DeviceID   uint64
	Offset     uint64
	DeviceUUID Identifier
}

// ChunkItem maps the logical range starting at its key offset to stripes.
type ChunkItem struct {
	Length     uint64
	Owner      uint64
	StripeLen  uint64
	Type       uint64
	IOAlign    uint32
	IOWidth    uint32
	SectorSize uint32
	NumStripes uint16
	SubStripes uint16
	Stripes    []Stripe
}

// PayloadType implements ItemPayload.
func (*ChunkItem) PayloadType() ItemType { return ItemTypeChunkItem }

// UnknownItem keeps the raw bytes of an item type that has no decoder.
type UnknownItem struct {
	Type ItemType
	Raw  []byte
}

// PayloadType implements ItemPayload.
func (u *UnknownItem) PayloadType() ItemType { return u.Type }

// Payload layout sizes.
const (
	DirItemHeaderSize   = 0x1E
	InodeItemSize       = 0xA0
	InodeRefHeaderSize  = 0x0A
	RootItemLegacySize  = 0xEF
	RootItemSize        = 0x1B7
	DevItemSize         = 0x62
	ChunkItemHeaderSize = 0x30
	StripeSize          = 0x20
	TimespecSize        = 0x0C
)

// Block group / chunk type flags.
const (
	BlockGroupData     uint64 = 1 << 0
	BlockGroupSystem   uint64 = 1 << 1
	BlockGroupMetadata uint64 = 1 << 2
	BlockGroupRAID0    uint64 = 1 << 3
	BlockGroupRAID1    uint64 = 1 << 4
	BlockGroupDUP      uint64 = 1 << 5
	BlockGroupRAID10   uint64 = 1 << 6
	BlockGroupRAID5    uint64 = 1 << 7
	BlockGroupRAID6    uint64 = 1 << 8
	BlockGroupRAID1C3  uint64 = 1 << 9
	BlockGroupRAID1C4  uint64 = 1 << 10
)
