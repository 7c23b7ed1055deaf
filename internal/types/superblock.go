package types

// Superblock (btrfs_super_block)
// Each device carries a superblock at a fixed offset. It names the pool (fsid), the
// device (embedded dev item) and the logical addresses of the tree roots.

// Superblock is the decoded subset of btrfs_super_block this tool relies on.
type Superblock struct {
	// Checksum of bytes 0x20-0x1000. Not verified.
	Checksum [ChecksumSize]byte

	// Filesystem identifier shared by every device of the pool.
	FSID Identifier

	// Physical address of this superblock copy.
	Bytenr uint64

	Flags uint64

	// Must equal SuperblockMagic.
	Magic [8]byte

	Generation uint64

	// Logical address of the root tree root.
	RootTreeAddr LogicalAddr

	// Logical address of the chunk tree root.
	ChunkTreeAddr LogicalAddr

	// Logical address of the log tree root, zero when there is none.
	LogTreeAddr LogicalAddr

	LogRootTransID  uint64
	TotalBytes      uint64
	BytesUsed       uint64
	RootDirObjectID uint64

	// Number of devices the pool was created with.
	NumDevices uint64

	SectorSize uint32
	NodeSize   uint32
	LeafSize   uint32
	StripeSize uint32

	// Number of valid bytes in SysChunkArray.
	SysChunkArraySize uint32

	ChunkRootGeneration uint64
	CompatFlags         uint64
	CompatROFlags       uint64
	IncompatFlags       uint64
	ChecksumType        uint16

	RootLevel      uint8
	ChunkRootLevel uint8
	LogRootLevel   uint8

	// Descriptor of the device this superblock was read from.
	DevItem DevItem

	// Volume label, NUL trimmed.
	Label string

	// (key, chunk item) pairs describing the SYSTEM chunks. Needed to read the chunk
	// tree itself.
	SysChunkArray []byte
}

// MagicString returns the magic as text.
func (sb *Superblock) MagicString() string {
	return string(sb.Magic[:])
}

// HasValidMagic reports whether the magic signature matches.
func (sb *Superblock) HasValidMagic() bool {
	return sb.MagicString() == SuperblockMagic
}

// Superblock layout.
const (
	SuperblockAddr       = 0x10000
	SuperblockSize       = 0x1000
	SuperblockMagic      = "_BHRfS_M"
	SysChunkArrayOffset  = 0x32B
	SysChunkArrayMaxSize = 0x800
	LabelSize            = 0x100
)

// Offsets of superblock fields.
const (
	SbOffFSID                = 0x20
	SbOffBytenr              = 0x30
	SbOffFlags               = 0x38
	SbOffMagic               = 0x40
	SbOffGeneration          = 0x48
	SbOffRoot                = 0x50
	SbOffChunkRoot           = 0x58
	SbOffLogRoot             = 0x60
	SbOffLogRootTransID      = 0x68
	SbOffTotalBytes          = 0x70
	SbOffBytesUsed           = 0x78
	SbOffRootDirObjectID     = 0x80
	SbOffNumDevices          = 0x88
	SbOffSectorSize          = 0x90
	SbOffNodeSize            = 0x94
	SbOffLeafSize            = 0x98
	SbOffStripeSize          = 0x9C
	SbOffSysChunkArraySize   = 0xA0
	SbOffChunkRootGeneration = 0xA4
	SbOffCompatFlags         = 0xAC
	SbOffCompatROFlags       = 0xB4
	SbOffIncompatFlags       = 0xBC
	SbOffChecksumType        = 0xC4
	SbOffRootLevel           = 0xC6
	SbOffChunkRootLevel      = 0xC7
	SbOffLogRootLevel        = 0xC8
	SbOffDevItem             = 0xC9
	SbOffLabel               = 0x12B
)
