package services

import (
	"time"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// RootEntry is one tree recorded in the root tree
type RootEntry struct {
	ObjectID uint64
	Name     string
	Item     *types.RootItem
}

// DirChild is one entry of a directory listing
type DirChild struct {
	Inode uint64
	Name  string
	Type  types.DirEntryType

	// Index of the entry in its directory, zero when listed from DIR_ITEMs
	Index uint64

	// Set when the entry points at the root of another tree
	Subvolume bool

	// Size and ModifiedTime come from the child's inode item. They are zero when the
	// inode could not be read.
	Size         uint64
	ModifiedTime time.Time

	// Set when the child's inode item could not be read
	InodeError string
}

// DirContent is a decoded directory: its inode, the name it is linked under and
// its entries
type DirContent struct {
	Inode       uint64
	Item        *types.InodeItem
	Name        string
	ParentInode uint64
	Children    []DirChild
}

// DamageReport is a node skipped while scanning
type DamageReport struct {
	Address types.LogicalAddr
	Depth   int
	Reason  string
}
