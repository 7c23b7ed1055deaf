// File: internal/interfaces/btree.go
package interfaces

import "github.com/deploymenttheory/go-btrfs/internal/types"

// NodeHeaderReader provides methods for reading a decoded node header
type NodeHeaderReader interface {
	// Header returns the decoded header
	Header() types.NodeHeader

	// Level returns the level of the node, zero for leaves
	Level() uint8

	// ItemCount returns the number of records in the node
	ItemCount() uint32

	// IsLeaf checks if the node is a leaf
	IsLeaf() bool

	// Address returns the logical address recorded in the header
	Address() types.LogicalAddr

	// Owner returns the id of the tree owning the node
	Owner() uint64
}
