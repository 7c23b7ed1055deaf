package btrees

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/items"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var _ interfaces.NodeHeaderReader = (*Node)(nil)

// Item is one decoded leaf item. Items are compared by pointer identity when
// collected, so a leaf hands out the same *Item on every access.
type Item struct {
	Header  types.ItemHeader
	Payload types.ItemPayload
}

// Key returns the item key.
func (it *Item) Key() types.Key {
	return it.Header.Key
}

// Node is a decoded leaf or internal node. A leaf owns its Items, an internal node
// owns its Pointers; exactly one of the two is populated.
type Node struct {
	header   types.NodeHeader
	Items    []*Item
	Pointers []types.KeyPointer
}

// DecodeNode decodes the header found at the start of region and then the node body.
func DecodeNode(region []byte, endian binary.ByteOrder) (*Node, error) {
	header, err := DecodeNodeHeader(region, endian)
	if err != nil {
		return nil, err
	}
	return NewNode(header, region, endian)
}

// NewNode decodes the records of a node. region is the whole node, header included.
// Any record or payload that falls outside region is reported as structural damage
// of this node only.
func NewNode(header types.NodeHeader, region []byte, endian binary.ByteOrder) (*Node, error) {
	node := &Node{header: header}
	if header.IsLeaf() {
		if err := node.decodeLeaf(region, endian); err != nil {
			return nil, fmt.Errorf("failed to decode leaf at 0x%x: %w", uint64(header.Bytenr), err)
		}
		return node, nil
	}
	if err := node.decodeInternal(region, endian); err != nil {
		return nil, fmt.Errorf("failed to decode node at 0x%x (level %d): %w", uint64(header.Bytenr), header.Level, err)
	}
	return node, nil
}

func (n *Node) decodeLeaf(region []byte, endian binary.ByteOrder) error {
	count := int(n.header.NumItems)
	if err := checkRecordTable(count, types.ItemHeaderSize, len(region)); err != nil {
		return err
	}

	n.Items = make([]*Item, 0, count)
	for i := 0; i < count; i++ {
		off := types.NodeHeaderSize + i*types.ItemHeaderSize
		ih, err := DecodeItemHeader(region[off:], endian)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}

		start := uint64(types.NodeHeaderSize) + uint64(ih.DataOffset)
		end := start + uint64(ih.DataSize)
		if end > uint64(len(region)) {
			return types.NewDamageError("item %d payload [0x%x, 0x%x) outside node of 0x%x bytes", i, start, end, len(region))
		}

		payload, err := items.Decode(ih.Key.Type, endian, region[start:end])
		if err != nil {
			return fmt.Errorf("item %d (%d %s %d): %w", i, ih.Key.ObjectID, ih.Key.Type, ih.Key.Offset, err)
		}
		n.Items = append(n.Items, &Item{Header: ih, Payload: payload})
	}
	return nil
}

func (n *Node) decodeInternal(region []byte, endian binary.ByteOrder) error {
	count := int(n.header.NumItems)
	if err := checkRecordTable(count, types.KeyPointerSize, len(region)); err != nil {
		return err
	}

	n.Pointers = make([]types.KeyPointer, 0, count)
	for i := 0; i < count; i++ {
		kp, err := DecodeKeyPointer(region[types.NodeHeaderSize+i*types.KeyPointerSize:], endian)
		if err != nil {
			return fmt.Errorf("pointer %d: %w", i, err)
		}
		n.Pointers = append(n.Pointers, kp)
	}
	return nil
}

func checkRecordTable(count, recordSize, regionSize int) error {
	if regionSize < types.NodeHeaderSize {
		return types.NewDamageError("node region of %d bytes is smaller than its header", regionSize)
	}
	if count > (regionSize-types.NodeHeaderSize)/recordSize {
		return types.NewDamageError("item count %d does not fit a node of 0x%x bytes", count, regionSize)
	}
	return nil
}

// Header returns the decoded node header.
func (n *Node) Header() types.NodeHeader {
	return n.header
}

// Level returns the node level, zero for leaves.
func (n *Node) Level() uint8 {
	return n.header.Level
}

// ItemCount returns the number of records recorded in the header.
func (n *Node) ItemCount() uint32 {
	return n.header.NumItems
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.header.IsLeaf()
}

// Address returns the logical address recorded in the header.
func (n *Node) Address() types.LogicalAddr {
	return n.header.Bytenr
}

// Owner returns the tree the node belongs to.
func (n *Node) Owner() uint64 {
	return n.header.Owner
}

// ChildIndex returns the index of the pointer to follow for key: the rightmost
// pointer whose key is <= key, or 0 when every pointer key is greater.
func (n *Node) ChildIndex(key types.Key) int {
	idx := 0
	for i, p := range n.Pointers {
		if p.Key.Compare(key) > 0 {
			break
		}
		idx = i
	}
	return idx
}
