package testutil

import (
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// LeafItem is one item of a synthetic leaf.
type LeafItem struct {
	Key  types.Key
	Data []byte
}

// Pointer is one key pointer of a synthetic internal node.
type Pointer struct {
	Key      types.Key
	BlockPtr types.LogicalAddr
}

// NodeOptions describes the header of a synthetic node.
type NodeOptions struct {
	NodeSize int
	Bytenr   types.LogicalAddr
	Owner    uint64
	Level    uint8
	FSID     [16]byte
}

func (o NodeOptions) header(nritems int) []byte {
	size := o.NodeSize
	if size == 0 {
		size = types.DefaultNodeSize
	}
	buf := make([]byte, size)
	copy(buf[0x20:], o.FSID[:])
	le.PutUint64(buf[0x30:], uint64(o.Bytenr))
	le.PutUint64(buf[0x38:], types.NodeFlagWritten|1<<types.NodeBackrefShift)
	le.PutUint64(buf[0x50:], 9)
	le.PutUint64(buf[0x58:], o.Owner)
	le.PutUint32(buf[0x60:], uint32(nritems))
	buf[0x64] = o.Level
	return buf
}

// BuildLeaf lays out a leaf: item headers after the node header, payloads packed
// from the end of the node towards the front.
func BuildLeaf(opts NodeOptions, items ...LeafItem) []byte {
	opts.Level = 0
	buf := opts.header(len(items))
	end := len(buf)
	for i, it := range items {
		end -= len(it.Data)
		copy(buf[end:], it.Data)

		h := buf[types.NodeHeaderSize+i*types.ItemHeaderSize:]
		PutKey(h, it.Key)
		le.PutUint32(h[0x11:], uint32(end-types.NodeHeaderSize))
		le.PutUint32(h[0x15:], uint32(len(it.Data)))
	}
	return buf
}

// BuildInternal lays out an internal node at opts.Level (at least 1).
func BuildInternal(opts NodeOptions, ptrs ...Pointer) []byte {
	if opts.Level == 0 {
		opts.Level = 1
	}
	buf := opts.header(len(ptrs))
	for i, p := range ptrs {
		kp := buf[types.NodeHeaderSize+i*types.KeyPointerSize:]
		PutKey(kp, p.Key)
		le.PutUint64(kp[0x11:], uint64(p.BlockPtr))
		le.PutUint64(kp[0x19:], 9)
	}
	return buf
}
