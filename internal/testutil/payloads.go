// Package testutil builds synthetic btrfs structures and images for tests. Everything
// is written little endian, as btrfs stores it on disk.
package testutil

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var le = binary.LittleEndian

// PutKey writes a disk key.
func PutKey(dst []byte, key types.Key) {
	le.PutUint64(dst[0:8], key.ObjectID)
	dst[8] = byte(key.Type)
	le.PutUint64(dst[9:17], key.Offset)
}

// DirEntry is the input for DirItemPayload.
type DirEntry struct {
	Location types.Key
	Type     types.DirEntryType
	Name     string
	Data     []byte
}

// DirItemPayload encodes one or more dir entries back to back.
func DirItemPayload(entries ...DirEntry) []byte {
	var out []byte
	for _, e := range entries {
		buf := make([]byte, types.DirItemHeaderSize+len(e.Name)+len(e.Data))
		PutKey(buf[0x00:], e.Location)
		le.PutUint64(buf[0x11:], 7)
		le.PutUint16(buf[0x19:], uint16(len(e.Data)))
		le.PutUint16(buf[0x1B:], uint16(len(e.Name)))
		buf[0x1D] = byte(e.Type)
		copy(buf[types.DirItemHeaderSize:], e.Name)
		copy(buf[types.DirItemHeaderSize+len(e.Name):], e.Data)
		out = append(out, buf...)
	}
	return out
}

// InodeItemPayload encodes an inode item with the given size, mode and link count.
func InodeItemPayload(size uint64, mode, nlink uint32) []byte {
	buf := make([]byte, types.InodeItemSize)
	putInode(buf, size, mode, nlink)
	return buf
}

func putInode(buf []byte, size uint64, mode, nlink uint32) {
	le.PutUint64(buf[0x00:], 1)
	le.PutUint64(buf[0x08:], 1)
	le.PutUint64(buf[0x10:], size)
	le.PutUint64(buf[0x18:], size)
	le.PutUint32(buf[0x28:], nlink)
	le.PutUint32(buf[0x2C:], 1000)
	le.PutUint32(buf[0x30:], 1000)
	le.PutUint32(buf[0x34:], mode)
	le.PutUint64(buf[0x88:], 1700000000)
	le.PutUint32(buf[0x90:], 500)
}

// InodeRefPayload encodes one inode ref record.
func InodeRefPayload(index uint64, name string) []byte {
	buf := make([]byte, types.InodeRefHeaderSize+len(name))
	le.PutUint64(buf[0:], index)
	le.PutUint16(buf[8:], uint16(len(name)))
	copy(buf[types.InodeRefHeaderSize:], name)
	return buf
}

// RootItemPayload encodes a root item pointing at bytenr. extended selects the full
// layout with uuids and timestamps.
func RootItemPayload(bytenr types.LogicalAddr, level uint8, extended bool) []byte {
	size := types.RootItemLegacySize
	if extended {
		size = types.RootItemSize
	}
	buf := make([]byte, size)
	putInode(buf, 3, 0o40755, 1)
	le.PutUint64(buf[0xA0:], 9)
	le.PutUint64(buf[0xA8:], types.FirstFreeObjectID)
	le.PutUint64(buf[0xB0:], uint64(bytenr))
	le.PutUint64(buf[0xC0:], 0x4000)
	le.PutUint32(buf[0xD8:], 1)
	buf[0xEE] = level
	if extended {
		le.PutUint64(buf[0xEF:], 9)
		for i := 0; i < types.UUIDSize; i++ {
			buf[0xF7+i] = byte(0xA0 + i)
		}
		le.PutUint64(buf[0x153:], 1700000000)
	}
	return buf
}

// DevItemPayload encodes a dev item.
func DevItemPayload(devID, totalBytes uint64, devUUID, fsid [16]byte) []byte {
	buf := make([]byte, types.DevItemSize)
	le.PutUint64(buf[0x00:], devID)
	le.PutUint64(buf[0x08:], totalBytes)
	le.PutUint64(buf[0x10:], totalBytes/2)
	le.PutUint32(buf[0x18:], 4096)
	le.PutUint32(buf[0x1C:], 4096)
	le.PutUint32(buf[0x20:], 4096)
	copy(buf[0x42:], devUUID[:])
	copy(buf[0x52:], fsid[:])
	return buf
}

// Stripe is the input for ChunkItemPayload.
type Stripe struct {
	DeviceID uint64
	Offset   uint64
}

// ChunkItemPayload encodes a chunk item of the given length and type.
func ChunkItemPayload(length, chunkType uint64, stripes ...Stripe) []byte {
	buf := make([]byte, types.ChunkItemHeaderSize+len(stripes)*types.StripeSize)
	le.PutUint64(buf[0x00:], length)
	le.PutUint64(buf[0x08:], types.ExtentTreeObjectID)
	le.PutUint64(buf[0x10:], 0x10000)
	le.PutUint64(buf[0x18:], chunkType)
	le.PutUint32(buf[0x20:], 4096)
	le.PutUint32(buf[0x24:], 4096)
	le.PutUint32(buf[0x28:], 4096)
	le.PutUint16(buf[0x2C:], uint16(len(stripes)))
	for i, s := range stripes {
		off := types.ChunkItemHeaderSize + i*types.StripeSize
		le.PutUint64(buf[off:], s.DeviceID)
		le.PutUint64(buf[off+8:], s.Offset)
		buf[off+0x10] = byte(s.DeviceID)
	}
	return buf
}
