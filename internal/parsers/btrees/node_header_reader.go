package btrees

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/items"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeNodeHeader decodes the btrfs_header at the start of a node.
func DecodeNodeHeader(data []byte, endian binary.ByteOrder) (types.NodeHeader, error) {
	if len(data) < types.NodeHeaderSize {
		return types.NodeHeader{}, types.NewDamageError("node header needs %d bytes, have %d", types.NodeHeaderSize, len(data))
	}

	h := types.NodeHeader{
		FSID:          identifiers.DecodeArray([types.UUIDSize]byte(data[0x20:0x30]), types.UUIDByteOrder),
		Bytenr:        types.LogicalAddr(endian.Uint64(data[0x30:0x38])),
		Flags:         endian.Uint64(data[0x38:0x40]),
		ChunkTreeUUID: identifiers.DecodeArray([types.UUIDSize]byte(data[0x40:0x50]), types.UUIDByteOrder),
		Generation:    endian.Uint64(data[0x50:0x58]),
		Owner:         endian.Uint64(data[0x58:0x60]),
		NumItems:      endian.Uint32(data[0x60:0x64]),
		Level:         data[0x64],
	}
	copy(h.Checksum[:], data[0x00:types.ChecksumSize])
	return h, nil
}

// DecodeItemHeader decodes a btrfs_item record of a leaf.
func DecodeItemHeader(data []byte, endian binary.ByteOrder) (types.ItemHeader, error) {
	if len(data) < types.ItemHeaderSize {
		return types.ItemHeader{}, types.NewDamageError("item header needs %d bytes, have %d", types.ItemHeaderSize, len(data))
	}
	key, err := items.DecodeKey(data, endian)
	if err != nil {
		return types.ItemHeader{}, err
	}
	return types.ItemHeader{
		Key:        key,
		DataOffset: endian.Uint32(data[0x11:0x15]),
		DataSize:   endian.Uint32(data[0x15:0x19]),
	}, nil
}

// DecodeKeyPointer decodes a btrfs_key_ptr record of an internal node.
func DecodeKeyPointer(data []byte, endian binary.ByteOrder) (types.KeyPointer, error) {
	if len(data) < types.KeyPointerSize {
		return types.KeyPointer{}, types.NewDamageError("key pointer needs %d bytes, have %d", types.KeyPointerSize, len(data))
	}
	key, err := items.DecodeKey(data, endian)
	if err != nil {
		return types.KeyPointer{}, err
	}
	return types.KeyPointer{
		Key:        key,
		BlockPtr:   types.LogicalAddr(endian.Uint64(data[0x11:0x19])),
		Generation: endian.Uint64(data[0x19:0x21]),
	}, nil
}
