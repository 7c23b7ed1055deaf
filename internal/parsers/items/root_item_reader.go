package items

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeRootItem decodes a btrfs_root_item. Items written by old kernels stop after
// the level byte; the extended fields are only read when present.
func DecodeRootItem(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	if len(data) < types.RootItemLegacySize {
		return nil, types.NewDamageError("root item needs %d bytes, have %d", types.RootItemLegacySize, len(data))
	}

	inode, err := parseInodeItem(data[0x00:types.InodeItemSize], endian)
	if err != nil {
		return nil, err
	}
	dropProgress, err := DecodeKey(data[0xDC:], endian)
	if err != nil {
		return nil, err
	}

	root := &types.RootItem{
		Inode:        *inode,
		Generation:   endian.Uint64(data[0xA0:0xA8]),
		RootDirID:    endian.Uint64(data[0xA8:0xB0]),
		Bytenr:       types.LogicalAddr(endian.Uint64(data[0xB0:0xB8])),
		ByteLimit:    endian.Uint64(data[0xB8:0xC0]),
		BytesUsed:    endian.Uint64(data[0xC0:0xC8]),
		LastSnapshot: endian.Uint64(data[0xC8:0xD0]),
		Flags:        endian.Uint64(data[0xD0:0xD8]),
		Refs:         endian.Uint32(data[0xD8:0xDC]),
		DropProgress: dropProgress,
		DropLevel:    data[0xED],
		Level:        data[0xEE],
	}

	if len(data) >= types.RootItemSize {
		root.HasExtended = true
		root.GenerationV2 = endian.Uint64(data[0xEF:0xF7])
		root.UUID = identifiers.DecodeArray([types.UUIDSize]byte(data[0xF7:0x107]), types.UUIDByteOrder)
		root.ParentUUID = identifiers.DecodeArray([types.UUIDSize]byte(data[0x107:0x117]), types.UUIDByteOrder)
		root.ReceivedUUID = identifiers.DecodeArray([types.UUIDSize]byte(data[0x117:0x127]), types.UUIDByteOrder)
		// ctransid, otransid, stransid and rtransid sit at 0x127-0x147
		root.CTime = parseTimespec(data[0x147:], endian)
		root.OTime = parseTimespec(data[0x153:], endian)
	}

	return root, nil
}
