package items

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeInodeItem decodes a btrfs_inode_item.
func DecodeInodeItem(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	inode, err := parseInodeItem(data, endian)
	if err != nil {
		return nil, err
	}
	return inode, nil
}

func parseInodeItem(data []byte, endian binary.ByteOrder) (*types.InodeItem, error) {
	if len(data) < types.InodeItemSize {
		return nil, types.NewDamageError("inode item needs %d bytes, have %d", types.InodeItemSize, len(data))
	}

	return &types.InodeItem{
		Generation: endian.Uint64(data[0x00:0x08]),
		TransID:    endian.Uint64(data[0x08:0x10]),
		Size:       endian.Uint64(data[0x10:0x18]),
		NBytes:     endian.Uint64(data[0x18:0x20]),
		BlockGroup: endian.Uint64(data[0x20:0x28]),
		NLink:      endian.Uint32(data[0x28:0x2C]),
		UID:        endian.Uint32(data[0x2C:0x30]),
		GID:        endian.Uint32(data[0x30:0x34]),
		Mode:       endian.Uint32(data[0x34:0x38]),
		RDev:       endian.Uint64(data[0x38:0x40]),
		Flags:      endian.Uint64(data[0x40:0x48]),
		Sequence:   endian.Uint64(data[0x48:0x50]),
		// 0x50-0x70 reserved
		ATime: parseTimespec(data[0x70:], endian),
		CTime: parseTimespec(data[0x7C:], endian),
		MTime: parseTimespec(data[0x88:], endian),
		OTime: parseTimespec(data[0x94:], endian),
	}, nil
}

func parseTimespec(data []byte, endian binary.ByteOrder) types.Timespec {
	return types.Timespec{
		Sec:  int64(endian.Uint64(data[0:8])),
		NSec: endian.Uint32(data[8:12]),
	}
}

// DecodeInodeRef decodes the btrfs_inode_ref records of an INODE_REF payload. A file
// hard-linked several times within one directory carries one record per name.
func DecodeInodeRef(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	ref := &types.InodeRef{}
	for pos := 0; pos < len(data); {
		rest := data[pos:]
		if len(rest) < types.InodeRefHeaderSize {
			return nil, types.NewDamageError("inode ref needs %d bytes, have %d", types.InodeRefHeaderSize, len(rest))
		}
		nameLen := int(endian.Uint16(rest[8:10]))
		end := types.InodeRefHeaderSize + nameLen
		if end > len(rest) {
			return nil, types.NewDamageError("inode ref name of %d bytes exceeds payload", nameLen)
		}
		ref.Refs = append(ref.Refs, types.InodeRefEntry{
			Index: endian.Uint64(rest[0:8]),
			Name:  string(rest[types.InodeRefHeaderSize:end]),
		})
		pos += end
	}
	if len(ref.Refs) == 0 {
		return nil, types.NewDamageError("empty INODE_REF payload")
	}
	return ref, nil
}
