package items

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeDirItem decodes every btrfs_dir_item packed into a DIR_ITEM payload.
// Entries whose names hash to the same value share one item.
func DecodeDirItem(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	item := &types.DirItem{}
	for pos := 0; pos < len(data); {
		entry, size, err := decodeDirEntry(data[pos:], endian)
		if err != nil {
			return nil, err
		}
		item.Entries = append(item.Entries, entry)
		pos += size
	}
	if len(item.Entries) == 0 {
		return nil, types.NewDamageError("empty DIR_ITEM payload")
	}
	return item, nil
}

// DecodeDirIndex decodes the single btrfs_dir_item of a DIR_INDEX payload.
func DecodeDirIndex(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	entry, _, err := decodeDirEntry(data, endian)
	if err != nil {
		return nil, err
	}
	return &types.DirIndex{Entry: entry}, nil
}

// decodeDirEntry returns the entry at the start of data and the number of bytes it
// occupies.
func decodeDirEntry(data []byte, endian binary.ByteOrder) (types.DirEntry, int, error) {
	if len(data) < types.DirItemHeaderSize {
		return types.DirEntry{}, 0, types.NewDamageError("dir entry needs %d bytes, have %d", types.DirItemHeaderSize, len(data))
	}

	location, err := DecodeKey(data[0x00:], endian)
	if err != nil {
		return types.DirEntry{}, 0, err
	}

	dataLen := int(endian.Uint16(data[0x19:0x1B]))
	nameLen := int(endian.Uint16(data[0x1B:0x1D]))
	end := types.DirItemHeaderSize + nameLen + dataLen
	if end > len(data) {
		return types.DirEntry{}, 0, types.NewDamageError("dir entry name/data (%d+%d bytes) exceeds payload of %d bytes", nameLen, dataLen, len(data))
	}

	entry := types.DirEntry{
		Location: location,
		TransID:  endian.Uint64(data[0x11:0x19]),
		Type:     types.DirEntryType(data[0x1D]),
		Name:     string(data[types.DirItemHeaderSize : types.DirItemHeaderSize+nameLen]),
	}
	if dataLen > 0 {
		entry.Data = append([]byte(nil), data[types.DirItemHeaderSize+nameLen:end]...)
	}
	return entry, end, nil
}
