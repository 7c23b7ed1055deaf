package items

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeKey decodes a btrfs_disk_key: objectid @0, type @8, offset @9.
func DecodeKey(data []byte, endian binary.ByteOrder) (types.Key, error) {
	if len(data) < types.KeySize {
		return types.Key{}, types.NewDamageError("key needs %d bytes, have %d", types.KeySize, len(data))
	}
	return types.Key{
		ObjectID: endian.Uint64(data[0:8]),
		Type:     types.ItemType(data[8]),
		Offset:   endian.Uint64(data[9:17]),
	}, nil
}

// PutKey encodes a key into dst, which must hold at least KeySize bytes.
func PutKey(dst []byte, key types.Key, endian binary.ByteOrder) {
	endian.PutUint64(dst[0:8], key.ObjectID)
	dst[8] = byte(key.Type)
	endian.PutUint64(dst[9:17], key.Offset)
}
