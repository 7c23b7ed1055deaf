package items

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

type decoderFunc func(data []byte, endian binary.ByteOrder) (types.ItemPayload, error)

// decoders is the complete set of payload types this package understands.
var decoders = map[types.ItemType]decoderFunc{
	types.ItemTypeDirItem:   DecodeDirItem,
	types.ItemTypeDirIndex:  DecodeDirIndex,
	types.ItemTypeInodeItem: DecodeInodeItem,
	types.ItemTypeInodeRef:  DecodeInodeRef,
	types.ItemTypeRootItem:  DecodeRootItem,
	types.ItemTypeDevItem:   DecodeDevItem,
	types.ItemTypeChunkItem: DecodeChunkItem,
}

// Decode decodes an item payload according to its key type. Types without a decoder
// come back as *types.UnknownItem holding a copy of the raw bytes.
func Decode(itemType types.ItemType, endian binary.ByteOrder, data []byte) (types.ItemPayload, error) {
	decode, ok := decoders[itemType]
	if !ok {
		return &types.UnknownItem{Type: itemType, Raw: append([]byte(nil), data...)}, nil
	}

	payload, err := decode(data, endian)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", itemType, err)
	}
	return payload, nil
}

// HasDecoder reports whether Decode understands the item type.
func HasDecoder(itemType types.ItemType) bool {
	_, ok := decoders[itemType]
	return ok
}
