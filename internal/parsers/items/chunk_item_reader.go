package items

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DecodeDevItem decodes a btrfs_dev_item, as found in the device tree and embedded in
// every superblock.
func DecodeDevItem(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	dev, err := ParseDevItem(data, endian)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// ParseDevItem is DecodeDevItem returning the concrete type.
func ParseDevItem(data []byte, endian binary.ByteOrder) (*types.DevItem, error) {
	if len(data) < types.DevItemSize {
		return nil, types.NewDamageError("dev item needs %d bytes, have %d", types.DevItemSize, len(data))
	}

	return &types.DevItem{
		DeviceID:    endian.Uint64(data[0x00:0x08]),
		TotalBytes:  endian.Uint64(data[0x08:0x10]),
		BytesUsed:   endian.Uint64(data[0x10:0x18]),
		IOAlign:     endian.Uint32(data[0x18:0x1C]),
		IOWidth:     endian.Uint32(data[0x1C:0x20]),
		SectorSize:  endian.Uint32(data[0x20:0x24]),
		Type:        endian.Uint64(data[0x24:0x2C]),
		Generation:  endian.Uint64(data[0x2C:0x34]),
		StartOffset: endian.Uint64(data[0x34:0x3C]),
		DevGroup:    endian.Uint32(data[0x3C:0x40]),
		SeekSpeed:   data[0x40],
		Bandwidth:   data[0x41],
		DeviceUUID:  identifiers.DecodeArray([types.UUIDSize]byte(data[0x42:0x52]), types.UUIDByteOrder),
		FSID:        identifiers.DecodeArray([types.UUIDSize]byte(data[0x52:0x62]), types.UUIDByteOrder),
	}, nil
}

// DecodeChunkItem decodes a btrfs_chunk and its stripe array.
func DecodeChunkItem(data []byte, endian binary.ByteOrder) (types.ItemPayload, error) {
	chunk, err := ParseChunkItem(data, endian)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// ParseChunkItem is DecodeChunkItem returning the concrete type.
func ParseChunkItem(data []byte, endian binary.ByteOrder) (*types.ChunkItem, error) {
	if len(data) < types.ChunkItemHeaderSize {
		return nil, types.NewDamageError("chunk item needs %d bytes, have %d", types.ChunkItemHeaderSize, len(data))
	}

	chunk := &types.ChunkItem{
		Length:     endian.Uint64(data[0x00:0x08]),
		Owner:      endian.Uint64(data[0x08:0x10]),
		StripeLen:  endian.Uint64(data[0x10:0x18]),
		Type:       endian.Uint64(data[0x18:0x20]),
		IOAlign:    endian.Uint32(data[0x20:0x24]),
		IOWidth:    endian.Uint32(data[0x24:0x28]),
		SectorSize: endian.Uint32(data[0x28:0x2C]),
		NumStripes: endian.Uint16(data[0x2C:0x2E]),
		SubStripes: endian.Uint16(data[0x2E:0x30]),
	}

	if need := ChunkItemSize(chunk.NumStripes); len(data) < need {
		return nil, types.NewDamageError("chunk item with %d stripes needs %d bytes, have %d", chunk.NumStripes, need, len(data))
	}

	chunk.Stripes = make([]types.Stripe, 0, chunk.NumStripes)
	for i := 0; i < int(chunk.NumStripes); i++ {
		s := data[types.ChunkItemHeaderSize+i*types.StripeSize:]
		chunk.Stripes = append(chunk.Stripes, types.Stripe{
			DeviceID:   endian.Uint64(s[0x00:0x08]),
			Offset:     endian.Uint64(s[0x08:0x10]),
			DeviceUUID: identifiers.DecodeArray([types.UUIDSize]byte(s[0x10:0x20]), types.UUIDByteOrder),
		})
	}

	return chunk, nil
}

// ChunkItemSize returns the encoded size of a chunk item with n stripes.
func ChunkItemSize(n uint16) int {
	return types.ChunkItemHeaderSize + int(n)*types.StripeSize
}
