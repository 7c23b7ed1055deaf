package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/items"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// SystemChunk is one (key, chunk) pair of the superblock's sys chunk array.
type SystemChunk struct {
	Key   types.Key
	Chunk *types.ChunkItem
}

// Read reads and parses the superblock of the device whose image starts at base.
func Read(reader interfaces.ByteRangeReader, base uint64, endian binary.ByteOrder) (*types.Superblock, error) {
	data, err := reader.ReadBytes(base+types.SuperblockAddr, types.SuperblockSize)
	if err != nil {
		return nil, types.NewIOError(err, "failed to read superblock at 0x%x", base+types.SuperblockAddr)
	}
	return Parse(data, endian)
}

// Parse decodes a superblock from the 0x1000 bytes read at SuperblockAddr.
func Parse(data []byte, endian binary.ByteOrder) (*types.Superblock, error) {
	if len(data) < types.SuperblockSize {
		return nil, types.NewDamageError("superblock needs %d bytes, have %d", types.SuperblockSize, len(data))
	}

	sb := &types.Superblock{}
	copy(sb.Checksum[:], data[0x00:types.ChecksumSize])
	copy(sb.Magic[:], data[types.SbOffMagic:types.SbOffMagic+8])
	if !sb.HasValidMagic() {
		return nil, types.NewDamageError("bad superblock magic %q", sb.MagicString())
	}

	sb.FSID = identifiers.DecodeArray([types.UUIDSize]byte(data[types.SbOffFSID:types.SbOffFSID+types.UUIDSize]), types.UUIDByteOrder)
	sb.Bytenr = endian.Uint64(data[types.SbOffBytenr:])
	sb.Flags = endian.Uint64(data[types.SbOffFlags:])
	sb.Generation = endian.Uint64(data[types.SbOffGeneration:])
	sb.RootTreeAddr = types.LogicalAddr(endian.Uint64(data[types.SbOffRoot:]))
	sb.ChunkTreeAddr = types.LogicalAddr(endian.Uint64(data[types.SbOffChunkRoot:]))
	sb.LogTreeAddr = types.LogicalAddr(endian.Uint64(data[types.SbOffLogRoot:]))
	sb.LogRootTransID = endian.Uint64(data[types.SbOffLogRootTransID:])
	sb.TotalBytes = endian.Uint64(data[types.SbOffTotalBytes:])
	sb.BytesUsed = endian.Uint64(data[types.SbOffBytesUsed:])
	sb.RootDirObjectID = endian.Uint64(data[types.SbOffRootDirObjectID:])
	sb.NumDevices = endian.Uint64(data[types.SbOffNumDevices:])
	sb.SectorSize = endian.Uint32(data[types.SbOffSectorSize:])
	sb.NodeSize = endian.Uint32(data[types.SbOffNodeSize:])
	sb.LeafSize = endian.Uint32(data[types.SbOffLeafSize:])
	sb.StripeSize = endian.Uint32(data[types.SbOffStripeSize:])
	sb.SysChunkArraySize = endian.Uint32(data[types.SbOffSysChunkArraySize:])
	sb.ChunkRootGeneration = endian.Uint64(data[types.SbOffChunkRootGeneration:])
	sb.CompatFlags = endian.Uint64(data[types.SbOffCompatFlags:])
	sb.CompatROFlags = endian.Uint64(data[types.SbOffCompatROFlags:])
	sb.IncompatFlags = endian.Uint64(data[types.SbOffIncompatFlags:])
	sb.ChecksumType = endian.Uint16(data[types.SbOffChecksumType:])
	sb.RootLevel = data[types.SbOffRootLevel]
	sb.ChunkRootLevel = data[types.SbOffChunkRootLevel]
	sb.LogRootLevel = data[types.SbOffLogRootLevel]

	dev, err := items.ParseDevItem(data[types.SbOffDevItem:types.SbOffDevItem+types.DevItemSize], endian)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded dev item: %w", err)
	}
	sb.DevItem = *dev

	label := data[types.SbOffLabel : types.SbOffLabel+types.LabelSize]
	if i := bytes.IndexByte(label, 0); i >= 0 {
		label = label[:i]
	}
	sb.Label = string(label)

	if sb.SysChunkArraySize > types.SysChunkArrayMaxSize {
		return nil, types.NewDamageError("sys chunk array size %d exceeds %d", sb.SysChunkArraySize, types.SysChunkArrayMaxSize)
	}
	sb.SysChunkArray = append([]byte(nil), data[types.SysChunkArrayOffset:types.SysChunkArrayOffset+int(sb.SysChunkArraySize)]...)

	return sb, nil
}

// SystemChunks decodes the sys chunk array. These chunks cover the chunk tree itself,
// so they are needed before any chunk tree node can be located.
func SystemChunks(sb *types.Superblock, endian binary.ByteOrder) ([]SystemChunk, error) {
	var chunks []SystemChunk
	data := sb.SysChunkArray
	for pos := 0; pos < len(data); {
		key, err := items.DecodeKey(data[pos:], endian)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sys chunk key at %d: %w", pos, err)
		}
		if key.Type != types.ItemTypeChunkItem {
			return nil, types.NewDamageError("sys chunk array entry at %d has type %s", pos, key.Type)
		}
		pos += types.KeySize

		chunk, err := items.ParseChunkItem(data[pos:], endian)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sys chunk at logical 0x%x: %w", key.Offset, err)
		}
		pos += items.ChunkItemSize(chunk.NumStripes)

		chunks = append(chunks, SystemChunk{Key: key, Chunk: chunk})
	}
	return chunks, nil
}
