package types

import "encoding/binary"

// Identifier is a 128-bit filesystem, device or partition-type identifier split into
// the four fields of the classic GUID layout.
type Identifier struct {
	// Bytes 0x00-0x03.
	Part1 uint32

	// Bytes 0x04-0x05.
	Part2 uint16

	// Bytes 0x06-0x07.
	Part3 uint16

	// Bytes 0x08-0x0f, kept in on-disk order.
	Part4 [8]byte
}

// UUIDByteOrder is the order btrfs identifiers are stored in. btrfs keeps uuids as
// plain byte strings, so reading the fields big endian keeps the canonical rendering.
var UUIDByteOrder binary.ByteOrder = binary.BigEndian

// GUIDByteOrder is the order GPT partition type identifiers are stored in.
var GUIDByteOrder binary.ByteOrder = binary.LittleEndian

// IsUnused reports whether every field is zero.
func (id Identifier) IsUnused() bool {
	return id.Part1 == 0 && id.Part2 == 0 && id.Part3 == 0 && id.Part4 == [8]byte{}
}

// Part4Value returns Part4 as a big-endian integer, the form reference tables use.
func (id Identifier) Part4Value() uint64 {
	return binary.BigEndian.Uint64(id.Part4[:])
}

// Canonical returns the 16 bytes in field order with every field big endian.
func (id Identifier) Canonical() [UUIDSize]byte {
	var out [UUIDSize]byte
	binary.BigEndian.PutUint32(out[0:4], id.Part1)
	binary.BigEndian.PutUint16(out[4:6], id.Part2)
	binary.BigEndian.PutUint16(out[6:8], id.Part3)
	copy(out[8:], id.Part4[:])
	return out
}
