package identifiers

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Decode reads a 16-byte identifier. Part1-Part3 follow endian, Part4 is kept raw.
func Decode(data []byte, endian binary.ByteOrder) (types.Identifier, error) {
	if len(data) < types.UUIDSize {
		return types.Identifier{}, fmt.Errorf("data too small for identifier: %d bytes", len(data))
	}
	return DecodeArray([types.UUIDSize]byte(data[:types.UUIDSize]), endian), nil
}

// DecodeArray decodes an identifier that is already known to be 16 bytes long.
func DecodeArray(raw [types.UUIDSize]byte, endian binary.ByteOrder) types.Identifier {
	id := types.Identifier{
		Part1: endian.Uint32(raw[0:4]),
		Part2: endian.Uint16(raw[4:6]),
		Part3: endian.Uint16(raw[6:8]),
	}
	copy(id.Part4[:], raw[8:16])
	return id
}

// Put writes the identifier back in the given byte order.
func Put(dst []byte, id types.Identifier, endian binary.ByteOrder) {
	endian.PutUint32(dst[0:4], id.Part1)
	endian.PutUint16(dst[4:6], id.Part2)
	endian.PutUint16(dst[6:8], id.Part3)
	copy(dst[8:16], id.Part4[:])
}

// FromString parses the canonical hyphenated form.
func FromString(s string) (types.Identifier, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return types.Identifier{}, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return Decode(u[:], binary.BigEndian)
}

// Encode renders the identifier as uppercase 8-4-4-4-12 hex, or "" when unused.
func Encode(id types.Identifier) string {
	if id.IsUnused() {
		return ""
	}
	return strings.ToUpper(toUUID(id).String())
}

// Match reports whether the identifier equals the given field values, Part4 read as a
// big-endian integer.
func Match(id types.Identifier, p1 uint32, p2, p3 uint16, p4 uint64) bool {
	return id.Part1 == p1 && id.Part2 == p2 && id.Part3 == p3 && id.Part4Value() == p4
}

type reference struct {
	p1    uint32
	p2    uint16
	p3    uint16
	p4    uint64
	label string
}

// Well-known partition type identifiers.
var partitionTypes = []reference{
	{0x00000000, 0x0000, 0x0000, 0x0000000000000000, "Unused entry"},
	{0x024DEE41, 0x33E7, 0x11D3, 0x9D690008C781F39F, "MBR partition scheme"},
	{0xC12A7328, 0xF81F, 0x11D2, 0xBA4B00A0C93EC93B, "EFI System partition"},
	{0x21686148, 0x6449, 0x6E6F, 0x744E656564454649, "BIOS Boot partition"},
	{0xD3BFE2DE, 0x3DAF, 0x11DF, 0xBA40E3A556D89593, "Intel Fast Flash partition"},
	{0xF4019732, 0x066E, 0x4E12, 0x8273346C5641494F, "Sony boot partition"},
	{0xBFBFAFE7, 0xA34F, 0x448A, 0x9A5B6213EB736C22, "Lenovo boot partition"},
	{0xE3C9E316, 0x0B5C, 0x4DB8, 0x817DF92DF00215AE, "Microsoft Reserved Partition"},
	{0xDE94BBA4, 0x06D1, 0x4D40, 0xA16ABFD50179D6AC, "Windows Recovery Environment"},
	{0xEBD0A0A2, 0xB9E5, 0x4433, 0x87C068B6B72699C7, "Basic data partition"},
	{0x0FC63DAF, 0x8483, 0x4772, 0x8E793D69D8477DE4, "Linux filesystem data"},
	{0x0657FD6D, 0xA4AB, 0x43C4, 0x84E50933C84B4F4F, "Linux swap partition"},
	{0x933AC7E1, 0x2EB4, 0x4F13, 0xB8440E14E2AEF915, "Linux /home partition"},
}

// UnknownType is returned by Classify for identifiers missing from the table.
const UnknownType = "Unknown type"

// Classify returns the partition type label of the identifier.
func Classify(id types.Identifier) string {
	for _, ref := range partitionTypes {
		if Match(id, ref.p1, ref.p2, ref.p3, ref.p4) {
			return ref.label
		}
	}
	return UnknownType
}

// Variant returns the variant encoded in the high bits of byte 8.
func Variant(id types.Identifier) uuid.Variant {
	return toUUID(id).Variant()
}

// VariantInfo returns a readable variant name.
func VariantInfo(id types.Identifier) string {
	switch Variant(id) {
	case uuid.RFC4122:
		return "RFC 4122 Standard"
	case uuid.Microsoft:
		return "Microsoft COM"
	case uuid.Future:
		return "Reserved"
	case uuid.Reserved:
		// 0xx: NCS backward compatibility
		return "Network Computing System"
	}
	return "Unknown"
}

// Version returns the version nibble, the top four bits of Part3.
func Version(id types.Identifier) int {
	return int(toUUID(id).Version())
}

// VersionInfo describes the version. Only RFC 4122 identifiers carry one.
func VersionInfo(id types.Identifier) string {
	if Variant(id) != uuid.RFC4122 {
		return "Invalid"
	}

	switch Version(id) {
	case 1:
		return "Ver 1: MAC address & date-time"
	case 2:
		return "Ver 2: DCE security"
	case 3:
		return "Ver 3: MD5 hash & namespace"
	case 4:
		return "Ver 4: Random number"
	case 5:
		return "Ver 5: SHA-1 hash & namespace"
	}
	return "Unknown"
}

func toUUID(id types.Identifier) uuid.UUID {
	return uuid.UUID(id.Canonical())
}
