// File: internal/interfaces/device.go
package interfaces

import "github.com/deploymenttheory/go-btrfs/internal/types"

// ByteRangeReader reads absolute byte ranges from one device image
type ByteRangeReader interface {
	// ReadBytes returns exactly length bytes starting at offset, or an error
	ReadBytes(offset uint64, length uint64) ([]byte, error)

	// Size returns the number of readable bytes
	Size() uint64
}

// DeviceLocator resolves where a pool member lives inside its image
type DeviceLocator interface {
	// DeviceOffset returns the byte offset of the device within its image
	DeviceOffset(deviceID uint64) (uint64, error)

	// DeviceSize returns the size of the device as recorded in its superblock
	DeviceSize(deviceID uint64) (uint64, error)
}

// PhysicalReader reads bytes at a physical address of the pool
type PhysicalReader interface {
	// ReadPhysical reads length bytes at the physical address
	ReadPhysical(addr types.PhysicalAddr, length uint64) ([]byte, error)
}

// AddressTranslator maps logical addresses to physical addresses
type AddressTranslator interface {
	// Translate returns the physical placement of a logical address
	Translate(logical types.LogicalAddr) (types.PhysicalAddr, error)
}
