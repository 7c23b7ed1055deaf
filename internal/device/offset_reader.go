package device

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
)

// OffsetReader exposes the window of an image that starts at a fixed byte offset
type OffsetReader struct {
	base   interfaces.ByteRangeReader
	offset uint64
}

// NewOffsetReader returns a reader whose offset zero is offset in base
func NewOffsetReader(base interfaces.ByteRangeReader, offset uint64) (*OffsetReader, error) {
	if offset > base.Size() {
		return nil, fmt.Errorf("offset 0x%x is beyond image size %d", offset, base.Size())
	}
	return &OffsetReader{base: base, offset: offset}, nil
}

// ReadBytes reads relative to the window start
func (o *OffsetReader) ReadBytes(offset, length uint64) ([]byte, error) {
	if offset+o.offset < offset {
		return nil, fmt.Errorf("offset 0x%x overflows", offset)
	}
	return o.base.ReadBytes(o.offset+offset, length)
}

// Size returns the bytes left after the window start
func (o *OffsetReader) Size() uint64 {
	return o.base.Size() - o.offset
}
