package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
)

// MultiPartReader presents split image parts (img.001, img.002, ...) as one image
type MultiPartReader struct {
	parts  []interfaces.ByteRangeReader
	starts []uint64
	size   uint64
}

// NewMultiPartReader concatenates parts in the given order
func NewMultiPartReader(parts ...interfaces.ByteRangeReader) *MultiPartReader {
	m := &MultiPartReader{parts: parts, starts: make([]uint64, len(parts))}
	for i, p := range parts {
		m.starts[i] = m.size
		m.size += p.Size()
	}
	return m
}

// ReadBytes returns length bytes at offset, spanning part boundaries
func (m *MultiPartReader) ReadBytes(offset, length uint64) ([]byte, error) {
	if offset+length < offset || offset+length > m.size {
		return nil, fmt.Errorf("read of %d bytes at 0x%x exceeds image size %d", length, offset, m.size)
	}

	out := make([]byte, 0, length)
	for i, part := range m.parts {
		if length == 0 {
			break
		}
		start, end := m.starts[i], m.starts[i]+part.Size()
		if offset >= end {
			continue
		}

		n := min(length, end-offset)
		chunk, err := part.ReadBytes(offset-start, n)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %d: %w", i, err)
		}
		out = append(out, chunk...)
		offset += n
		length -= n
	}
	return out, nil
}

// Size returns the combined size of every part
func (m *MultiPartReader) Size() uint64 {
	return m.size
}

// Parts returns the number of parts
func (m *MultiPartReader) Parts() int {
	return len(m.parts)
}

// Close closes every closable part
func (m *MultiPartReader) Close() error {
	var errs []error
	for _, p := range m.parts {
		if c, ok := p.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// SplitParts returns the sibling parts of a split image when path ends in a numeric
// extension such as .001, or just path otherwise.
func SplitParts(path string) ([]string, error) {
	ext := filepath.Ext(path)
	digits := strings.TrimPrefix(ext, ".")
	if len(digits) < 3 || strings.Trim(digits, "0123456789") != "" {
		return []string{path}, nil
	}

	base := strings.TrimSuffix(path, ext)
	var parts []string
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%0*d", base, len(digits), i)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parts = append(parts, candidate)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts found for split image %q", path)
	}
	return parts, nil
}
