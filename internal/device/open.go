package device

import (
	"errors"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
)

// Handle is an opened device image that must be closed after use
type Handle interface {
	interfaces.ByteRangeReader
	io.Closer
}

// Open opens a device image. Split images (path ending in .001) are joined, any
// other path is opened with format detection.
func Open(path string) (Handle, error) {
	paths, err := SplitParts(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 1 {
		return OpenImage(paths[0])
	}

	parts := make([]interfaces.ByteRangeReader, 0, len(paths))
	closeAll := func() error {
		var errs []error
		for _, p := range parts {
			errs = append(errs, p.(io.Closer).Close())
		}
		return errors.Join(errs...)
	}
	for _, p := range paths {
		img, err := OpenImage(p)
		if err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("failed to open part %q: %w", p, err)
		}
		parts = append(parts, img)
	}
	return NewMultiPartReader(parts...), nil
}
