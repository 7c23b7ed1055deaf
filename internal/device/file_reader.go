package device

import (
	"errors"
	"fmt"
	"io"
)

// FileReader serves byte ranges from any io.ReaderAt of known size
type FileReader struct {
	reader io.ReaderAt
	size   uint64
	closer io.Closer
}

// NewFileReader wraps reader. size bounds every read.
func NewFileReader(reader io.ReaderAt, size uint64) *FileReader {
	fr := &FileReader{reader: reader, size: size}
	if c, ok := reader.(io.Closer); ok {
		fr.closer = c
	}
	return fr
}

// ReadBytes returns exactly length bytes at offset
func (f *FileReader) ReadBytes(offset, length uint64) ([]byte, error) {
	if offset+length < offset || offset+length > f.size {
		return nil, fmt.Errorf("read of %d bytes at 0x%x exceeds image size %d", length, offset, f.size)
	}

	buf := make([]byte, length)
	n, err := f.reader.ReadAt(buf, int64(offset))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("failed to read %d bytes at 0x%x: %w", length, offset, err)
}

// Size returns the image size
func (f *FileReader) Size() uint64 {
	return f.size
}

// Close closes the underlying reader when it is closable
func (f *FileReader) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
