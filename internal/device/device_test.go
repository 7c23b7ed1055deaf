package device

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lima-vm/go-qcow2reader/image/raw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/testutil"
)

func pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i)
	}
	return out
}

func TestFileReader_ReadBytes(t *testing.T) {
	data := pattern(64, 0)
	fr := NewFileReader(bytes.NewReader(data), uint64(len(data)))

	tests := []struct {
		name    string
		offset  uint64
		length  uint64
		want    []byte
		wantErr bool
	}{
		{name: "start", offset: 0, length: 4, want: data[:4]},
		{name: "middle", offset: 10, length: 6, want: data[10:16]},
		{name: "up to end", offset: 60, length: 4, want: data[60:]},
		{name: "zero length", offset: 64, length: 0, want: []byte{}},
		{name: "past end", offset: 62, length: 4, wantErr: true},
		{name: "overflow", offset: ^uint64(0), length: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fr.ReadBytes(tt.offset, tt.length)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, uint64(64), fr.Size())
	assert.NoError(t, fr.Close())
}

func TestFileReader_ShortUnderlyingRead(t *testing.T) {
	// Declared size larger than the data behind it.
	fr := NewFileReader(bytes.NewReader(pattern(16, 0)), 32)
	_, err := fr.ReadBytes(8, 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read 16 bytes at 0x8")
}

func TestOpenImage_Raw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.img")
	require.NoError(t, os.WriteFile(path, testutil.BuildFilesystem(), 0o600))

	img, err := OpenImage(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, raw.Type, img.Format)
	assert.Equal(t, uint64(testutil.ImageSize), img.Size())

	magic, err := img.ReadBytes(0x10040, 8)
	require.NoError(t, err)
	assert.Equal(t, "_BHRfS_M", string(magic))
}

func TestOpenImage_Missing(t *testing.T) {
	_, err := OpenImage(filepath.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open image")
}

func TestMultiPartReader(t *testing.T) {
	a, b, c := pattern(10, 0), pattern(5, 10), pattern(7, 15)
	m := NewMultiPartReader(
		NewFileReader(bytes.NewReader(a), 10),
		NewFileReader(bytes.NewReader(b), 5),
		NewFileReader(bytes.NewReader(c), 7),
	)
	whole := append(append(append([]byte{}, a...), b...), c...)

	assert.Equal(t, uint64(22), m.Size())
	assert.Equal(t, 3, m.Parts())

	tests := []struct {
		name           string
		offset, length uint64
	}{
		{name: "inside first part", offset: 2, length: 3},
		{name: "across one boundary", offset: 8, length: 4},
		{name: "across every part", offset: 0, length: 22},
		{name: "inside last part", offset: 16, length: 6},
		{name: "boundary start", offset: 10, length: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ReadBytes(tt.offset, tt.length)
			require.NoError(t, err)
			assert.Equal(t, whole[tt.offset:tt.offset+tt.length], got)
		})
	}

	_, err := m.ReadBytes(20, 3)
	assert.Error(t, err)
}

func TestOffsetReader(t *testing.T) {
	data := pattern(32, 0)
	base := NewFileReader(bytes.NewReader(data), 32)

	o, err := NewOffsetReader(base, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), o.Size())

	got, err := o.ReadBytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, data[8:12], got)

	_, err = o.ReadBytes(22, 4)
	assert.Error(t, err)

	_, err = NewOffsetReader(base, 33)
	assert.Error(t, err)
}

func TestSplitParts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"disk.001", "disk.002", "disk.003", "disk.005"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	parts, err := SplitParts(filepath.Join(dir, "disk.001"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "disk.001"),
		filepath.Join(dir, "disk.002"),
		filepath.Join(dir, "disk.003"),
	}, parts)

	single, err := SplitParts(filepath.Join(dir, "disk.img"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "disk.img")}, single)

	_, err = SplitParts(filepath.Join(dir, "other.001"))
	assert.Error(t, err)
}

func TestOpen_SplitImage(t *testing.T) {
	dir := t.TempDir()
	img := testutil.BuildFilesystem()
	half := len(img) / 2
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.001"), img[:half], 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.002"), img[half:], 0o600))

	h, err := Open(filepath.Join(dir, "evidence.001"))
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, uint64(len(img)), h.Size())
	got, err := h.ReadBytes(uint64(half)-8, 16)
	require.NoError(t, err)
	assert.Equal(t, img[half-8:half+8], got)
}
