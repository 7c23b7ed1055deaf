// Package apptest builds application contexts and image files for command tests.
package apptest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/config"
	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Config returns a valid configuration with small caches.
func Config() *config.Config {
	return &config.Config{
		SectorSize:      512,
		ByteOrder:       "little",
		MaxTreeDepth:    config.DefaultMaxTreeDepth,
		NodeCacheSize:   64,
		PrefetchWorkers: 2,
		LogLevel:        "warn",
		OutputFormat:    "table",
	}
}

// Context returns an application context writing to a buffer.
func Context(cfg *config.Config) (*app.Context, *bytes.Buffer) {
	ctx := app.NewContext(cfg)
	out := &bytes.Buffer{}
	ctx.Out = out
	return ctx, out
}

// WriteImage writes img to a file in a temporary directory, preceded by pad zero bytes.
func WriteImage(t *testing.T, name string, img []byte, pad int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := append(make([]byte, pad), img...)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// Filesystem writes the standard synthetic filesystem to a temporary file.
func Filesystem(t *testing.T) string {
	return WriteImage(t, "evidence.img", testutil.BuildFilesystem(), 0)
}

// CorruptNode overwrites the bytenr field of the node at addr so reading it fails.
func CorruptNode(img []byte, addr types.LogicalAddr) {
	binary.LittleEndian.PutUint64(img[testutil.Physical(addr)+0x30:], 0xdead000)
}
