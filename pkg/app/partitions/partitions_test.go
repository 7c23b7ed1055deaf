package partitions

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
	"github.com/deploymenttheory/go-btrfs/pkg/app/apptest"
)

func gptImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(8<<20))
	_, err = f.WriteAt(testutil.BuildFilesystem(), 2048*512)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	d, err := diskfs.Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Partition(&gpt.Table{
		LogicalSectorSize:  512,
		PhysicalSectorSize: 512,
		ProtectiveMBR:      true,
		Partitions: []*gpt.Partition{
			{Start: 2048, End: 2048 + testutil.ImageSize/512 - 1, Type: gpt.LinuxFilesystem, Name: "evidence"},
		},
	}))
	require.NoError(t, d.Close())
	return path
}

func TestHandle(t *testing.T) {
	ctx, _ := apptest.Context(apptest.Config())

	resp, err := Handle(ctx, &Request{ImagePath: gptImage(t), SectorSize: 512})
	require.NoError(t, err)
	require.Len(t, resp.Partitions, 1)

	p := resp.Partitions[0]
	assert.Equal(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4", p.TypeID)
	assert.Equal(t, "Linux filesystem data", p.TypeName)
	assert.Equal(t, "RFC 4122 Standard", p.Variant)
	assert.Equal(t, uint64(2048), p.StartSector)
	assert.True(t, p.Btrfs)
	assert.Equal(t, testutil.FilesystemLabel, p.Label)

	var out bytes.Buffer
	require.NoError(t, FormatOutput(&out, resp, "table"))
	assert.Contains(t, out.String(), "Linux filesystem data")
	assert.Contains(t, out.String(), `"evidence"`)

	out.Reset()
	require.NoError(t, FormatOutput(&out, resp, "yaml"))
	assert.Contains(t, out.String(), "start_sector: 2048")
}

func TestHandle_Errors(t *testing.T) {
	ctx, _ := apptest.Context(apptest.Config())

	_, err := Handle(ctx, &Request{SectorSize: 512})
	assert.Equal(t, 1, app.ExitCode(err))

	_, err = Handle(ctx, &Request{ImagePath: apptest.Filesystem(t), SectorSize: 512})
	require.Error(t, err)
	assert.Equal(t, 6, app.ExitCode(err))
}
