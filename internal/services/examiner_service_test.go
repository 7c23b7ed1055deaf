package services

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/managers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/managers/pool"
	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func newTestExaminer(t *testing.T, img []byte, cfg ExaminerConfig) *Examiner {
	t.Helper()
	sources := []pool.DeviceSource{{Name: "evidence.img", Reader: &testutil.MemDevice{Data: img}}}
	e, err := NewExaminer(context.Background(), sources, cfg)
	require.NoError(t, err)
	return e
}

func TestNewExaminer_LoadsChunkTree(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	assert.Equal(t, testutil.FilesystemLabel, e.Superblock().Label)
	assert.Equal(t, 1, e.Pool().Len())

	mappings := e.Chunks()
	require.Len(t, mappings, 1)
	assert.Equal(t, types.LogicalAddr(testutil.ChunkLogical), mappings[0].Start)
	assert.Equal(t, uint64(testutil.ChunkLength), mappings[0].Chunk.Length)

	devs := e.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, uint64(1), devs[0].DeviceID)
	assert.Equal(t, uint64(testutil.ImageSize), devs[0].TotalBytes)
}

func TestNewExaminer_BadMagic(t *testing.T) {
	img := testutil.BuildFilesystem()
	img[types.SuperblockAddr+types.SbOffMagic] = 'X'

	_, err := NewExaminer(context.Background(), []pool.DeviceSource{{Name: "bad.img", Reader: &testutil.MemDevice{Data: img}}}, ExaminerConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
}

func TestNewExaminer_DamagedChunkTree(t *testing.T) {
	img := testutil.BuildFilesystem()
	// Wrong bytenr in the chunk tree root header.
	binary.LittleEndian.PutUint64(img[testutil.Physical(testutil.ChunkTreeAddr)+0x30:], 0xdead000)

	_, err := NewExaminer(context.Background(), []pool.DeviceSource{{Name: "bad.img", Reader: &testutil.MemDevice{Data: img}}}, ExaminerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load chunk tree")
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
}

func TestListRoots(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	roots, err := e.ListRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)

	assert.Equal(t, types.ExtentTreeObjectID, roots[0].ObjectID)
	assert.Equal(t, "EXTENT_TREE", roots[0].Name)
	assert.Equal(t, testutil.ExtentTreeAddr, roots[0].Item.Bytenr)

	assert.Equal(t, types.FSTreeObjectID, roots[1].ObjectID)
	assert.Equal(t, "FS_TREE", roots[1].Name)
	assert.Equal(t, testutil.FSTreeAddr, roots[1].Item.Bytenr)
	assert.Equal(t, uint8(1), roots[1].Item.Level)
	assert.True(t, roots[1].Item.HasExtended)
}

func TestTreeRoot(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})
	ctx := context.Background()

	tests := []struct {
		name   string
		treeID uint64
		want   types.LogicalAddr
	}{
		{name: "root tree from superblock", treeID: types.RootTreeObjectID, want: testutil.RootTreeAddr},
		{name: "chunk tree from superblock", treeID: types.ChunkTreeObjectID, want: testutil.ChunkTreeAddr},
		{name: "fs tree from root item", treeID: types.FSTreeObjectID, want: testutil.FSTreeAddr},
		{name: "extent tree from root item", treeID: types.ExtentTreeObjectID, want: testutil.ExtentTreeAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.TreeRoot(ctx, tt.treeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := e.TreeRoot(ctx, types.CsumTreeObjectID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, btrees.ErrItemNotFound))
}

func TestRootTreeLeaves(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{ContinueOnDamage: true})

	leaves, damage, err := e.RootTreeLeaves(context.Background())
	require.NoError(t, err)
	assert.Empty(t, damage)
	require.Len(t, leaves, 1)
	assert.Equal(t, testutil.RootTreeAddr, leaves[0].Address())
	assert.Len(t, leaves[0].Items, 3)
}

func TestReadDirectory_Root(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	dir, err := e.ReadDirectory(context.Background(), testutil.FSTreeAddr, types.FirstFreeObjectID)
	require.NoError(t, err)

	assert.Equal(t, uint64(types.FirstFreeObjectID), dir.Inode)
	assert.True(t, dir.Item.IsDir())
	assert.Equal(t, "..", dir.Name)
	assert.Equal(t, uint64(types.FirstFreeObjectID), dir.ParentInode)

	require.Len(t, dir.Children, 2)
	file, sub := dir.Children[0], dir.Children[1]

	assert.Equal(t, testutil.FileName, file.Name)
	assert.Equal(t, uint64(testutil.FileInode), file.Inode)
	assert.Equal(t, types.DirEntryRegularFile, file.Type)
	assert.Equal(t, uint64(2), file.Index)
	assert.Equal(t, uint64(testutil.FileSize), file.Size)
	assert.Equal(t, int64(1700000000), file.ModifiedTime.Unix())
	assert.Empty(t, file.InodeError)

	assert.Equal(t, testutil.SubdirName, sub.Name)
	assert.Equal(t, types.DirEntryDirectory, sub.Type)
	assert.Equal(t, uint64(3), sub.Index)
}

func TestReadDirectory_EmptySubdirectory(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	dir, err := e.ReadDirectory(context.Background(), testutil.FSTreeAddr, testutil.SubdirInode)
	require.NoError(t, err)
	assert.Equal(t, testutil.SubdirName, dir.Name)
	assert.Empty(t, dir.Children)
}

func TestReadDirectory_Errors(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})
	ctx := context.Background()

	_, err := e.ReadDirectory(ctx, testutil.FSTreeAddr, testutil.FileInode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = e.ReadDirectory(ctx, testutil.FSTreeAddr, 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, btrees.ErrItemNotFound))
}

func TestValidateTree(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	results, damage, err := e.ValidateTree(context.Background(), testutil.FSTreeAddr)
	require.NoError(t, err)
	assert.Empty(t, damage)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.IsValid(), r.ErrorString())
	}
}

func TestValidateTree_ReportsDamagedLeaf(t *testing.T) {
	img := testutil.BuildFilesystem()
	binary.LittleEndian.PutUint64(img[testutil.Physical(testutil.FSLeaf2Addr)+0x30:], 0xdead000)
	e := newTestExaminer(t, img, ExaminerConfig{})

	results, damage, err := e.ValidateTree(context.Background(), testutil.FSTreeAddr)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	require.Len(t, damage, 1)
	assert.Equal(t, testutil.FSLeaf2Addr, damage[0].Address)
	assert.Equal(t, 1, damage[0].Depth)
}

func TestAnalyzeTree(t *testing.T) {
	e := newTestExaminer(t, testutil.BuildFilesystem(), ExaminerConfig{})

	analysis, err := e.AnalyzeTree(context.Background(), testutil.FSTreeAddr)
	require.NoError(t, err)
	assert.Equal(t, 2, analysis.Height)
	assert.Equal(t, 3, analysis.TotalNodes)
	assert.Equal(t, 10, analysis.TotalItems)
}
