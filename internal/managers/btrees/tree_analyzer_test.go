package btrees

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func TestAnalyzeTree(t *testing.T) {
	nav, _ := filesystemNavigator(Options{})
	analysis, err := NewTreeAnalyzer(nav).AnalyzeTree(context.Background(), testutil.FSTreeAddr)
	require.NoError(t, err)

	assert.Equal(t, testutil.FSTreeAddr, analysis.Root)
	assert.Equal(t, 2, analysis.Height)
	assert.Equal(t, 3, analysis.TotalNodes)
	assert.Equal(t, 10, analysis.TotalItems)
	assert.Empty(t, analysis.Damaged)

	require.Len(t, analysis.Levels, 2)
	assert.Equal(t, LevelInfo{Depth: 0, NodeCount: 1, AverageKeyCount: 2, MinKeyCount: 2, MaxKeyCount: 2}, analysis.Levels[0])
	assert.Equal(t, 2, analysis.Levels[1].NodeCount)
	assert.Equal(t, 4, analysis.Levels[1].MinKeyCount)
	assert.Equal(t, 6, analysis.Levels[1].MaxKeyCount)
	assert.InDelta(t, 5.0, analysis.Levels[1].AverageKeyCount, 0.001)

	assert.Equal(t, 3, analysis.ItemTypes[types.ItemTypeInodeItem])
	assert.Equal(t, 2, analysis.ItemTypes[types.ItemTypeDirItem])
	assert.Equal(t, []types.ItemType{
		types.ItemTypeInodeItem, types.ItemTypeInodeRef, types.ItemTypeDirItem, types.ItemTypeDirIndex,
	}, analysis.SortedItemTypes())

	assert.Greater(t, analysis.FillFactor, 0.0)
	assert.Less(t, analysis.FillFactor, 100.0)
}

func TestAnalyzeTree_RecordsDamage(t *testing.T) {
	b := threeLevelTree()
	b.internal(0xC000, 1, testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 2), BlockPtr: 0x18000}, testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 4), BlockPtr: 0x8000})
	nav, _ := b.navigator(Options{})

	analysis, err := NewTreeAnalyzer(nav).AnalyzeTree(context.Background(), 0x4000)
	require.NoError(t, err)
	require.Len(t, analysis.Damaged, 1)
	assert.Equal(t, types.LogicalAddr(0x8000), analysis.Damaged[0].Address)
	assert.Equal(t, 6, analysis.TotalNodes)
}
