package btrees

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func TestReadNode(t *testing.T) {
	nav, pool := filesystemNavigator(Options{})
	ctx := context.Background()

	node, err := nav.ReadNode(ctx, testutil.RootTreeAddr)
	require.NoError(t, err)
	assert.True(t, node.IsLeaf())
	assert.Equal(t, types.RootTreeObjectID, node.Owner())
	assert.Len(t, node.Items, 3)

	again, err := nav.ReadNode(ctx, testutil.RootTreeAddr)
	require.NoError(t, err)
	assert.Same(t, node, again)
	assert.Equal(t, 1, pool.reads())

	_, err = nav.ReadNode(ctx, 0x10)
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
}

func TestReadNode_AddressMismatch(t *testing.T) {
	b := newImageBuilder()
	b.leaf(0x4000, dirItem(1, 0))
	copy(b.data[0x8000:], b.data[0x4000:0x8000])
	nav, _ := b.navigator(Options{})

	_, err := nav.ReadNode(context.Background(), 0x8000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
	assert.Contains(t, err.Error(), "records address 0x4000")
}

func TestReadNode_Cancelled(t *testing.T) {
	nav, _ := filesystemNavigator(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nav.ReadNode(ctx, testutil.RootTreeAddr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadNode_ConcurrentSingleRead(t *testing.T) {
	nav, pool := filesystemNavigator(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := nav.ReadNode(context.Background(), testutil.FSLeaf1Addr)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, pool.reads())
}

func TestFindLeaf(t *testing.T) {
	nav, _ := filesystemNavigator(Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		key      types.Key
		leaf     types.LogicalAddr
		rootSlot int
	}{
		{"below every key", types.Key{}, testutil.FSLeaf1Addr, 0},
		{"root inode", key(256, types.ItemTypeInodeItem, 0), testutil.FSLeaf1Addr, 0},
		{"dir items", key(256, types.ItemTypeDirItem, 0), testutil.FSLeaf1Addr, 0},
		{"second leaf boundary", key(256, types.ItemTypeDirIndex, 2), testutil.FSLeaf2Addr, 1},
		{"file inode", key(testutil.FileInode, types.ItemTypeInodeItem, 0), testutil.FSLeaf2Addr, 1},
		{"past every key", key(1<<40, 0, 0), testutil.FSLeaf2Addr, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path, err := nav.FindLeaf(ctx, testutil.FSTreeAddr, tc.key)
			require.NoError(t, err)
			require.Equal(t, 2, path.Depth())
			assert.Equal(t, testutil.FSTreeAddr, path.Elements[0].Node.Address())
			assert.Equal(t, tc.rootSlot, path.Elements[0].Slot)
			assert.Equal(t, tc.leaf, path.Leaf().Address())
		})
	}
}

func TestNextLeaf(t *testing.T) {
	nav, _ := threeLevelTree().navigator(Options{})
	ctx := context.Background()

	path, err := nav.FirstLeaf(ctx, 0x4000)
	require.NoError(t, err)
	require.Equal(t, 3, path.Depth())

	var order []types.LogicalAddr
	for path != nil {
		order = append(order, path.Leaf().Address())
		before := path.Depth()
		next, err := nav.NextLeaf(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, before, path.Depth())
		path = next
	}
	assert.Equal(t, []types.LogicalAddr{0x10000, 0x14000, 0x18000, 0x1C000}, order)
}

func TestLeaves(t *testing.T) {
	nav, _ := threeLevelTree().navigator(Options{})

	var count int
	err := nav.Leaves(context.Background(), 0x4000, func(leaf *btrees.Node) error {
		count += len(leaf.Items)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestCollectItems(t *testing.T) {
	ctx := context.Background()

	t.Run("run spans three leaves and two parents", func(t *testing.T) {
		nav, _ := threeLevelTree().navigator(Options{})
		items, err := nav.CollectItems(ctx, 0x4000, 5, types.ItemTypeDirItem)
		require.NoError(t, err)
		require.Len(t, items, 4)
		for i, it := range items {
			assert.Equal(t, uint64(i+1), it.Key().Offset)
		}
	})

	t.Run("run ends at last leaf", func(t *testing.T) {
		nav, _ := threeLevelTree().navigator(Options{})
		items, err := nav.CollectItems(ctx, 0x4000, 8, types.ItemTypeDirItem)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("filesystem dir entries", func(t *testing.T) {
		nav, _ := filesystemNavigator(Options{})
		items, err := nav.CollectItems(ctx, testutil.FSTreeAddr, types.FirstFreeObjectID, types.ItemTypeDirItem)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		index, err := nav.CollectItems(ctx, testutil.FSTreeAddr, types.FirstFreeObjectID, types.ItemTypeDirIndex)
		require.NoError(t, err)
		assert.Len(t, index, 2)
	})

	t.Run("absent", func(t *testing.T) {
		nav, _ := threeLevelTree().navigator(Options{})
		items, err := nav.CollectItems(ctx, 0x4000, 4, types.ItemTypeDirItem)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestFindItem(t *testing.T) {
	nav, _ := filesystemNavigator(Options{})
	ctx := context.Background()

	item, err := nav.FindItem(ctx, testutil.FSTreeAddr, testutil.SubdirInode, types.ItemTypeInodeRef)
	require.NoError(t, err)
	ref, ok := item.Payload.(*types.InodeRef)
	require.True(t, ok)
	assert.Equal(t, testutil.SubdirName, ref.Refs[0].Name)

	item, err = nav.FindItem(ctx, testutil.FSTreeAddr, testutil.FileInode, types.ItemTypeInodeItem)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.FileSize), item.Payload.(*types.InodeItem).Size)

	_, err = nav.FindItem(ctx, testutil.FSTreeAddr, 300, types.ItemTypeInodeItem)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = nav.FindItem(ctx, testutil.FSTreeAddr, 257, types.ItemTypeRootItem)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDescent_Damage(t *testing.T) {
	ctx := context.Background()

	t.Run("self reference", func(t *testing.T) {
		b := newImageBuilder()
		b.internal(0x4000, 1, testutil.Pointer{Key: key(1, 0, 0), BlockPtr: 0x4000})
		nav, _ := b.navigator(Options{})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		assert.True(t, errors.Is(err, types.ErrStructuralDamage), "got %v", err)
	})

	t.Run("cycle with consistent levels", func(t *testing.T) {
		b := newImageBuilder()
		b.internal(0x4000, 2, testutil.Pointer{Key: key(1, 0, 0), BlockPtr: 0x8000})
		b.internal(0x8000, 1, testutil.Pointer{Key: key(1, 0, 0), BlockPtr: 0x4000})
		nav, _ := b.navigator(Options{})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		assert.True(t, errors.Is(err, types.ErrStructuralDamage), "got %v", err)
	})

	t.Run("child level mismatch", func(t *testing.T) {
		b := newImageBuilder()
		b.internal(0x4000, 2, testutil.Pointer{Key: key(1, 0, 0), BlockPtr: 0x8000})
		b.leaf(0x8000, dirItem(1, 0))
		nav, _ := b.navigator(Options{})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parent expects 1")
	})

	t.Run("depth limit", func(t *testing.T) {
		nav, _ := threeLevelTree().navigator(Options{MaxDepth: 2})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depth limit")
	})

	t.Run("absurd level", func(t *testing.T) {
		b := newImageBuilder()
		b.internal(0x4000, 200, testutil.Pointer{Key: key(1, 0, 0), BlockPtr: 0x8000})
		nav, _ := b.navigator(Options{})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		assert.True(t, errors.Is(err, types.ErrStructuralDamage))
	})

	t.Run("empty internal node", func(t *testing.T) {
		b := newImageBuilder()
		b.internal(0x4000, 1)
		nav, _ := b.navigator(Options{})
		_, err := nav.FirstLeaf(ctx, 0x4000)
		assert.True(t, errors.Is(err, types.ErrStructuralDamage))
	})

	t.Run("damaged sibling during next leaf", func(t *testing.T) {
		b := threeLevelTree()
		b.internal(0xC000, 1, testutil.Pointer{Key: key(5, types.ItemTypeDirItem, 2), BlockPtr: 0xC000})
		nav, _ := b.navigator(Options{})
		_, err := nav.CollectItems(ctx, 0x4000, 5, types.ItemTypeDirItem)
		assert.True(t, errors.Is(err, types.ErrStructuralDamage))
	})
}
