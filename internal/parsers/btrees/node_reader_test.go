package btrees

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/testutil"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var le = binary.LittleEndian

func TestDecodeNodeHeader(t *testing.T) {
	data := testutil.BuildLeaf(testutil.NodeOptions{Bytenr: 0x104000, Owner: types.RootTreeObjectID, FSID: testutil.TestFSID},
		testutil.LeafItem{Key: types.Key{ObjectID: 1}, Data: []byte{1}})

	h, err := DecodeNodeHeader(data, le)
	require.NoError(t, err)

	assert.Equal(t, types.LogicalAddr(0x104000), h.Bytenr)
	assert.Equal(t, types.RootTreeObjectID, h.Owner)
	assert.Equal(t, uint32(1), h.NumItems)
	assert.Equal(t, uint8(0), h.Level)
	assert.Equal(t, uint64(9), h.Generation)
	assert.Equal(t, uint32(0x5a8c213e), h.FSID.Part1)
	assert.True(t, h.IsLeaf())

	_, err = DecodeNodeHeader(data[:types.NodeHeaderSize-1], le)
	assert.True(t, errors.Is(err, types.ErrStructuralDamage))
}

func TestNewNode_LeafWithUnknownItem(t *testing.T) {
	dirKey := types.Key{ObjectID: 256, Type: types.ItemTypeDirItem, Offset: 42}
	oddKey := types.Key{ObjectID: 256, Type: types.ItemType(0xFF), Offset: 0}
	data := testutil.BuildLeaf(testutil.NodeOptions{Bytenr: 0x4000, Owner: types.FSTreeObjectID},
		testutil.LeafItem{Key: dirKey, Data: testutil.DirItemPayload(testutil.DirEntry{Type: types.DirEntryRegularFile, Name: "file"})},
		testutil.LeafItem{Key: oddKey, Data: []byte{0xCA, 0xFE}},
	)

	header, err := DecodeNodeHeader(data, le)
	require.NoError(t, err)
	require.Equal(t, uint32(2), header.NumItems)

	node, err := NewNode(header, data, le)
	require.NoError(t, err)
	require.Len(t, node.Items, 2)
	assert.Empty(t, node.Pointers)

	assert.Equal(t, dirKey, node.Items[0].Key())
	dir, ok := node.Items[0].Payload.(*types.DirItem)
	require.True(t, ok)
	assert.Equal(t, "file", dir.Entries[0].Name)

	assert.Equal(t, oddKey, node.Items[1].Key())
	unknown, ok := node.Items[1].Payload.(*types.UnknownItem)
	require.True(t, ok)
	assert.Equal(t, []byte{0xCA, 0xFE}, unknown.Raw)
}

func TestNewNode_Internal(t *testing.T) {
	data := testutil.BuildInternal(testutil.NodeOptions{Bytenr: 0x8000, Owner: types.FSTreeObjectID, Level: 2},
		testutil.Pointer{Key: types.Key{ObjectID: 256}, BlockPtr: 0x10000},
		testutil.Pointer{Key: types.Key{ObjectID: 300}, BlockPtr: 0x14000},
	)

	node, err := DecodeNode(data, le)
	require.NoError(t, err)
	assert.False(t, node.IsLeaf())
	assert.Equal(t, uint8(2), node.Level())
	assert.Equal(t, uint32(2), node.ItemCount())
	assert.Equal(t, types.LogicalAddr(0x8000), node.Address())
	assert.Equal(t, types.FSTreeObjectID, node.Owner())
	assert.Empty(t, node.Items)
	require.Len(t, node.Pointers, 2)
	assert.Equal(t, types.LogicalAddr(0x10000), node.Pointers[0].BlockPtr)
	assert.Equal(t, types.LogicalAddr(0x14000), node.Pointers[1].BlockPtr)
	assert.Equal(t, uint64(9), node.Pointers[1].Generation)
}

func TestNewNode_Damage(t *testing.T) {
	leaf := func() []byte {
		return testutil.BuildLeaf(testutil.NodeOptions{Bytenr: 0x4000},
			testutil.LeafItem{Key: types.Key{ObjectID: 1, Type: types.ItemTypeInodeItem}, Data: testutil.InodeItemPayload(1, 0o100644, 1)})
	}

	tests := []struct {
		name   string
		mutate func(data []byte) []byte
	}{
		{
			name: "item count does not fit",
			mutate: func(data []byte) []byte {
				le.PutUint32(data[0x60:], 0xFFFFFFFF)
				return data
			},
		},
		{
			name: "payload beyond region",
			mutate: func(data []byte) []byte {
				le.PutUint32(data[types.NodeHeaderSize+0x11:], uint32(len(data)))
				return data
			},
		},
		{
			name: "payload size overflows",
			mutate: func(data []byte) []byte {
				le.PutUint32(data[types.NodeHeaderSize+0x15:], 0xFFFFFFFF)
				return data
			},
		},
		{
			name: "known type with short payload",
			mutate: func(data []byte) []byte {
				le.PutUint32(data[types.NodeHeaderSize+0x15:], 0x10)
				return data
			},
		},
		{
			name: "region shorter than header",
			mutate: func(data []byte) []byte {
				return data[:0x40]
			},
		},
		{
			name: "internal pointers past region",
			mutate: func(data []byte) []byte {
				data[0x64] = 1
				le.PutUint32(data[0x60:], 4)
				return data[:types.NodeHeaderSize+3*types.KeyPointerSize]
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := leaf()
			header, err := DecodeNodeHeader(data, le)
			require.NoError(t, err)
			data = tc.mutate(data)
			if len(data) >= types.NodeHeaderSize {
				header, err = DecodeNodeHeader(data, le)
				require.NoError(t, err)
			}

			node, err := NewNode(header, data, le)
			assert.Nil(t, node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrStructuralDamage), "got %v", err)
		})
	}
}

func TestKeyOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	keys := make([]types.Key, 200)
	for i := range keys {
		keys[i] = types.Key{
			ObjectID: uint64(rng.Intn(8)),
			Type:     types.ItemType(rng.Intn(4)),
			Offset:   uint64(rng.Intn(8)),
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for i := 1; i < len(keys); i++ {
		a, b := keys[i-1], keys[i]
		lexical := a.ObjectID < b.ObjectID ||
			(a.ObjectID == b.ObjectID && a.Type < b.Type) ||
			(a.ObjectID == b.ObjectID && a.Type == b.Type && a.Offset <= b.Offset)
		assert.True(t, lexical, "%v before %v", a, b)
		assert.LessOrEqual(t, a.Compare(b), 0)
		assert.Equal(t, -a.Compare(b), b.Compare(a))
	}
}

func TestChildIndex(t *testing.T) {
	node := &Node{
		header: types.NodeHeader{Level: 1, NumItems: 3},
		Pointers: []types.KeyPointer{
			{Key: types.Key{ObjectID: 10}},
			{Key: types.Key{ObjectID: 20, Type: types.ItemTypeDirItem}},
			{Key: types.Key{ObjectID: 30}},
		},
	}

	tests := []struct {
		name     string
		key      types.Key
		expected int
	}{
		{"below first", types.Key{ObjectID: 1}, 0},
		{"exact first", types.Key{ObjectID: 10}, 0},
		{"between", types.Key{ObjectID: 15}, 0},
		{"same id lower type", types.Key{ObjectID: 20, Type: types.ItemTypeInodeItem}, 0},
		{"exact second", types.Key{ObjectID: 20, Type: types.ItemTypeDirItem}, 1},
		{"beyond last", types.Key{ObjectID: 99}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, node.ChildIndex(tc.key))
		})
	}
}
