package btrees

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ErrItemNotFound is returned by FindItem when no item matches.
var ErrItemNotFound = errors.New("item not found")

// Options configures a TreeNavigator.
type Options struct {
	// Bytes read per node. Defaults to types.DefaultNodeSize.
	NodeSize uint32

	// Upper bound on descent depth, independent of the levels headers claim.
	// Defaults to types.MaxTreeLevel.
	MaxDepth int

	// Defaults to little endian.
	Endian binary.ByteOrder

	// Shared decoded node cache. A private one is created when nil.
	Cache *NodeCache

	// Concurrent child reads during Walk. Values below 2 disable prefetching.
	PrefetchWorkers int
}

// TreeNavigator reads nodes by logical address and descends trees.
type TreeNavigator struct {
	reader     interfaces.PhysicalReader
	translator interfaces.AddressTranslator
	opts       Options
	cache      *NodeCache
}

// NewTreeNavigator creates a navigator reading through reader after translating
// addresses with translator.
func NewTreeNavigator(reader interfaces.PhysicalReader, translator interfaces.AddressTranslator, opts Options) *TreeNavigator {
	if opts.NodeSize == 0 {
		opts.NodeSize = types.DefaultNodeSize
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = types.MaxTreeLevel
	}
	if opts.Endian == nil {
		opts.Endian = binary.LittleEndian
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewNodeCache(DefaultCacheSize)
	}
	return &TreeNavigator{
		reader:     reader,
		translator: translator,
		opts:       opts,
		cache:      cache,
	}
}

// Cache returns the node cache in use.
func (nav *TreeNavigator) Cache() *NodeCache {
	return nav.cache
}

// ReadNode returns the decoded node at a logical address.
func (nav *TreeNavigator) ReadNode(ctx context.Context, addr types.LogicalAddr) (*btrees.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nav.cache.GetOrLoad(addr, func() (*btrees.Node, error) {
		phys, err := nav.translator.Translate(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to translate node address 0x%x: %w", uint64(addr), err)
		}
		data, err := nav.reader.ReadPhysical(phys, uint64(nav.opts.NodeSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read node at 0x%x: %w", uint64(addr), err)
		}
		node, err := btrees.DecodeNode(data, nav.opts.Endian)
		if err != nil {
			return nil, err
		}
		if node.Address() != addr {
			return nil, types.NewDamageError("node read at 0x%x records address 0x%x", uint64(addr), uint64(node.Address()))
		}
		return node, nil
	})
}

// PathElement is one node of a descent and the pointer slot taken from it. Slot is
// zero for the leaf.
type PathElement struct {
	Node *btrees.Node
	Slot int
}

// Path is the ancestor stack of a leaf, root first.
type Path struct {
	Elements []PathElement
}

// Leaf returns the node at the bottom of the path.
func (p *Path) Leaf() *btrees.Node {
	return p.Elements[len(p.Elements)-1].Node
}

// Depth returns the number of nodes on the path.
func (p *Path) Depth() int {
	return len(p.Elements)
}

func (p *Path) contains(addr types.LogicalAddr) bool {
	for _, el := range p.Elements {
		if el.Node.Address() == addr {
			return true
		}
	}
	return false
}

// FindLeaf descends from root to the leaf that would hold key.
func (nav *TreeNavigator) FindLeaf(ctx context.Context, root types.LogicalAddr, key types.Key) (*Path, error) {
	path := &Path{}
	if err := nav.descend(ctx, path, root, -1, func(n *btrees.Node) int { return n.ChildIndex(key) }); err != nil {
		return nil, err
	}
	return path, nil
}

// FirstLeaf returns the path to the leftmost leaf of the tree.
func (nav *TreeNavigator) FirstLeaf(ctx context.Context, root types.LogicalAddr) (*Path, error) {
	return nav.FindLeaf(ctx, root, types.Key{})
}

// NextLeaf returns the path to the leaf following path's leaf in key order, or nil
// after the last leaf. path is not modified.
func (nav *TreeNavigator) NextLeaf(ctx context.Context, path *Path) (*Path, error) {
	for i := len(path.Elements) - 2; i >= 0; i-- {
		parent := path.Elements[i]
		if parent.Slot+1 >= len(parent.Node.Pointers) {
			continue
		}

		next := &Path{Elements: make([]PathElement, i+1, len(path.Elements))}
		copy(next.Elements, path.Elements[:i+1])
		next.Elements[i].Slot++

		child := parent.Node.Pointers[parent.Slot+1].BlockPtr
		if err := nav.descend(ctx, next, child, int(parent.Node.Level())-1, func(*btrees.Node) int { return 0 }); err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, nil
}

// descend appends nodes to path starting at addr until a leaf is reached. pick
// selects the pointer slot of each internal node. expectLevel is -1 when the level
// of the first node is not known.
func (nav *TreeNavigator) descend(ctx context.Context, path *Path, addr types.LogicalAddr, expectLevel int, pick func(*btrees.Node) int) error {
	for {
		if path.Depth() >= nav.opts.MaxDepth {
			return types.NewDamageError("descent to 0x%x exceeds depth limit %d", uint64(addr), nav.opts.MaxDepth)
		}
		if path.contains(addr) {
			return types.NewDamageError("node 0x%x revisited during descent", uint64(addr))
		}

		node, err := nav.ReadNode(ctx, addr)
		if err != nil {
			return err
		}
		if err := checkLevel(node, expectLevel); err != nil {
			return err
		}

		if node.IsLeaf() {
			path.Elements = append(path.Elements, PathElement{Node: node})
			return nil
		}
		if len(node.Pointers) == 0 {
			return types.NewDamageError("internal node 0x%x has no pointers", uint64(addr))
		}

		slot := pick(node)
		path.Elements = append(path.Elements, PathElement{Node: node, Slot: slot})
		addr = node.Pointers[slot].BlockPtr
		expectLevel = int(node.Level()) - 1
	}
}

func checkLevel(node *btrees.Node, expectLevel int) error {
	if node.Level() >= types.MaxTreeLevel {
		return types.NewDamageError("node 0x%x claims level %d", uint64(node.Address()), node.Level())
	}
	if expectLevel >= 0 && int(node.Level()) != expectLevel {
		return types.NewDamageError("node 0x%x has level %d, parent expects %d", uint64(node.Address()), node.Level(), expectLevel)
	}
	return nil
}

// FindItem returns the first item with the given object id and type, following
// sibling leaves when a leaf ends before the object id is passed.
func (nav *TreeNavigator) FindItem(ctx context.Context, root types.LogicalAddr, objectID uint64, itemType types.ItemType) (*btrees.Item, error) {
	path, err := nav.FindLeaf(ctx, root, types.Key{ObjectID: objectID, Type: itemType})
	if err != nil {
		return nil, err
	}

	seen := map[types.LogicalAddr]bool{}
	for path != nil {
		leaf := path.Leaf()
		if seen[leaf.Address()] {
			return nil, types.NewDamageError("leaf 0x%x reached twice while scanning", uint64(leaf.Address()))
		}
		seen[leaf.Address()] = true

		item, status := btrees.FindFirst(leaf, objectID, itemType)
		switch status {
		case btrees.SearchFound:
			return item, nil
		case btrees.SearchExhausted:
			return nil, ErrItemNotFound
		}
		if path, err = nav.NextLeaf(ctx, path); err != nil {
			return nil, err
		}
	}
	return nil, ErrItemNotFound
}

// CollectItems returns every item with the given object id and type, across as
// many leaves as the run spans.
func (nav *TreeNavigator) CollectItems(ctx context.Context, root types.LogicalAddr, objectID uint64, itemType types.ItemType) ([]*btrees.Item, error) {
	path, err := nav.FindLeaf(ctx, root, types.Key{ObjectID: objectID, Type: itemType})
	if err != nil {
		return nil, err
	}

	var found []*btrees.Item
	seen := map[types.LogicalAddr]bool{}
	for path != nil {
		leaf := path.Leaf()
		if seen[leaf.Address()] {
			return nil, types.NewDamageError("leaf 0x%x reached twice while scanning", uint64(leaf.Address()))
		}
		seen[leaf.Address()] = true

		var complete bool
		found, complete = btrees.CollectAll(leaf, objectID, itemType, found)
		if complete {
			break
		}
		if path, err = nav.NextLeaf(ctx, path); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// Leaves calls fn for every leaf of the tree in key order.
func (nav *TreeNavigator) Leaves(ctx context.Context, root types.LogicalAddr, fn func(leaf *btrees.Node) error) error {
	path, err := nav.FirstLeaf(ctx, root)
	if err != nil {
		return err
	}
	seen := map[types.LogicalAddr]bool{}
	for path != nil {
		leaf := path.Leaf()
		if seen[leaf.Address()] {
			return types.NewDamageError("leaf 0x%x reached twice while scanning", uint64(leaf.Address()))
		}
		seen[leaf.Address()] = true

		if err := fn(leaf); err != nil {
			return err
		}
		if path, err = nav.NextLeaf(ctx, path); err != nil {
			return err
		}
	}
	return nil
}
