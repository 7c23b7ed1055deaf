package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-btrfs/internal/managers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/managers/chunks"
	"github.com/deploymenttheory/go-btrfs/internal/managers/pool"
	parsedbtrees "github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ExaminerConfig tunes how a pool is examined
type ExaminerConfig struct {
	Endian           binary.ByteOrder
	MaxTreeDepth     int
	NodeCacheSize    int
	PrefetchWorkers  int
	ContinueOnDamage bool
}

// Examiner implements ExaminerService
type Examiner struct {
	pool       *pool.Pool
	superblock *types.Superblock
	translator *chunks.ChunkTranslator
	navigator  *btrees.TreeNavigator
	devItems   []*types.DevItem
	config     ExaminerConfig
}

// NewExaminer assembles the pool from sources, bootstraps the chunk map from the
// system chunks and completes it from the chunk tree.
func NewExaminer(ctx context.Context, sources []pool.DeviceSource, config ExaminerConfig) (*Examiner, error) {
	if config.Endian == nil {
		config.Endian = binary.LittleEndian
	}

	p, err := pool.Assemble(ctx, sources, config.Endian)
	if err != nil {
		return nil, err
	}
	sb := p.Canonical()
	logrus.Infof("assembled pool with %d device(s), label %q, generation %d", p.Len(), sb.Label, sb.Generation)

	translator := chunks.NewChunkTranslator(p)
	if err := translator.LoadSystemChunks(sb, config.Endian); err != nil {
		return nil, err
	}

	nav := btrees.NewTreeNavigator(p, translator, btrees.Options{
		NodeSize:        sb.NodeSize,
		MaxDepth:        config.MaxTreeDepth,
		Endian:          config.Endian,
		Cache:           btrees.NewNodeCache(config.NodeCacheSize),
		PrefetchWorkers: config.PrefetchWorkers,
	})

	e := &Examiner{
		pool:       p,
		superblock: sb,
		translator: translator,
		navigator:  nav,
		config:     config,
	}
	if err := e.loadChunkTree(ctx); err != nil {
		return nil, fmt.Errorf("failed to load chunk tree: %w", err)
	}
	return e, nil
}

// loadChunkTree adds every CHUNK_ITEM of the chunk tree to the translator and
// records the DEV_ITEMs.
func (e *Examiner) loadChunkTree(ctx context.Context) error {
	opts := btrees.WalkOptions{
		ContinueOnDamage: e.config.ContinueOnDamage,
		OnDamage: func(addr types.LogicalAddr, depth int, err error) {
			logrus.Warnf("chunk tree node 0x%x skipped: %v", uint64(addr), err)
		},
	}

	loaded := 0
	err := e.navigator.Walk(ctx, e.superblock.ChunkTreeAddr, opts, func(node *parsedbtrees.Node, _ int) (bool, error) {
		loaded += e.translator.LoadLeaf(node)
		for _, it := range node.Items {
			if dev, ok := it.Payload.(*types.DevItem); ok {
				e.devItems = append(e.devItems, dev)
			}
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	logrus.Debugf("chunk tree: %d chunk item(s), %d device item(s)", loaded, len(e.devItems))
	return nil
}

// Pool returns the assembled pool
func (e *Examiner) Pool() *pool.Pool {
	return e.pool
}

// Superblock returns the canonical superblock
func (e *Examiner) Superblock() *types.Superblock {
	return e.superblock
}

// Navigator returns the navigator used for every tree
func (e *Examiner) Navigator() *btrees.TreeNavigator {
	return e.navigator
}

// Chunks returns the chunk map in logical order
func (e *Examiner) Chunks() []chunks.Mapping {
	return e.translator.Mappings()
}

// Devices returns the DEV_ITEMs found in the chunk tree
func (e *Examiner) Devices() []*types.DevItem {
	return e.devItems
}

// ListRoots returns every ROOT_ITEM of the root tree
func (e *Examiner) ListRoots(ctx context.Context) ([]RootEntry, error) {
	var roots []RootEntry
	err := e.navigator.Leaves(ctx, e.superblock.RootTreeAddr, func(leaf *parsedbtrees.Node) error {
		for _, it := range leaf.Items {
			root, ok := it.Payload.(*types.RootItem)
			if !ok {
				continue
			}
			roots = append(roots, RootEntry{
				ObjectID: it.Key().ObjectID,
				Name:     types.TreeName(it.Key().ObjectID),
				Item:     root,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	return roots, nil
}

// TreeRoot returns the root node address of a tree recorded in the root tree
func (e *Examiner) TreeRoot(ctx context.Context, treeID uint64) (types.LogicalAddr, error) {
	switch treeID {
	case types.RootTreeObjectID:
		return e.superblock.RootTreeAddr, nil
	case types.ChunkTreeObjectID:
		return e.superblock.ChunkTreeAddr, nil
	}

	item, err := e.navigator.FindItem(ctx, e.superblock.RootTreeAddr, treeID, types.ItemTypeRootItem)
	if err != nil {
		return 0, fmt.Errorf("failed to find root of tree %d: %w", treeID, err)
	}
	root, ok := item.Payload.(*types.RootItem)
	if !ok {
		return 0, types.NewDamageError("ROOT_ITEM of tree %d has payload %T", treeID, item.Payload)
	}
	return root.Bytenr, nil
}

// RootTreeLeaves returns every leaf of the root tree. With ContinueOnDamage set,
// unreadable nodes are reported instead of failing the call.
func (e *Examiner) RootTreeLeaves(ctx context.Context) ([]*parsedbtrees.Node, []DamageReport, error) {
	var leaves []*parsedbtrees.Node
	var damage []DamageReport

	opts := btrees.WalkOptions{
		ContinueOnDamage: e.config.ContinueOnDamage,
		OnDamage: func(addr types.LogicalAddr, depth int, err error) {
			damage = append(damage, DamageReport{Address: addr, Depth: depth, Reason: err.Error()})
		},
	}
	err := e.navigator.Walk(ctx, e.superblock.RootTreeAddr, opts, func(node *parsedbtrees.Node, _ int) (bool, error) {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read root tree: %w", err)
	}
	return leaves, damage, nil
}

// ReadDirectory lists directory inode of the tree rooted at treeRoot
func (e *Examiner) ReadDirectory(ctx context.Context, treeRoot types.LogicalAddr, inode uint64) (*DirContent, error) {
	item, err := e.navigator.FindItem(ctx, treeRoot, inode, types.ItemTypeInodeItem)
	if err != nil {
		return nil, fmt.Errorf("failed to find inode %d: %w", inode, err)
	}
	inodeItem, ok := item.Payload.(*types.InodeItem)
	if !ok {
		return nil, types.NewDamageError("INODE_ITEM %d has payload %T", inode, item.Payload)
	}
	if !inodeItem.IsDir() {
		return nil, fmt.Errorf("inode %d is not a directory (mode %o)", inode, inodeItem.Mode)
	}

	content := &DirContent{Inode: inode, Item: inodeItem}

	ref, err := e.navigator.FindItem(ctx, treeRoot, inode, types.ItemTypeInodeRef)
	switch {
	case err == nil:
		if r, ok := ref.Payload.(*types.InodeRef); ok && len(r.Refs) > 0 {
			content.Name = r.Refs[0].Name
			content.ParentInode = ref.Key().Offset
		}
	case !errors.Is(err, btrees.ErrItemNotFound):
		return nil, fmt.Errorf("failed to read inode ref of %d: %w", inode, err)
	}

	children, err := e.directoryEntries(ctx, treeRoot, inode)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		e.fillChildInode(ctx, treeRoot, &child)
		content.Children = append(content.Children, child)
	}
	return content, nil
}

// directoryEntries prefers DIR_INDEX items, which keep creation order, and falls back
// to DIR_ITEMs.
func (e *Examiner) directoryEntries(ctx context.Context, treeRoot types.LogicalAddr, inode uint64) ([]DirChild, error) {
	index, err := e.navigator.CollectItems(ctx, treeRoot, inode, types.ItemTypeDirIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory index of %d: %w", inode, err)
	}

	var children []DirChild
	for _, it := range index {
		if di, ok := it.Payload.(*types.DirIndex); ok {
			children = append(children, dirChild(di.Entry, it.Key().Offset))
		}
	}
	if len(children) > 0 {
		return children, nil
	}

	dirItems, err := e.navigator.CollectItems(ctx, treeRoot, inode, types.ItemTypeDirItem)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory items of %d: %w", inode, err)
	}
	for _, it := range dirItems {
		if d, ok := it.Payload.(*types.DirItem); ok {
			for _, entry := range d.Entries {
				children = append(children, dirChild(entry, 0))
			}
		}
	}
	return children, nil
}

func dirChild(entry types.DirEntry, index uint64) DirChild {
	return DirChild{
		Inode: entry.Location.ObjectID,
		Name:  entry.Name,
		Type:  entry.Type,
		Index: index,

		Subvolume: entry.Location.Type == types.ItemTypeRootItem,
	}
}

func (e *Examiner) fillChildInode(ctx context.Context, treeRoot types.LogicalAddr, child *DirChild) {
	if child.Subvolume {
		return
	}
	item, err := e.navigator.FindItem(ctx, treeRoot, child.Inode, types.ItemTypeInodeItem)
	if err != nil {
		logrus.Debugf("inode %d of %q unavailable: %v", child.Inode, child.Name, err)
		child.InodeError = err.Error()
		return
	}
	if inode, ok := item.Payload.(*types.InodeItem); ok {
		child.Size = inode.Size
		child.ModifiedTime = inode.MTime.Time()
	}
}

// ValidateTree runs the node validator over every node of a tree
func (e *Examiner) ValidateTree(ctx context.Context, root types.LogicalAddr) ([]*parsedbtrees.ValidationResult, []DamageReport, error) {
	validator := parsedbtrees.NewNodeValidator(e.superblock.NodeSize, e.superblock.FSID)

	var results []*parsedbtrees.ValidationResult
	var damage []DamageReport
	opts := btrees.WalkOptions{
		ContinueOnDamage: true,
		OnDamage: func(addr types.LogicalAddr, depth int, err error) {
			damage = append(damage, DamageReport{Address: addr, Depth: depth, Reason: err.Error()})
		},
	}
	err := e.navigator.Walk(ctx, root, opts, func(node *parsedbtrees.Node, _ int) (bool, error) {
		results = append(results, validator.ValidateNode(node))
		return true, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate tree at 0x%x: %w", uint64(root), err)
	}
	return results, damage, nil
}

// AnalyzeTree reports node and item statistics of a tree
func (e *Examiner) AnalyzeTree(ctx context.Context, root types.LogicalAddr) (*btrees.TreeAnalysis, error) {
	return btrees.NewTreeAnalyzer(e.navigator).AnalyzeTree(ctx, root)
}

var _ ExaminerService = (*Examiner)(nil)
