package btrees

import (
	"context"
	"fmt"
	"sort"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// LevelInfo summarises the nodes found at one depth.
type LevelInfo struct {
	Depth           int
	NodeCount       int
	AverageKeyCount float64
	MinKeyCount     int
	MaxKeyCount     int
}

// DamageRecord is a node Walk had to skip.
type DamageRecord struct {
	Address types.LogicalAddr
	Depth   int
	Err     error
}

// TreeAnalysis describes the shape and content of one tree.
type TreeAnalysis struct {
	Root       types.LogicalAddr
	Height     int
	TotalNodes int
	TotalItems int
	Levels     []LevelInfo

	// Percentage of node bytes holding headers, records or payloads.
	FillFactor float64

	ItemTypes map[types.ItemType]int
	Damaged   []DamageRecord
}

// TreeAnalyzer gathers statistics about trees through a navigator.
type TreeAnalyzer struct {
	navigator *TreeNavigator
}

// NewTreeAnalyzer creates an analyzer.
func NewTreeAnalyzer(navigator *TreeNavigator) *TreeAnalyzer {
	return &TreeAnalyzer{navigator: navigator}
}

// AnalyzeTree walks the whole tree. Damaged nodes are recorded and skipped.
func (a *TreeAnalyzer) AnalyzeTree(ctx context.Context, root types.LogicalAddr) (*TreeAnalysis, error) {
	analysis := &TreeAnalysis{Root: root, ItemTypes: make(map[types.ItemType]int)}
	levelMap := make(map[int][]int)
	var usedBytes uint64

	opts := WalkOptions{
		ContinueOnDamage: true,
		OnDamage: func(addr types.LogicalAddr, depth int, err error) {
			analysis.Damaged = append(analysis.Damaged, DamageRecord{Address: addr, Depth: depth, Err: err})
		},
	}

	err := a.navigator.Walk(ctx, root, opts, func(node *btrees.Node, depth int) (bool, error) {
		analysis.TotalNodes++
		levelMap[depth] = append(levelMap[depth], int(node.ItemCount()))
		usedBytes += nodeUsedBytes(node)

		for _, it := range node.Items {
			analysis.TotalItems++
			analysis.ItemTypes[it.Key().Type]++
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk tree at 0x%x: %w", uint64(root), err)
	}

	for depth := 0; depth < len(levelMap); depth++ {
		counts, ok := levelMap[depth]
		if !ok {
			break
		}
		analysis.Levels = append(analysis.Levels, summariseLevel(depth, counts))
	}
	analysis.Height = len(analysis.Levels)

	if analysis.TotalNodes > 0 {
		capacity := uint64(analysis.TotalNodes) * uint64(a.navigator.opts.NodeSize)
		analysis.FillFactor = float64(usedBytes) / float64(capacity) * 100.0
	}

	return analysis, nil
}

// SortedItemTypes returns the item types seen, in type order.
func (t *TreeAnalysis) SortedItemTypes() []types.ItemType {
	out := make([]types.ItemType, 0, len(t.ItemTypes))
	for it := range t.ItemTypes {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func summariseLevel(depth int, counts []int) LevelInfo {
	info := LevelInfo{Depth: depth, NodeCount: len(counts), MinKeyCount: counts[0], MaxKeyCount: counts[0]}
	total := 0
	for _, c := range counts {
		total += c
		info.MinKeyCount = min(info.MinKeyCount, c)
		info.MaxKeyCount = max(info.MaxKeyCount, c)
	}
	info.AverageKeyCount = float64(total) / float64(len(counts))
	return info
}

func nodeUsedBytes(node *btrees.Node) uint64 {
	used := uint64(types.NodeHeaderSize)
	if !node.IsLeaf() {
		return used + uint64(len(node.Pointers))*types.KeyPointerSize
	}
	for _, it := range node.Items {
		used += types.ItemHeaderSize + uint64(it.Header.DataSize)
	}
	return used
}
