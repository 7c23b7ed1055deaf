package btrees

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// WalkOptions controls Walk.
type WalkOptions struct {
	// Skip nodes that are damaged or use unsupported features instead of stopping.
	ContinueOnDamage bool

	// Called for every skipped node when ContinueOnDamage is set.
	OnDamage func(addr types.LogicalAddr, depth int, err error)
}

// NodeVisitor is called for every node reached by Walk. Returning false skips the
// node's children.
type NodeVisitor func(node *btrees.Node, depth int) (bool, error)

type walkFrame struct {
	addr        types.LogicalAddr
	depth       int
	expectLevel int
}

// Walk visits every node of the tree rooted at root in key order, parents before
// children. It uses an explicit stack bounded by the navigator's depth limit.
func (nav *TreeNavigator) Walk(ctx context.Context, root types.LogicalAddr, opts WalkOptions, visit NodeVisitor) error {
	stack := []walkFrame{{addr: root, expectLevel: -1}}
	visited := make(map[types.LogicalAddr]bool)

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, err := nav.walkNode(ctx, frame, visited)
		if err != nil {
			if ctx.Err() != nil || !opts.ContinueOnDamage || !isLocalDamage(err) {
				return err
			}
			logrus.Debugf("skipping node 0x%x at depth %d: %v", uint64(frame.addr), frame.depth, err)
			if opts.OnDamage != nil {
				opts.OnDamage(frame.addr, frame.depth, err)
			}
			continue
		}

		descend, err := visit(node, frame.depth)
		if err != nil {
			return err
		}
		if !descend || node.IsLeaf() {
			continue
		}

		nav.prefetch(ctx, node.Pointers)
		for i := len(node.Pointers) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				addr:        node.Pointers[i].BlockPtr,
				depth:       frame.depth + 1,
				expectLevel: int(node.Level()) - 1,
			})
		}
	}
	return nil
}

func (nav *TreeNavigator) walkNode(ctx context.Context, frame walkFrame, visited map[types.LogicalAddr]bool) (*btrees.Node, error) {
	if frame.depth >= nav.opts.MaxDepth {
		return nil, types.NewDamageError("node 0x%x exceeds depth limit %d", uint64(frame.addr), nav.opts.MaxDepth)
	}
	if visited[frame.addr] {
		return nil, types.NewDamageError("node 0x%x reached twice", uint64(frame.addr))
	}
	visited[frame.addr] = true

	node, err := nav.ReadNode(ctx, frame.addr)
	if err != nil {
		return nil, err
	}
	if err := checkLevel(node, frame.expectLevel); err != nil {
		return nil, err
	}
	return node, nil
}

// prefetch loads children into the cache concurrently. Failures are ignored here and
// reported when the child is visited.
func (nav *TreeNavigator) prefetch(ctx context.Context, ptrs []types.KeyPointer) {
	if nav.opts.PrefetchWorkers < 2 || len(ptrs) < 2 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nav.opts.PrefetchWorkers)
	for _, p := range ptrs {
		g.Go(func() error {
			_, _ = nav.ReadNode(gctx, p.BlockPtr)
			return nil
		})
	}
	_ = g.Wait()
}

func isLocalDamage(err error) bool {
	return errors.Is(err, types.ErrStructuralDamage) || errors.Is(err, types.ErrUnsupportedFeature)
}
