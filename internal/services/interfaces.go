package services

import (
	"context"

	"github.com/deploymenttheory/go-btrfs/internal/managers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/managers/chunks"
	"github.com/deploymenttheory/go-btrfs/internal/managers/pool"
	parsedbtrees "github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ExaminerService provides read-only access to an assembled btrfs pool
type ExaminerService interface {
	Pool() *pool.Pool
	Superblock() *types.Superblock
	Chunks() []chunks.Mapping
	Devices() []*types.DevItem
	ListRoots(ctx context.Context) ([]RootEntry, error)
	TreeRoot(ctx context.Context, treeID uint64) (types.LogicalAddr, error)
	RootTreeLeaves(ctx context.Context) ([]*parsedbtrees.Node, []DamageReport, error)
	ReadDirectory(ctx context.Context, treeRoot types.LogicalAddr, inode uint64) (*DirContent, error)
	ValidateTree(ctx context.Context, root types.LogicalAddr) ([]*parsedbtrees.ValidationResult, []DamageReport, error)
	AnalyzeTree(ctx context.Context, root types.LogicalAddr) (*btrees.TreeAnalysis, error)
}
