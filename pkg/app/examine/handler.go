package examine

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-btrfs/internal/managers/btrees"
	parsedbtrees "github.com/deploymenttheory/go-btrfs/internal/parsers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-btrfs/internal/services"
	"github.com/deploymenttheory/go-btrfs/internal/types"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Handle assembles the pool, decodes the root tree and builds the report
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := app.OpenSession(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	ex := session.Examiner

	resp := &Response{
		Pool:       poolInfo(ex),
		Superblock: superblockInfo(ex, ctx),
		Devices:    deviceInfo(ex),
	}
	if req.ShowChunks {
		resp.Chunks = chunkInfo(ex)
	}

	leaves, damage, err := ex.RootTreeLeaves(ctx)
	if err != nil {
		return nil, app.Classify("failed to read root tree", err)
	}
	for _, leaf := range leaves {
		resp.Leaves = append(resp.Leaves, leafInfo(leaf))
		resp.Roots = append(resp.Roots, rootsOf(leaf)...)
	}
	resp.Damage = damageInfo(damage)

	if req.Analyze || req.ValidateNodes {
		root, err := ex.TreeRoot(ctx, req.Tree)
		if err != nil {
			return nil, app.Classify(fmt.Sprintf("cannot locate tree %d", req.Tree), err)
		}
		if req.Analyze {
			analysis, err := ex.AnalyzeTree(ctx, root)
			if err != nil {
				return nil, app.Classify(fmt.Sprintf("failed to analyze tree %d", req.Tree), err)
			}
			resp.Analysis = analysisInfo(req.Tree, analysis)
		}
		if req.ValidateNodes {
			results, damage, err := ex.ValidateTree(ctx, root)
			if err != nil {
				return nil, app.Classify(fmt.Sprintf("failed to validate tree %d", req.Tree), err)
			}
			for _, r := range results {
				resp.Validation = append(resp.Validation, ValidationInfo{
					Address:  uint64(r.Address),
					Valid:    r.IsValid(),
					Errors:   r.Errors,
					Warnings: r.Warnings,
				})
			}
			resp.Damage = append(resp.Damage, damageInfo(damage)...)
		}
	}

	resp.Elapsed = time.Since(start)
	logrus.Infof("examined %d root tree leaves in %v", len(resp.Leaves), resp.Elapsed)
	return resp, nil
}

func poolInfo(ex *services.Examiner) PoolInfo {
	p := ex.Pool()
	declared := ex.Superblock().NumDevices
	return PoolInfo{
		FSID:     identifiers.Encode(p.FSID),
		Found:    p.Len(),
		Declared: declared,
		Complete: uint64(p.Len()) == declared,
	}
}

func superblockInfo(ex *services.Examiner, ctx *app.Context) SuperblockInfo {
	sb := ex.Superblock()
	info := SuperblockInfo{
		Label:          sb.Label,
		Device:         sb.DevItem.DeviceID,
		Generation:     sb.Generation,
		RootTree:       uint64(sb.RootTreeAddr),
		RootLevel:      sb.RootLevel,
		ChunkTree:      uint64(sb.ChunkTreeAddr),
		ChunkRootLevel: sb.ChunkRootLevel,
		TotalBytes:     sb.TotalBytes,
		BytesUsed:      sb.BytesUsed,
		SectorSize:     sb.SectorSize,
		NodeSize:       sb.NodeSize,
		StripeSize:     sb.StripeSize,
		NumDevices:     sb.NumDevices,
		ChecksumType:   sb.ChecksumType,
		IncompatFlags:  sb.IncompatFlags,
	}
	if endian, err := ctx.Config.Endian(); err == nil {
		if sys, err := superblock.SystemChunks(sb, endian); err == nil {
			info.SysChunkEntries = len(sys)
		}
	}
	return info
}

func deviceInfo(ex *services.Examiner) []DeviceInfo {
	inTree := make(map[uint64]bool)
	for _, d := range ex.Devices() {
		inTree[d.DeviceID] = true
	}

	var out []DeviceInfo
	for _, d := range ex.Pool().Devices() {
		out = append(out, DeviceInfo{
			ID:          d.ID,
			UUID:        identifiers.Encode(d.UUID),
			Image:       d.Name,
			Offset:      d.Offset,
			Size:        d.Size(),
			InChunkTree: inTree[d.ID],
		})
	}
	return out
}

func chunkInfo(ex *services.Examiner) []ChunkInfo {
	var out []ChunkInfo
	for _, m := range ex.Chunks() {
		c := ChunkInfo{
			Logical: uint64(m.Start),
			Length:  m.Chunk.Length,
			Type:    BlockGroupString(m.Chunk.Type),
		}
		for _, s := range m.Chunk.Stripes {
			c.Stripes = append(c.Stripes, StripeInfo{Device: s.DeviceID, Offset: s.Offset})
		}
		out = append(out, c)
	}
	return out
}

func leafInfo(leaf *parsedbtrees.Node) LeafInfo {
	h := leaf.Header()
	info := LeafInfo{
		Address:    uint64(leaf.Address()),
		Owner:      h.Owner,
		Generation: h.Generation,
		Files:      parsedbtrees.RegularFileNames(leaf),
	}
	for _, it := range leaf.Items {
		k := it.Key()
		info.Items = append(info.Items, ItemInfo{
			ObjectID: k.ObjectID,
			Type:     k.Type.String(),
			Offset:   k.Offset,
			Size:     it.Header.DataSize,
			Summary:  Summarize(it.Payload),
		})
	}
	return info
}

func rootsOf(leaf *parsedbtrees.Node) []RootInfo {
	var out []RootInfo
	for _, it := range leaf.Items {
		root, ok := it.Payload.(*types.RootItem)
		if !ok {
			continue
		}
		id := it.Key().ObjectID
		info := RootInfo{
			ObjectID:   id,
			Name:       types.TreeName(id),
			Bytenr:     uint64(root.Bytenr),
			Level:      root.Level,
			Generation: root.Generation,
			ReadOnly:   root.Flags&types.RootSubvolReadOnly != 0,
		}
		if root.HasExtended {
			info.UUID = identifiers.Encode(root.UUID)
		}
		out = append(out, info)
	}
	return out
}

func damageInfo(reports []services.DamageReport) []DamageInfo {
	var out []DamageInfo
	for _, d := range reports {
		out = append(out, DamageInfo{Address: uint64(d.Address), Depth: d.Depth, Reason: d.Reason})
	}
	return out
}

func analysisInfo(tree uint64, a *btrees.TreeAnalysis) *AnalysisInfo {
	info := &AnalysisInfo{
		Tree:       tree,
		Root:       uint64(a.Root),
		Height:     a.Height,
		Nodes:      a.TotalNodes,
		Items:      a.TotalItems,
		FillFactor: a.FillFactor,
		ItemTypes:  make(map[string]int, len(a.ItemTypes)),
		Damaged:    len(a.Damaged),
	}
	for t, n := range a.ItemTypes {
		info.ItemTypes[t.String()] = n
	}
	return info
}

// Summarize describes a decoded payload in one line
func Summarize(payload types.ItemPayload) string {
	switch p := payload.(type) {
	case *types.DirItem:
		parts := make([]string, 0, len(p.Entries))
		for _, e := range p.Entries {
			parts = append(parts, describeEntry(e))
		}
		return strings.Join(parts, "; ")
	case *types.DirIndex:
		return describeEntry(p.Entry)
	case *types.InodeItem:
		return fmt.Sprintf("size %s mode %o links %d uid %d gid %d", humanize.IBytes(p.Size), p.Mode, p.NLink, p.UID, p.GID)
	case *types.InodeRef:
		parts := make([]string, 0, len(p.Refs))
		for _, r := range p.Refs {
			parts = append(parts, fmt.Sprintf("index %d name %q", r.Index, r.Name))
		}
		return strings.Join(parts, "; ")
	case *types.RootItem:
		return fmt.Sprintf("root 0x%x level %d generation %d", uint64(p.Bytenr), p.Level, p.Generation)
	case *types.DevItem:
		return fmt.Sprintf("devid %d size %s uuid %s", p.DeviceID, humanize.IBytes(p.TotalBytes), identifiers.Encode(p.DeviceUUID))
	case *types.ChunkItem:
		return fmt.Sprintf("length %s %s stripes %d", humanize.IBytes(p.Length), BlockGroupString(p.Type), p.NumStripes)
	case *types.UnknownItem:
		return fmt.Sprintf("%d undecoded bytes", len(p.Raw))
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", payload)
}

func describeEntry(e types.DirEntry) string {
	return fmt.Sprintf("%q -> (%d %s %d) %s", e.Name, e.Location.ObjectID, e.Location.Type, e.Location.Offset, e.Type)
}

var blockGroupNames = []struct {
	flag uint64
	name string
}{
	{types.BlockGroupData, "DATA"},
	{types.BlockGroupSystem, "SYSTEM"},
	{types.BlockGroupMetadata, "METADATA"},
	{types.BlockGroupRAID0, "RAID0"},
	{types.BlockGroupRAID1, "RAID1"},
	{types.BlockGroupDUP, "DUP"},
	{types.BlockGroupRAID10, "RAID10"},
	{types.BlockGroupRAID5, "RAID5"},
	{types.BlockGroupRAID6, "RAID6"},
	{types.BlockGroupRAID1C3, "RAID1C3"},
	{types.BlockGroupRAID1C4, "RAID1C4"},
}

// BlockGroupString renders chunk type flags as NAME|NAME
func BlockGroupString(flags uint64) string {
	var names []string
	for _, bg := range blockGroupNames {
		if flags&bg.flag != 0 {
			names = append(names, bg.name)
			flags &^= bg.flag
		}
	}
	if flags != 0 {
		names = append(names, fmt.Sprintf("0x%x", flags))
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
