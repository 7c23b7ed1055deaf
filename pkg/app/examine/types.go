package examine

import (
	"time"

	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Request represents a pool examination request
type Request struct {
	Target app.ImageTarget

	// Include the chunk map in the report
	ShowChunks bool

	// Tree statistics and node validation for Tree
	Analyze       bool
	ValidateNodes bool
	Tree          uint64
}

// Response is the examination report
type Response struct {
	Pool       PoolInfo         `json:"pool" yaml:"pool"`
	Superblock SuperblockInfo   `json:"superblock" yaml:"superblock"`
	Devices    []DeviceInfo     `json:"devices" yaml:"devices"`
	Chunks     []ChunkInfo      `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Roots      []RootInfo       `json:"roots" yaml:"roots"`
	Leaves     []LeafInfo       `json:"leaves" yaml:"leaves"`
	Damage     []DamageInfo     `json:"damage,omitempty" yaml:"damage,omitempty"`
	Analysis   *AnalysisInfo    `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Validation []ValidationInfo `json:"validation,omitempty" yaml:"validation,omitempty"`
	Elapsed    time.Duration    `json:"elapsed" yaml:"elapsed"`
}

// PoolInfo is the pool validation result
type PoolInfo struct {
	FSID     string `json:"fsid" yaml:"fsid"`
	Found    int    `json:"found" yaml:"found"`
	Declared uint64 `json:"declared" yaml:"declared"`
	Complete bool   `json:"complete" yaml:"complete"`
}

// SuperblockInfo summarises the canonical superblock
type SuperblockInfo struct {
	Label           string `json:"label" yaml:"label"`
	Device          uint64 `json:"device" yaml:"device"`
	Generation      uint64 `json:"generation" yaml:"generation"`
	RootTree        uint64 `json:"root_tree" yaml:"root_tree"`
	RootLevel       uint8  `json:"root_level" yaml:"root_level"`
	ChunkTree       uint64 `json:"chunk_tree" yaml:"chunk_tree"`
	ChunkRootLevel  uint8  `json:"chunk_root_level" yaml:"chunk_root_level"`
	TotalBytes      uint64 `json:"total_bytes" yaml:"total_bytes"`
	BytesUsed       uint64 `json:"bytes_used" yaml:"bytes_used"`
	SectorSize      uint32 `json:"sector_size" yaml:"sector_size"`
	NodeSize        uint32 `json:"node_size" yaml:"node_size"`
	StripeSize      uint32 `json:"stripe_size" yaml:"stripe_size"`
	NumDevices      uint64 `json:"num_devices" yaml:"num_devices"`
	ChecksumType    uint16 `json:"checksum_type" yaml:"checksum_type"`
	IncompatFlags   uint64 `json:"incompat_flags" yaml:"incompat_flags"`
	SysChunkEntries int    `json:"sys_chunk_entries" yaml:"sys_chunk_entries"`
}

// DeviceInfo is one pool member
type DeviceInfo struct {
	ID     uint64 `json:"id" yaml:"id"`
	UUID   string `json:"uuid" yaml:"uuid"`
	Image  string `json:"image" yaml:"image"`
	Offset uint64 `json:"offset" yaml:"offset"`
	Size   uint64 `json:"size" yaml:"size"`

	// Set when the chunk tree holds a DEV_ITEM for the device
	InChunkTree bool `json:"in_chunk_tree" yaml:"in_chunk_tree"`
}

// ChunkInfo is one entry of the chunk map
type ChunkInfo struct {
	Logical uint64       `json:"logical" yaml:"logical"`
	Length  uint64       `json:"length" yaml:"length"`
	Type    string       `json:"type" yaml:"type"`
	Stripes []StripeInfo `json:"stripes" yaml:"stripes"`
}

// StripeInfo is one physical placement of a chunk
type StripeInfo struct {
	Device uint64 `json:"device" yaml:"device"`
	Offset uint64 `json:"offset" yaml:"offset"`
}

// RootInfo is one ROOT_ITEM of the root tree
type RootInfo struct {
	ObjectID   uint64 `json:"object_id" yaml:"object_id"`
	Name       string `json:"name" yaml:"name"`
	Bytenr     uint64 `json:"bytenr" yaml:"bytenr"`
	Level      uint8  `json:"level" yaml:"level"`
	Generation uint64 `json:"generation" yaml:"generation"`
	UUID       string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	ReadOnly   bool   `json:"read_only" yaml:"read_only"`
}

// LeafInfo is one decoded root-tree leaf
type LeafInfo struct {
	Address    uint64     `json:"address" yaml:"address"`
	Owner      uint64     `json:"owner" yaml:"owner"`
	Generation uint64     `json:"generation" yaml:"generation"`
	Items      []ItemInfo `json:"items" yaml:"items"`

	// Names of regular files referenced by the leaf's directory entries
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// ItemInfo is one leaf item
type ItemInfo struct {
	ObjectID uint64 `json:"object_id" yaml:"object_id"`
	Type     string `json:"type" yaml:"type"`
	Offset   uint64 `json:"offset" yaml:"offset"`
	Size     uint32 `json:"size" yaml:"size"`
	Summary  string `json:"summary" yaml:"summary"`
}

// DamageInfo is a node skipped during the scan
type DamageInfo struct {
	Address uint64 `json:"address" yaml:"address"`
	Depth   int    `json:"depth" yaml:"depth"`
	Reason  string `json:"reason" yaml:"reason"`
}

// AnalysisInfo holds tree statistics
type AnalysisInfo struct {
	Tree       uint64         `json:"tree" yaml:"tree"`
	Root       uint64         `json:"root" yaml:"root"`
	Height     int            `json:"height" yaml:"height"`
	Nodes      int            `json:"nodes" yaml:"nodes"`
	Items      int            `json:"items" yaml:"items"`
	FillFactor float64        `json:"fill_factor" yaml:"fill_factor"`
	ItemTypes  map[string]int `json:"item_types" yaml:"item_types"`
	Damaged    int            `json:"damaged" yaml:"damaged"`
}

// ValidationInfo is the validator result for one node
type ValidationInfo struct {
	Address  uint64   `json:"address" yaml:"address"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Err returns a structural damage error when nodes were skipped or failed
// validation, so the command can exit non-zero after printing the report.
func (r *Response) Err() error {
	invalid := 0
	for _, v := range r.Validation {
		if !v.Valid {
			invalid++
		}
	}
	if len(r.Damage) == 0 && invalid == 0 {
		return nil
	}
	msg := "filesystem metadata is damaged"
	switch {
	case len(r.Damage) > 0 && invalid > 0:
		msg += ": nodes skipped and nodes failing validation"
	case len(r.Damage) > 0:
		msg += ": nodes skipped"
	default:
		msg += ": nodes failing validation"
	}
	return app.NewError(app.ErrCodeStructuralDamage, msg, nil)
}
