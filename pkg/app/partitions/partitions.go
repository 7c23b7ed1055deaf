package partitions

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/deploymenttheory/go-btrfs/internal/disk"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Request represents a partition listing request
type Request struct {
	ImagePath  string
	SectorSize uint64
}

// Response lists the GPT entries of an image
type Response struct {
	Image      string          `json:"image" yaml:"image"`
	Partitions []PartitionInfo `json:"partitions" yaml:"partitions"`
}

// PartitionInfo is one GPT entry
type PartitionInfo struct {
	Index    int    `json:"index" yaml:"index"`
	Name     string `json:"name" yaml:"name"`
	TypeID   string `json:"type_id" yaml:"type_id"`
	TypeName string `json:"type_name" yaml:"type_name"`
	Variant  string `json:"variant" yaml:"variant"`
	Start    uint64 `json:"start" yaml:"start"`
	Size     uint64 `json:"size" yaml:"size"`

	// Offset in sectors, ready for --offset
	StartSector uint64 `json:"start_sector" yaml:"start_sector"`

	Btrfs bool   `json:"btrfs" yaml:"btrfs"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	FSID  string `json:"fsid,omitempty" yaml:"fsid,omitempty"`
}

// Validate validates a partition listing request
func (r *Request) Validate() error {
	if r.ImagePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "image path is required", nil)
	}
	if r.SectorSize == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "sector size must not be zero", nil)
	}
	return nil
}

// Handle reads the partition table of the image
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	parts, err := disk.ListPartitions(req.ImagePath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIOFailure, fmt.Sprintf("cannot read partitions of %s", req.ImagePath), err)
	}

	resp := &Response{Image: req.ImagePath}
	for _, p := range parts {
		info := PartitionInfo{
			Index:       p.Index,
			Name:        p.Name,
			TypeID:      identifiers.Encode(p.TypeID),
			TypeName:    p.TypeName,
			Variant:     identifiers.VariantInfo(p.TypeID),
			Start:       p.Start,
			Size:        p.Size,
			StartSector: p.Start / req.SectorSize,
			Btrfs:       p.Btrfs,
		}
		if p.Btrfs {
			info.Label = p.Label
			info.FSID = identifiers.Encode(p.FSID)
		}
		resp.Partitions = append(resp.Partitions, info)
	}
	return resp, nil
}

// FormatOutput writes the listing in the given format
func FormatOutput(w io.Writer, resp *Response, format string) error {
	if format != "table" {
		return app.WriteStructured(w, resp, format)
	}
	if len(resp.Partitions) == 0 {
		fmt.Fprintf(w, "%s: no partitions\n", resp.Image)
		return nil
	}

	t := app.NewTable(w, resp.Image)
	t.AppendHeader(table.Row{"#", "Name", "Type", "Start sector", "Size", "btrfs"})
	for _, p := range resp.Partitions {
		btrfs := ""
		if p.Btrfs {
			btrfs = fmt.Sprintf("%q %s", p.Label, p.FSID)
		}
		t.AppendRow(table.Row{p.Index, p.Name, p.TypeName, p.StartSector, humanize.IBytes(p.Size), btrfs})
	}
	t.Render()
	return nil
}
