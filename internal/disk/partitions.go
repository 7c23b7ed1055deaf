package disk

import (
	"encoding/binary"
	"fmt"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-btrfs/internal/device"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Partition is one GPT entry of an image
type Partition struct {
	Index  int
	Name   string
	TypeID types.Identifier

	// Classification of TypeID, UnknownType when the type is not recognised
	TypeName string

	// Start and Size in bytes
	Start uint64
	Size  uint64

	// Set when a btrfs superblock is present in the partition
	Btrfs bool
	Label string
	FSID  types.Identifier
}

// ListPartitions reads the GPT of the image at path and probes every partition for a
// btrfs superblock.
func ListPartitions(path string) ([]Partition, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open disk image: %w", err)
	}
	defer d.Close()

	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, fmt.Errorf("failed to read partition table: %w", err)
	}
	gptTable, ok := table.(*gpt.Table)
	if !ok {
		return nil, fmt.Errorf("partition table is %s, only GPT is supported", table.Type())
	}

	img, err := device.OpenImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	sectorSize := uint64(gptTable.LogicalSectorSize)
	if sectorSize == 0 {
		sectorSize = 512
	}

	var out []Partition
	for i, p := range gptTable.Partitions {
		if p == nil || p.Type == gpt.Unused {
			continue
		}
		typeID, err := identifiers.FromString(string(p.Type))
		if err != nil {
			logrus.Warnf("partition %d has malformed type %q: %v", i+1, p.Type, err)
		}

		part := Partition{
			Index:    i + 1,
			Name:     p.Name,
			TypeID:   typeID,
			TypeName: identifiers.Classify(typeID),
			Start:    p.Start * sectorSize,
			Size:     (p.End - p.Start + 1) * sectorSize,
		}
		probe(img, &part)
		out = append(out, part)
	}
	return out, nil
}

// probe fills the btrfs fields when the partition holds a readable superblock
func probe(img *device.Image, part *Partition) {
	window, err := device.NewOffsetReader(img, part.Start)
	if err != nil {
		logrus.Debugf("partition %d lies outside the image: %v", part.Index, err)
		return
	}
	sb, err := superblock.Read(window, 0, binary.LittleEndian)
	if err != nil {
		logrus.Debugf("partition %d: no btrfs superblock: %v", part.Index, err)
		return
	}
	part.Btrfs = true
	part.Label = sb.Label
	part.FSID = sb.FSID
}
