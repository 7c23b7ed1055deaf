package pool

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/identifiers"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DeviceSource is one image handed to Assemble.
type DeviceSource struct {
	// Name used in diagnostics, usually the image path.
	Name string

	Reader interfaces.ByteRangeReader

	// Byte offset of the device inside the image.
	Offset uint64
}

// Device is one validated member of a pool.
type Device struct {
	ID         uint64
	Offset     uint64
	UUID       types.Identifier
	Superblock *types.Superblock
	Name       string
	Reader     interfaces.ByteRangeReader
}

// Size returns the device size recorded in its superblock.
func (d *Device) Size() uint64 {
	return d.Superblock.DevItem.TotalBytes
}

// Pool is a fully assembled set of devices sharing one filesystem id. There is no
// partially assembled pool: Assemble either returns every declared device or fails.
type Pool struct {
	FSID      types.Identifier
	devices   map[uint64]*Device
	canonical *Device
}

// Assemble reads the superblock of every source and validates them as one pool.
// Sources are checked in the order given; the first fsid seen is the reference.
func Assemble(ctx context.Context, sources []DeviceSource, endian binary.ByteOrder) (*Pool, error) {
	if len(sources) == 0 {
		return nil, &types.FsError{Kind: types.KindPoolIncomplete, Message: "no devices supplied"}
	}

	superblocks := make([]*types.Superblock, len(sources))
	readErrs := make([]error, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				readErrs[i] = err
				return nil
			}
			sb, err := superblock.Read(src.Reader, src.Offset, endian)
			if err != nil {
				readErrs[i] = fmt.Errorf("device %s: %w", src.Name, err)
				return nil
			}
			superblocks[i] = sb
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(readErrs...); err != nil {
		return nil, err
	}

	p := &Pool{devices: make(map[uint64]*Device, len(sources))}
	for i, src := range sources {
		sb := superblocks[i]
		if i == 0 {
			p.FSID = sb.FSID
		} else if sb.FSID != p.FSID {
			return nil, types.NewPoolMismatchError("device %s has fsid %s, expected %s",
				src.Name, identifiers.Encode(sb.FSID), identifiers.Encode(p.FSID))
		}

		id := sb.DevItem.DeviceID
		if prev, dup := p.devices[id]; dup {
			return nil, types.NewPoolMismatchError("devices %s and %s both claim device id %d", prev.Name, src.Name, id)
		}

		p.devices[id] = &Device{
			ID:         id,
			Offset:     src.Offset,
			UUID:       sb.DevItem.DeviceUUID,
			Superblock: sb,
			Name:       src.Name,
			Reader:     src.Reader,
		}
		logrus.Debugf("device %d (%s) at offset 0x%x, uuid %s", id, src.Name, src.Offset, identifiers.Encode(sb.DevItem.DeviceUUID))
	}

	found := uint64(len(p.devices))
	for _, d := range p.devices {
		if declared := d.Superblock.NumDevices; declared != found {
			return nil, &types.PoolIncompleteError{Found: found, Declared: declared}
		}
	}

	p.canonical = p.devices[1]
	if p.canonical == nil {
		p.canonical = p.Devices()[0]
		logrus.Warnf("no device with id 1, using device %d superblock", p.canonical.ID)
	}

	return p, nil
}

// Devices returns the members ordered by device id.
func (p *Pool) Devices() []*Device {
	out := make([]*Device, 0, len(p.devices))
	for _, d := range p.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Device returns the member with the given id.
func (p *Pool) Device(id uint64) (*Device, bool) {
	d, ok := p.devices[id]
	return d, ok
}

// Len returns the number of members.
func (p *Pool) Len() int {
	return len(p.devices)
}

// Canonical returns the superblock of device 1, or of the lowest id when there is no
// device 1.
func (p *Pool) Canonical() *types.Superblock {
	return p.canonical.Superblock
}

// CanonicalDevice returns the device Canonical was taken from.
func (p *Pool) CanonicalDevice() *Device {
	return p.canonical
}

// DeviceOffset returns where device id starts inside its image.
func (p *Pool) DeviceOffset(id uint64) (uint64, error) {
	d, ok := p.devices[id]
	if !ok {
		return 0, types.NewDamageError("device %d is not part of the pool", id)
	}
	return d.Offset, nil
}

// DeviceSize returns the size of device id.
func (p *Pool) DeviceSize(id uint64) (uint64, error) {
	d, ok := p.devices[id]
	if !ok {
		return 0, types.NewDamageError("device %d is not part of the pool", id)
	}
	return d.Size(), nil
}

// ReadPhysical reads length bytes at an absolute offset of a member's image.
func (p *Pool) ReadPhysical(addr types.PhysicalAddr, length uint64) ([]byte, error) {
	d, ok := p.devices[addr.DeviceID]
	if !ok {
		return nil, types.NewDamageError("device %d is not part of the pool", addr.DeviceID)
	}
	data, err := d.Reader.ReadBytes(addr.Offset, length)
	if err != nil {
		return nil, types.NewIOError(err, "failed to read %d bytes at 0x%x of device %d", length, addr.Offset, addr.DeviceID)
	}
	return data, nil
}
