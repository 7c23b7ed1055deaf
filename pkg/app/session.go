package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-btrfs/internal/device"
	"github.com/deploymenttheory/go-btrfs/internal/managers/pool"
	"github.com/deploymenttheory/go-btrfs/internal/services"
)

// Session is an examiner over opened images. Close releases the images.
type Session struct {
	Examiner *services.Examiner
	handles  []device.Handle
}

// Close closes every image of the session
func (s *Session) Close() error {
	var errs []error
	for _, h := range s.handles {
		errs = append(errs, h.Close())
	}
	return errors.Join(errs...)
}

// OpenSession opens every image of target and assembles them as one pool
func OpenSession(ctx *Context, target ImageTarget) (*Session, error) {
	if err := target.Validate(); err != nil {
		return nil, NewError(ErrCodeInvalidInput, "invalid image target", err)
	}
	endian, err := ctx.Config.Endian()
	if err != nil {
		return nil, NewError(ErrCodeInvalidInput, "invalid byte order", err)
	}

	s := &Session{}
	sources := make([]pool.DeviceSource, 0, len(target.Paths))
	for _, path := range target.Paths {
		h, err := device.Open(path)
		if err != nil {
			_ = s.Close()
			return nil, NewError(ErrCodeIOFailure, fmt.Sprintf("cannot open image %s", path), err)
		}
		s.handles = append(s.handles, h)
		sources = append(sources, pool.DeviceSource{Name: path, Reader: h, Offset: target.OffsetBytes()})
		logrus.Debugf("opened %s (%d bytes)", path, h.Size())
	}

	examiner, err := services.NewExaminer(ctx, sources, services.ExaminerConfig{
		Endian:           endian,
		MaxTreeDepth:     ctx.Config.MaxTreeDepth,
		NodeCacheSize:    ctx.Config.NodeCacheSize,
		PrefetchWorkers:  ctx.Config.PrefetchWorkers,
		ContinueOnDamage: ctx.Config.ContinueOnDamage,
	})
	if err != nil {
		_ = s.Close()
		return nil, Classify("pool assembly failed", err)
	}
	s.Examiner = examiner
	return s, nil
}
