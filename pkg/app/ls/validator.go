package ls

import (
	"github.com/deploymenttheory/go-btrfs/internal/types"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Validate validates a listing request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid image target", err)
	}
	if r.Tree != types.FSTreeObjectID && r.Tree < types.FirstFreeObjectID {
		return app.NewError(app.ErrCodeInvalidInput, "tree must be the FS tree (5) or a subvolume id (256 or above)", nil)
	}
	if r.Inode < types.FirstFreeObjectID {
		return app.NewError(app.ErrCodeInvalidInput, "inode numbers start at 256", nil)
	}
	return nil
}
