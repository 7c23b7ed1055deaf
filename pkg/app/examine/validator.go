package examine

import (
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Validate validates an examination request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid image target", err)
	}
	if (r.Analyze || r.ValidateNodes) && r.Tree == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "tree id is required for analysis or validation", nil)
	}
	return nil
}
