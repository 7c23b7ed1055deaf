package ls

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/deploymenttheory/go-btrfs/internal/managers/btrees"
	"github.com/deploymenttheory/go-btrfs/internal/services"
	"github.com/deploymenttheory/go-btrfs/internal/types"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Handle lists one directory of the chosen tree
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := app.OpenSession(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	ex := session.Examiner

	root, err := ex.TreeRoot(ctx, req.Tree)
	if errors.Is(err, btrees.ErrItemNotFound) {
		return nil, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("tree %d not found; available: %s", req.Tree, availableTrees(ctx, ex)), err)
	}
	if err != nil {
		return nil, app.Classify(fmt.Sprintf("cannot locate tree %d", req.Tree), err)
	}

	dir, err := ex.ReadDirectory(ctx, root, req.Inode)
	if errors.Is(err, btrees.ErrItemNotFound) {
		return nil, app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("inode %d not found in tree %d", req.Inode, req.Tree), err)
	}
	if err != nil {
		return nil, app.Classify(fmt.Sprintf("cannot read directory %d", req.Inode), err)
	}

	resp := &Response{
		Tree:     req.Tree,
		TreeRoot: uint64(root),
		Directory: DirInfo{
			Inode:    dir.Inode,
			Name:     dir.Name,
			Parent:   dir.ParentInode,
			Mode:     fs.FileMode(dir.Item.Mode & 0o777).String(),
			Links:    dir.Item.NLink,
			Modified: dir.Item.MTime.Time(),
		},
	}
	for _, c := range dir.Children {
		resp.Entries = append(resp.Entries, entryInfo(c))
	}
	return resp, nil
}

func entryInfo(c services.DirChild) EntryInfo {
	return EntryInfo{
		Index:     c.Index,
		Inode:     c.Inode,
		Name:      c.Name,
		Type:      c.Type.String(),
		Size:      c.Size,
		Modified:  c.ModifiedTime,
		Subvolume: c.Subvolume,
		Error:     c.InodeError,
	}
}

func availableTrees(ctx *app.Context, ex *services.Examiner) string {
	roots, err := ex.ListRoots(ctx)
	if err != nil {
		return "unknown"
	}
	var ids []string
	for _, r := range roots {
		if r.ObjectID == types.FSTreeObjectID || r.ObjectID >= types.FirstFreeObjectID {
			ids = append(ids, fmt.Sprintf("%d", r.ObjectID))
		}
	}
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
