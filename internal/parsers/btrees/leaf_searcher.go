package btrees

import (
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// SearchStatus tells a caller whether a leaf scan was conclusive.
type SearchStatus int

const (
	// SearchFound means a matching item was returned.
	SearchFound SearchStatus = iota

	// SearchExhausted means an item with a greater object id was reached, so no later
	// leaf can hold a match.
	SearchExhausted

	// SearchLeafEnd means the leaf ended without passing the object id. The next leaf
	// in key order may still hold a match.
	SearchLeafEnd
)

func (s SearchStatus) String() string {
	switch s {
	case SearchFound:
		return "found"
	case SearchExhausted:
		return "exhausted"
	case SearchLeafEnd:
		return "leaf end"
	}
	return "unknown"
}

// FindFirst returns the first item of leaf with the given object id and type.
func FindFirst(leaf *Node, objectID uint64, itemType types.ItemType) (*Item, SearchStatus) {
	for _, it := range leaf.Items {
		k := it.Key()
		if k.ObjectID > objectID {
			return nil, SearchExhausted
		}
		if k.ObjectID == objectID && k.Type == itemType {
			return it, SearchFound
		}
	}
	return nil, SearchLeafEnd
}

// CollectAll appends to found every item of leaf matching object id and type that is
// not already present. The returned bool is true once an item with a greater object
// id was seen, meaning the run of matches is complete.
func CollectAll(leaf *Node, objectID uint64, itemType types.ItemType, found []*Item) ([]*Item, bool) {
	seen := make(map[*Item]struct{}, len(found))
	for _, it := range found {
		seen[it] = struct{}{}
	}

	for _, it := range leaf.Items {
		k := it.Key()
		if k.ObjectID > objectID {
			return found, true
		}
		if k.ObjectID != objectID || k.Type != itemType {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		found = append(found, it)
	}
	return found, false
}

// RegularFileNames returns the names of regular files referenced by the DIR_ITEM
// entries of a leaf, in item order.
func RegularFileNames(leaf *Node) []string {
	var names []string
	for _, it := range leaf.Items {
		dir, ok := it.Payload.(*types.DirItem)
		if !ok {
			continue
		}
		for _, e := range dir.Entries {
			if e.Type == types.DirEntryRegularFile {
				names = append(names, e.Name)
			}
		}
	}
	return names
}
