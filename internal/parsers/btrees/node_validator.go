package btrees

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// NodeValidator checks a decoded node for inconsistencies that decoding alone does
// not reject. Findings are reported, never fixed.
type NodeValidator struct {
	nodeSize uint32
	fsid     types.Identifier
}

// NewNodeValidator creates a validator for nodes of the given size belonging to fsid.
// An unused fsid skips the ownership check.
func NewNodeValidator(nodeSize uint32, fsid types.Identifier) *NodeValidator {
	if nodeSize == 0 {
		nodeSize = types.DefaultNodeSize
	}
	return &NodeValidator{nodeSize: nodeSize, fsid: fsid}
}

// ValidationResult contains the result of validation
type ValidationResult struct {
	Address  types.LogicalAddr
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateNode performs every check on a node
func (nv *NodeValidator) ValidateNode(node *Node) *ValidationResult {
	result := &ValidationResult{
		Address:  node.Address(),
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	nv.checkHeader(node, result)
	nv.checkKeyOrder(node, result)
	if node.IsLeaf() {
		nv.checkItemLayout(node, result)
	} else {
		nv.checkPointers(node, result)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}
	return result
}

// checkHeader validates fields of the header itself
func (nv *NodeValidator) checkHeader(node *Node, result *ValidationResult) {
	h := node.Header()

	if h.Level >= types.MaxTreeLevel {
		result.Errors = append(result.Errors, fmt.Sprintf("level %d exceeds maximum %d", h.Level, types.MaxTreeLevel-1))
	}
	if !nv.fsid.IsUnused() && h.FSID != nv.fsid {
		result.Errors = append(result.Errors, "node belongs to a different filesystem")
	}
	if h.Owner == 0 {
		result.Warnings = append(result.Warnings, "owner tree id is zero")
	}
	if h.Flags&types.NodeFlagWritten == 0 {
		result.Warnings = append(result.Warnings, "WRITTEN flag not set")
	}
	if !node.IsLeaf() && h.NumItems == 0 {
		result.Errors = append(result.Errors, "internal node has no pointers")
	}
}

// checkKeyOrder validates that keys ascend strictly
func (nv *NodeValidator) checkKeyOrder(node *Node, result *ValidationResult) {
	keys := make([]types.Key, 0, len(node.Items)+len(node.Pointers))
	for _, it := range node.Items {
		keys = append(keys, it.Key())
	}
	for _, p := range node.Pointers {
		keys = append(keys, p.Key)
	}

	for i := 1; i < len(keys); i++ {
		if keys[i-1].Compare(keys[i]) >= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"key %d (%d %s %d) does not sort after key %d",
				i, keys[i].ObjectID, keys[i].Type, keys[i].Offset, i-1))
		}
	}
}

// checkItemLayout validates payload placement inside a leaf
func (nv *NodeValidator) checkItemLayout(node *Node, result *ValidationResult) {
	tableEnd := uint64(len(node.Items)) * types.ItemHeaderSize
	dataEnd := uint64(nv.nodeSize) - types.NodeHeaderSize

	type span struct {
		index      int
		start, end uint64
	}
	spans := make([]span, 0, len(node.Items))

	for i, it := range node.Items {
		start := uint64(it.Header.DataOffset)
		end := start + uint64(it.Header.DataSize)
		if start < tableEnd {
			result.Errors = append(result.Errors, fmt.Sprintf("item %d payload overlaps the item table", i))
		}
		if end > dataEnd {
			result.Errors = append(result.Errors, fmt.Sprintf("item %d payload ends past node size", i))
		}
		if !it.Key().Type.IsKnown() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("item %d has unrecognised type %d", i, uint8(it.Key().Type)))
		}
		spans = append(spans, span{index: i, start: start, end: end})
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"payloads of items %d and %d overlap", spans[i-1].index, spans[i].index))
		}
	}
}

// checkPointers validates child references of an internal node
func (nv *NodeValidator) checkPointers(node *Node, result *ValidationResult) {
	gen := node.Header().Generation
	for i, p := range node.Pointers {
		if p.BlockPtr == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("pointer %d has a null block address", i))
		}
		if uint64(p.BlockPtr)%uint64(nv.nodeSize) != 0 && uint64(p.BlockPtr)%4096 != 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("pointer %d address 0x%x is not sector aligned", i, uint64(p.BlockPtr)))
		}
		if p.Generation > gen {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"pointer %d generation %d is newer than the node (%d)", i, p.Generation, gen))
		}
	}
}

// IsValid checks if a validation result indicates a valid node
func (vr *ValidationResult) IsValid() bool {
	return vr.Valid && len(vr.Errors) == 0
}

// ErrorString returns a formatted string of all errors
func (vr *ValidationResult) ErrorString() string {
	return formatFindings("Validation errors", vr.Errors)
}

// WarningString returns a formatted string of all warnings
func (vr *ValidationResult) WarningString() string {
	return formatFindings("Validation warnings", vr.Warnings)
}

func formatFindings(title string, findings []string) string {
	if len(findings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(title + ":\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	return b.String()
}
