package forktree

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a structural inconsistency.
type ErrorKind int

const (
	KindParentWithoutHistory ErrorKind = iota + 1
	KindNoTemporalAnchor
	KindChildrenWithoutClone
	KindParentNotFound
	KindDuplicateKey
	KindMissingDivergence
)

func (k ErrorKind) String() string {
	switch k {
	case KindParentWithoutHistory:
		return "parent has no commit history"
	case KindNoTemporalAnchor:
		return "no common commit or temporal anchor between parent and child"
	case KindChildrenWithoutClone:
		return "node with forks has no cloned repository"
	case KindParentNotFound:
		return "parent not found in tree"
	case KindDuplicateKey:
		return "repository already present in tree"
	case KindMissingDivergence:
		return "fork has no divergence point"
	default:
		return "structural inconsistency"
	}
}

// StructuralError reports a lineage inconsistency that must abort the run.
// Parent and Child name the edge involved; either may be zero when the
// inconsistency concerns a single node.
type StructuralError struct {
	Kind   ErrorKind
	Parent Key
	Child  Key

	ParentHistory []Commit
	ChildHistory  []Commit
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	switch {
	case e.Parent != (Key{}) && e.Child != (Key{}):
		fmt.Fprintf(&b, ": %s -> %s", e.Parent, e.Child)
	case e.Parent != (Key{}):
		fmt.Fprintf(&b, ": %s", e.Parent)
	case e.Child != (Key{}):
		fmt.Fprintf(&b, ": %s", e.Child)
	}
	if e.ParentHistory != nil || e.ChildHistory != nil {
		fmt.Fprintf(&b, "\nparent history: %v\nchild history: %v", e.ParentHistory, e.ChildHistory)
	}
	return b.String()
}
