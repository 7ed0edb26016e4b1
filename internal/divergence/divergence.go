// Package divergence finds the commit at which a fork left its parent.
package divergence

import (
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// Resolve returns the divergence point of child relative to parent.
//
// The most recent parent commit also present in the child wins. When the
// histories share no identifier, the parent's latest commit at or before the
// child's earliest commit is paired with that earliest commit. A child
// without history yields nil and no error.
func Resolve(parent, child *forktree.Node) (*forktree.Divergence, error) {
	if !child.HasHistory() {
		return nil, nil
	}
	if !parent.HasHistory() {
		return nil, &forktree.StructuralError{
			Kind:   forktree.KindParentWithoutHistory,
			Parent: parent.Key(),
			Child:  child.Key(),
		}
	}

	childHashes := make(map[string]struct{}, len(child.History))
	for _, c := range child.History {
		childHashes[c.Hash] = struct{}{}
	}

	newestFirst := append([]forktree.Commit(nil), parent.History...)
	forktree.SortNewestFirst(newestFirst)

	for _, c := range newestFirst {
		if _, ok := childHashes[c.Hash]; ok {
			return &forktree.Divergence{ParentHash: c.Hash, ChildHash: c.Hash}, nil
		}
	}

	// rewritten history: anchor on time
	earliest, _ := forktree.Earliest(child.History)
	for _, c := range newestFirst {
		if c.Timestamp <= earliest.Timestamp {
			return &forktree.Divergence{ParentHash: c.Hash, ChildHash: earliest.Hash}, nil
		}
	}

	return nil, &forktree.StructuralError{
		Kind:          forktree.KindNoTemporalAnchor,
		Parent:        parent.Key(),
		Child:         child.Key(),
		ParentHistory: parent.History,
		ChildHistory:  child.History,
	}
}

// Annotate resolves every parent/fork edge of t and stores the result on the
// fork. It returns the number of edges that received a divergence point.
func Annotate(t *forktree.Tree) (int, error) {
	resolved := 0
	var err error
	t.Walk(func(_ forktree.Handle, n *forktree.Node) bool {
		for _, c := range n.Children {
			child := t.Node(c)
			var d *forktree.Divergence
			d, err = Resolve(n, child)
			if err != nil {
				return false
			}
			child.Divergence = d
			if d != nil {
				resolved++
			}
		}
		return true
	})
	return resolved, err
}
