// Package prune reduces an annotated fork tree to the repositories and
// commits worth drawing.
package prune

import (
	"fmt"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// Report summarises a repository pruning run.
type Report struct {
	// MissingClones lists leaves removed because their clone does not exist.
	MissingClones []forktree.Key
	// Unchanged lists forks removed because their head never moved past the
	// divergence point.
	Unchanged []forktree.Key
	// Dropped counts descendants removed together with an unchanged fork.
	Dropped int
}

// Removed is the total number of nodes taken out of the tree.
func (r Report) Removed() int {
	return len(r.MissingClones) + len(r.Unchanged) + r.Dropped
}

// Unchanged reports whether a fork's latest commit is the parent-side
// divergence commit. The root and forks without a divergence point are
// never unchanged.
func Unchanged(n *forktree.Node) bool {
	if n.Divergence == nil {
		return false
	}
	latest, ok := forktree.Latest(n.History)
	return ok && latest.Hash == n.Divergence.ParentHash
}

// Repos removes leaves whose clone is missing, then forks that are
// unchanged since forking. Both passes walk one post-order snapshot taken
// before the first removal.
func Repos(t *forktree.Tree, hasClone func(*forktree.Node) bool) (Report, error) {
	var report Report
	order := t.PostOrder()

	for _, h := range order {
		if !t.Attached(h) {
			continue
		}
		n := t.Node(h)
		if hasClone(n) {
			continue
		}
		if len(n.Children) > 0 {
			return report, &forktree.StructuralError{Kind: forktree.KindChildrenWithoutClone, Parent: n.Key()}
		}
		if n.IsRoot() {
			return report, fmt.Errorf("root %s has no cloned repository", n.Key())
		}
		if _, err := t.Remove(h); err != nil {
			return report, err
		}
		report.MissingClones = append(report.MissingClones, n.Key())
	}

	for _, h := range order {
		if !t.Attached(h) {
			continue
		}
		n := t.Node(h)
		if !Unchanged(n) {
			continue
		}
		removed, err := t.Remove(h)
		if err != nil {
			return report, err
		}
		report.Unchanged = append(report.Unchanged, n.Key())
		report.Dropped += removed - 1
	}

	return report, nil
}

// Commits replaces every node's history with its interesting commits, in
// chronological order, and records them in Interesting.
//
// A commit is interesting when it is the root's first commit, the fork-side
// divergence commit of a non-root node, the parent-side divergence commit of
// any of the node's forks, or the node's latest commit.
func Commits(t *forktree.Tree) error {
	for _, h := range t.PostOrder() {
		n := t.Node(h)
		keep, err := interestingHashes(t, n)
		if err != nil {
			return err
		}

		var kept []forktree.Commit
		seen := make(map[string]bool, len(keep))
		for _, c := range n.History {
			if keep[c.Hash] && !seen[c.Hash] {
				seen[c.Hash] = true
				kept = append(kept, c)
			}
		}
		forktree.SortChronological(kept)

		n.History = kept
		n.Interesting = append([]forktree.Commit(nil), kept...)
	}
	return nil
}

func interestingHashes(t *forktree.Tree, n *forktree.Node) (map[string]bool, error) {
	if !n.HasHistory() {
		return nil, fmt.Errorf("%s has no commit history", n.Key())
	}
	keep := make(map[string]bool)

	switch {
	case n.Divergence != nil:
		keep[n.Divergence.ChildHash] = true
	case n.IsRoot():
		first, _ := forktree.Earliest(n.History)
		keep[first.Hash] = true
	default:
		return nil, &forktree.StructuralError{
			Kind:   forktree.KindMissingDivergence,
			Parent: t.Node(n.Parent).Key(),
			Child:  n.Key(),
		}
	}

	for _, c := range n.Children {
		fork := t.Node(c)
		if fork.Divergence == nil {
			return nil, &forktree.StructuralError{
				Kind:   forktree.KindMissingDivergence,
				Parent: n.Key(),
				Child:  fork.Key(),
			}
		}
		keep[fork.Divergence.ParentHash] = true
	}

	last, _ := forktree.Latest(n.History)
	keep[last.Hash] = true
	return keep, nil
}
