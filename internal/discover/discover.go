// Package discover builds the fork tree from the hosting API: it follows the
// recorded forks of every repository recursively and then attaches the
// manually declared lineage links that the API does not know about.
package discover

import (
	"context"
	"errors"
	"fmt"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// API is the part of the hosting API client used for discovery.
type API interface {
	GetRepository(ctx context.Context, key forktree.Key) (*forktree.Repository, error)
	ListForks(ctx context.Context, forksURL string) ([]*forktree.Repository, error)
}

// Link declares that Child descends from Parent although the hosting
// platform does not record it as a fork.
type Link struct {
	Child  forktree.Key
	Parent forktree.Key
}

func (l Link) String() string {
	return fmt.Sprintf("%s -> %s", l.Parent, l.Child)
}

// Discoverer walks the fork graph.
type Discoverer struct {
	API API

	// Logf receives progress lines. Nil discards them.
	Logf func(format string, args ...any)
}

func (d *Discoverer) logf(format string, args ...any) {
	if d.Logf != nil {
		d.Logf(format, args...)
	}
}

// Tree fetches key and all of its forks, recursively.
func (d *Discoverer) Tree(ctx context.Context, key forktree.Key) (*forktree.Tree, error) {
	repo, err := d.API.GetRepository(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	t := forktree.New(*repo)
	if err := d.expand(ctx, t, t.Root()); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Discoverer) expand(ctx context.Context, t *forktree.Tree, h forktree.Handle) error {
	n := t.Node(h)
	if n.Repo.ForksCount <= 0 {
		return nil
	}
	forks, err := d.API.ListForks(ctx, n.Repo.ForksURL)
	if err != nil {
		return fmt.Errorf("list forks of %s: %w", n.Key(), err)
	}
	d.logf("%s: %d forks", n.Key(), len(forks))

	for _, f := range forks {
		child, err := t.AddChild(h, *f)
		if err != nil {
			var se *forktree.StructuralError
			if errors.As(err, &se) && se.Kind == forktree.KindDuplicateKey {
				// pages can shift while they are being read
				d.logf("skipping repeated fork %s", f.Key())
				continue
			}
			return err
		}
		if err := d.expand(ctx, t, child); err != nil {
			return err
		}
	}
	return nil
}

// Link attaches the subtree rooted at child under parent. It does nothing
// and returns false when child is already part of t. The parent must already
// be in t; that is checked before anything is fetched.
func (d *Discoverer) Link(ctx context.Context, t *forktree.Tree, child, parent forktree.Key) (bool, error) {
	if _, ok := t.Find(child); ok {
		return false, nil
	}
	if _, ok := t.Find(parent); !ok {
		return false, &forktree.StructuralError{Kind: forktree.KindParentNotFound, Parent: parent, Child: child}
	}

	sub, err := d.Tree(ctx, child)
	if err != nil {
		return false, err
	}
	if err := t.Graft(parent, sub); err != nil {
		return false, err
	}
	return true, nil
}

// Build discovers the tree of root and then applies links in order.
func (d *Discoverer) Build(ctx context.Context, root forktree.Key, links []Link) (*forktree.Tree, error) {
	t, err := d.Tree(ctx, root)
	if err != nil {
		return nil, err
	}
	d.logf("discovered %d repositories under %s", t.Count(), root)

	for _, l := range links {
		added, err := d.Link(ctx, t, l.Child, l.Parent)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", l, err)
		}
		if added {
			d.logf("linked %s", l)
		} else {
			d.logf("%s already in tree", l.Child)
		}
	}
	return t, nil
}
