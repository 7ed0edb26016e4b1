// Package forktree models the fork lineage of a repository as an arena of
// nodes addressed by stable handles.
//
// Removing a node only unlinks it from its parent's child list; handles held
// elsewhere stay valid, which lets pruning passes walk a traversal order
// computed before any deletion.
package forktree

import "fmt"

// Handle addresses a node inside a Tree.
type Handle int

// NoHandle is the parent of the root.
const NoHandle Handle = -1

// Node is one repository in the lineage.
type Node struct {
	Repo       Repository
	Parent     Handle
	Children   []Handle
	History    []Commit
	Divergence *Divergence

	// Interesting is set by commit pruning.
	Interesting []Commit

	detached bool
}

// Key returns the node's repository identity.
func (n *Node) Key() Key {
	return n.Repo.Key()
}

// HasHistory reports whether a commit history was attached.
func (n *Node) HasHistory() bool {
	return len(n.History) > 0
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent == NoHandle
}

// Tree is a strict tree of repositories.
type Tree struct {
	nodes []*Node
	index map[Key]Handle
}

// New creates a tree holding only the root repository.
func New(root Repository) *Tree {
	t := &Tree{index: make(map[Key]Handle)}
	t.add(root, NoHandle)
	return t
}

func (t *Tree) add(repo Repository, parent Handle) Handle {
	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, &Node{Repo: repo, Parent: parent})
	t.index[repo.Key()] = h
	if parent != NoHandle {
		p := t.nodes[parent]
		p.Children = append(p.Children, h)
	}
	return h
}

// Root returns the root handle.
func (t *Tree) Root() Handle {
	return 0
}

// Node returns the node behind h. It panics on a handle not issued by t.
func (t *Tree) Node(h Handle) *Node {
	return t.nodes[h]
}

// Attached reports whether h is still part of the tree.
func (t *Tree) Attached(h Handle) bool {
	return h >= 0 && int(h) < len(t.nodes) && !t.nodes[h].detached
}

// AddChild inserts repo as a fork of parent.
func (t *Tree) AddChild(parent Handle, repo Repository) (Handle, error) {
	if !t.Attached(parent) {
		return NoHandle, fmt.Errorf("add %s: parent handle %d is not in the tree", repo.Key(), parent)
	}
	if _, ok := t.Find(repo.Key()); ok {
		return NoHandle, &StructuralError{Kind: KindDuplicateKey, Parent: t.nodes[parent].Key(), Child: repo.Key()}
	}
	return t.add(repo, parent), nil
}

// Find returns the attached node with the given key.
func (t *Tree) Find(k Key) (Handle, bool) {
	h, ok := t.index[k]
	if !ok || !t.Attached(h) {
		return NoHandle, false
	}
	return h, true
}

// Path returns the keys from the root down to h.
func (t *Tree) Path(h Handle) []Key {
	var rev []Key
	for ; h != NoHandle; h = t.nodes[h].Parent {
		rev = append(rev, t.nodes[h].Key())
	}
	path := make([]Key, len(rev))
	for i, k := range rev {
		path[len(rev)-1-i] = k
	}
	return path
}

// Lookup resolves a root-to-node path of keys.
func (t *Tree) Lookup(path []Key) (Handle, error) {
	if len(path) == 0 {
		return NoHandle, fmt.Errorf("empty node path")
	}
	root := t.Root()
	if path[0] != t.nodes[root].Key() {
		return NoHandle, fmt.Errorf("node path %v does not start at root %s", path, t.nodes[root].Key())
	}
	h := root
	for _, k := range path[1:] {
		next := NoHandle
		for _, c := range t.nodes[h].Children {
			if t.nodes[c].Key() == k {
				next = c
				break
			}
		}
		if next == NoHandle {
			return NoHandle, fmt.Errorf("node path %v: %s not found", path, k)
		}
		h = next
	}
	return h, nil
}

// Remove unlinks h and its descendants. The root cannot be removed.
// It returns the number of nodes detached, h included.
func (t *Tree) Remove(h Handle) (int, error) {
	if !t.Attached(h) {
		return 0, nil
	}
	n := t.nodes[h]
	if n.IsRoot() {
		return 0, fmt.Errorf("cannot remove root %s", n.Key())
	}
	p := t.nodes[n.Parent]
	for i, c := range p.Children {
		if c == h {
			p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
			break
		}
	}
	removed := 0
	var detach func(Handle)
	detach = func(x Handle) {
		t.nodes[x].detached = true
		removed++
		for _, c := range t.nodes[x].Children {
			detach(c)
		}
	}
	detach(h)
	return removed, nil
}

// Graft attaches sub, with all of its descendants, under the node with key
// parent. The parent is looked up before anything is modified.
func (t *Tree) Graft(parent Key, sub *Tree) error {
	ph, ok := t.Find(parent)
	if !ok {
		return &StructuralError{Kind: KindParentNotFound, Parent: parent, Child: sub.nodes[sub.Root()].Key()}
	}
	var dup error
	sub.Walk(func(_ Handle, n *Node) bool {
		if _, exists := t.Find(n.Key()); exists {
			dup = &StructuralError{Kind: KindDuplicateKey, Parent: parent, Child: n.Key()}
			return false
		}
		return true
	})
	if dup != nil {
		return dup
	}

	var copyInto func(src, dstParent Handle)
	copyInto = func(src, dstParent Handle) {
		sn := sub.nodes[src]
		h := t.add(sn.Repo, dstParent)
		dn := t.nodes[h]
		dn.History = sn.History
		dn.Divergence = sn.Divergence
		dn.Interesting = sn.Interesting
		for _, c := range sn.Children {
			copyInto(c, h)
		}
	}
	copyInto(sub.Root(), ph)
	return nil
}

// Walk visits attached nodes in pre-order. Returning false from fn stops the
// walk.
func (t *Tree) Walk(fn func(Handle, *Node) bool) {
	var visit func(Handle) bool
	visit = func(h Handle) bool {
		n := t.nodes[h]
		if !fn(h, n) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(t.Root())
}

// PostOrder returns every attached node, children before their parent.
// The returned slice is a snapshot and is unaffected by later removals.
func (t *Tree) PostOrder() []Handle {
	var order []Handle
	var visit func(Handle)
	visit = func(h Handle) {
		for _, c := range t.nodes[h].Children {
			visit(c)
		}
		order = append(order, h)
	}
	visit(t.Root())
	return order
}

// PostOrderPaths is PostOrder expressed as root-to-node key paths.
func (t *Tree) PostOrderPaths() [][]Key {
	order := t.PostOrder()
	paths := make([][]Key, len(order))
	for i, h := range order {
		paths[i] = t.Path(h)
	}
	return paths
}

// Count returns the number of attached nodes.
func (t *Tree) Count() int {
	count := 0
	t.Walk(func(Handle, *Node) bool {
		count++
		return true
	})
	return count
}

// Depth returns the number of edges between the root and h.
func (t *Tree) Depth(h Handle) int {
	d := 0
	for n := t.nodes[h]; !n.IsRoot(); n = t.nodes[n.Parent] {
		d++
	}
	return d
}
