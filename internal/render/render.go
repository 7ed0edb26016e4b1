// Package render turns a pruned fork tree into a graph description and,
// through graphviz, into an image.
//
// The layout wanted for the commit graph is: horizontal position follows
// commit time, every repository owns one row, and a fork's row lies below
// its parent's. Vertices carry Timestamp and Rank for that purpose and group
// each repository's commits with the graphviz "group" attribute; nothing
// here computes coordinates.
package render

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// Name is the DOT graph identifier.
const Name = "fork_network"

type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute { return a }

// Vertex is one commit, or one repository in repository mode.
type Vertex struct {
	id   int64
	uid  string
	Repo forktree.Key

	Label string
	// Group is shared by all commits of one repository.
	Group string
	// Timestamp is the commit time; zero in repository mode.
	Timestamp int64
	// Rank is the repository's row: unique per repository, larger for forks
	// than for their parent.
	Rank int
}

func (v *Vertex) ID() int64      { return v.id }
func (v *Vertex) DOTID() string  { return v.uid }
func (v *Vertex) String() string { return v.uid }

func (v *Vertex) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: v.Label}}
	if v.Group != "" {
		attrs = append(attrs, encoding.Attribute{Key: "group", Value: v.Group})
	}
	return attrs
}

// Edge connects two vertices. Fork marks the edge that crosses from a
// parent repository into a fork.
type Edge struct {
	F, T *Vertex
	Fork bool
}

func (e Edge) From() graph.Node         { return e.F }
func (e Edge) To() graph.Node           { return e.T }
func (e Edge) ReversedEdge() graph.Edge { return Edge{F: e.T, T: e.F, Fork: e.Fork} }

func (e Edge) Attributes() []encoding.Attribute {
	if e.Fork {
		return []encoding.Attribute{{Key: "style", Value: "dashed"}}
	}
	return nil
}

// Graph is a directed graph of vertices ready to be encoded as DOT.
type Graph struct {
	*simple.DirectedGraph
	byUID map[string]*Vertex
}

func newGraph() *Graph {
	return &Graph{DirectedGraph: simple.NewDirectedGraph(), byUID: make(map[string]*Vertex)}
}

// DOTAttributers implements dot.Attributers.
func (g *Graph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return attributes{{Key: "rankdir", Value: "LR"}},
		attributes{{Key: "shape", Value: "box"}, {Key: "fontsize", Value: "10"}},
		attributes{}
}

func (g *Graph) addVertex(v *Vertex) *Vertex {
	if existing, ok := g.byUID[v.uid]; ok {
		return existing
	}
	v.id = int64(len(g.byUID))
	g.byUID[v.uid] = v
	g.AddNode(v)
	return v
}

func (g *Graph) addEdge(from, to *Vertex, fork bool) {
	g.SetEdge(Edge{F: from, T: to, Fork: fork})
}

// Vertex returns the vertex with the given DOT identifier.
func (g *Graph) Vertex(uid string) (*Vertex, bool) {
	v, ok := g.byUID[uid]
	return v, ok
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.byUID)
}

// DOT encodes the graph in the graphviz language.
func (g *Graph) DOT() ([]byte, error) {
	b, err := dot.Marshal(g, Name, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return b, nil
}

// CommitUID identifies the vertex of commit hash in repository k.
func CommitUID(k forktree.Key, hash string) string {
	return k.String() + "," + hash
}

func repoBio(r *forktree.Repository) string {
	return fmt.Sprintf("%s\n%s watchers", r.DisplayName(), humanize.Comma(int64(r.WatchersCount)))
}

func commitBio(r *forktree.Repository, c forktree.Commit) string {
	date := time.Unix(c.Timestamp, 0).UTC().Format("2006-01-02")
	return fmt.Sprintf("%s\n%s %s", repoBio(r), date, c.Short())
}

func graphCommits(n *forktree.Node) []forktree.Commit {
	commits := n.Interesting
	if commits == nil {
		commits = n.History
	}
	sorted := append([]forktree.Commit(nil), commits...)
	forktree.SortChronological(sorted)
	return sorted
}

// Commits builds the commit graph: one vertex per interesting commit of each
// repository, an edge between chronologically adjacent commits of the same
// repository, and one edge per fork from the parent's divergence commit to
// the fork's. Nodes without an interesting list contribute their full
// history.
func Commits(t *forktree.Tree) (*Graph, error) {
	g := newGraph()
	rank := 0
	var err error
	t.Walk(func(_ forktree.Handle, n *forktree.Node) bool {
		key := n.Key()
		var prev *Vertex
		for _, c := range graphCommits(n) {
			v := g.addVertex(&Vertex{
				uid:       CommitUID(key, c.Hash),
				Repo:      key,
				Label:     commitBio(&n.Repo, c),
				Group:     key.String(),
				Timestamp: c.Timestamp,
				Rank:      rank,
			})
			if prev != nil && prev != v {
				g.addEdge(prev, v, false)
			}
			prev = v
		}
		rank++

		if n.IsRoot() {
			return true
		}
		if n.Divergence == nil {
			err = &forktree.StructuralError{Kind: forktree.KindMissingDivergence, Child: key}
			return false
		}
		parentKey := t.Node(n.Parent).Key()
		from, ok := g.Vertex(CommitUID(parentKey, n.Divergence.ParentHash))
		if !ok {
			err = fmt.Errorf("%s: divergence commit %s missing from %s", key, n.Divergence.ParentHash, parentKey)
			return false
		}
		to, ok := g.Vertex(CommitUID(key, n.Divergence.ChildHash))
		if !ok {
			err = fmt.Errorf("%s: divergence commit %s missing from its own history", key, n.Divergence.ChildHash)
			return false
		}
		g.addEdge(from, to, true)
		return true
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Repos builds the repository graph: one vertex per repository and an edge
// from each parent to each of its forks.
func Repos(t *forktree.Tree) *Graph {
	g := newGraph()
	vertices := make(map[forktree.Handle]*Vertex)
	rank := 0
	t.Walk(func(h forktree.Handle, n *forktree.Node) bool {
		key := n.Key()
		v := g.addVertex(&Vertex{
			uid:   key.String(),
			Repo:  key,
			Label: repoBio(&n.Repo),
			Rank:  rank,
		})
		vertices[h] = v
		rank++
		if !n.IsRoot() {
			g.addEdge(vertices[n.Parent], v, true)
		}
		return true
	})
	return g
}
