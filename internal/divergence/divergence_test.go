package divergence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

func node(owner, name string, history ...forktree.Commit) *forktree.Node {
	return &forktree.Node{
		Repo:    forktree.Repository{Owner: forktree.Owner{Login: owner}, Name: name},
		Parent:  forktree.NoHandle,
		History: history,
	}
}

func c(ts int64, hash string) forktree.Commit {
	return forktree.Commit{Timestamp: ts, Hash: hash}
}

func TestResolveSharedCommit(t *testing.T) {
	parent := node("watabou", "pixel-dungeon", c(1, "a"), c(5, "b"), c(10, "c"))
	child := node("00-Evan", "shattered", c(5, "b"), c(8, "d"))

	d, err := Resolve(parent, child)
	require.NoError(t, err)
	assert.Equal(t, &forktree.Divergence{ParentHash: "b", ChildHash: "b"}, d)
}

func TestResolvePicksMostRecentSharedCommit(t *testing.T) {
	// git log order is newest first; resolution must not depend on it
	parent := node("p", "p", c(30, "e"), c(20, "c"), c(10, "b"), c(1, "a"))
	child := node("c", "c", c(1, "a"), c(10, "b"), c(20, "c"), c(25, "x"))

	d, err := Resolve(parent, child)
	require.NoError(t, err)
	assert.Equal(t, "c", d.ParentHash)
	assert.Equal(t, "c", d.ChildHash)
}

func TestResolveRewrittenHistory(t *testing.T) {
	parent := node("p", "p", c(1, "a"), c(5, "b"))
	child := node("c", "c", c(25, "y"), c(20, "x"))

	d, err := Resolve(parent, child)
	require.NoError(t, err)
	assert.Equal(t, &forktree.Divergence{ParentHash: "b", ChildHash: "x"}, d)
}

func TestResolveFallbackUsesLatestParentCommitAtOrBeforeChildStart(t *testing.T) {
	parent := node("p", "p", c(1, "a"), c(5, "b"), c(20, "c"), c(40, "d"))
	child := node("c", "c", c(20, "x"), c(30, "y"))

	d, err := Resolve(parent, child)
	require.NoError(t, err)
	assert.Equal(t, &forktree.Divergence{ParentHash: "c", ChildHash: "x"}, d)
}

func TestResolveChildWithoutHistory(t *testing.T) {
	parent := node("p", "p", c(1, "a"))

	d, err := Resolve(parent, node("gone", "repo"))
	assert.NoError(t, err)
	assert.Nil(t, d)

	d, err = Resolve(node("p", "empty"), node("gone", "repo"))
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestResolveParentWithoutHistory(t *testing.T) {
	_, err := Resolve(node("p", "p"), node("c", "c", c(1, "a")))

	var se *forktree.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, forktree.KindParentWithoutHistory, se.Kind)
	assert.Equal(t, forktree.Key{Owner: "p", Name: "p"}, se.Parent)
	assert.Equal(t, forktree.Key{Owner: "c", Name: "c"}, se.Child)
}

func TestResolveNoTemporalAnchor(t *testing.T) {
	parent := node("p", "p", c(10, "a"), c(15, "b"))
	child := node("c", "c", c(3, "x"))

	_, err := Resolve(parent, child)

	var se *forktree.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, forktree.KindNoTemporalAnchor, se.Kind)
	assert.Equal(t, parent.History, se.ParentHistory)
	assert.Equal(t, child.History, se.ChildHistory)
	assert.Contains(t, err.Error(), "p/p -> c/c")
}

func TestAnnotate(t *testing.T) {
	tr := forktree.New(forktree.Repository{Owner: forktree.Owner{Login: "p"}, Name: "p"})
	tr.Node(tr.Root()).History = []forktree.Commit{c(1, "a"), c(5, "b"), c(10, "c")}

	fork, err := tr.AddChild(tr.Root(), forktree.Repository{Owner: forktree.Owner{Login: "f"}, Name: "f"})
	require.NoError(t, err)
	tr.Node(fork).History = []forktree.Commit{c(5, "b"), c(8, "d")}

	gone, err := tr.AddChild(tr.Root(), forktree.Repository{Owner: forktree.Owner{Login: "g"}, Name: "g"})
	require.NoError(t, err)

	n, err := Annotate(tr)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, tr.Node(tr.Root()).Divergence)
	assert.Equal(t, &forktree.Divergence{ParentHash: "b", ChildHash: "b"}, tr.Node(fork).Divergence)
	assert.Nil(t, tr.Node(gone).Divergence)
}
