package prune

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novellus/pixel-dungeon-network/internal/divergence"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

func c(ts int64, hash string) forktree.Commit {
	return forktree.Commit{Timestamp: ts, Hash: hash}
}

func key(s string) forktree.Key {
	k, err := forktree.ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func repo(s string) forktree.Repository {
	k := key(s)
	return forktree.Repository{Owner: forktree.Owner{Login: k.Owner}, Name: k.Name}
}

type builder struct {
	t  *testing.T
	tr *forktree.Tree
}

func newBuilder(t *testing.T, root string, history ...forktree.Commit) *builder {
	tr := forktree.New(repo(root))
	tr.Node(tr.Root()).History = history
	return &builder{t: t, tr: tr}
}

func (b *builder) fork(parent, child string, history ...forktree.Commit) *builder {
	b.t.Helper()
	ph, ok := b.tr.Find(key(parent))
	require.True(b.t, ok, parent)
	h, err := b.tr.AddChild(ph, repo(child))
	require.NoError(b.t, err)
	b.tr.Node(h).History = history
	return b
}

func (b *builder) annotated() *forktree.Tree {
	b.t.Helper()
	_, err := divergence.Annotate(b.tr)
	require.NoError(b.t, err)
	return b.tr
}

func allCloned(*forktree.Node) bool { return true }

func clonedUnless(missing ...string) func(*forktree.Node) bool {
	return func(n *forktree.Node) bool {
		for _, m := range missing {
			if n.Key() == key(m) {
				return false
			}
		}
		return true
	}
}

func hashes(commits []forktree.Commit) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.Hash)
	}
	return out
}

func node(t *testing.T, tr *forktree.Tree, k string) *forktree.Node {
	t.Helper()
	h, ok := tr.Find(key(k))
	require.True(t, ok, k)
	return tr.Node(h)
}

func TestCommitsSharedHistory(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b"), c(10, "c")).
		fork("p/p", "f/f", c(8, "d"), c(5, "b")).
		annotated()

	_, err := Repos(tr, allCloned)
	require.NoError(t, err)
	require.NoError(t, Commits(tr))

	assert.Equal(t, []string{"b", "d"}, hashes(node(t, tr, "f/f").Interesting))
	assert.Equal(t, []string{"a", "b", "c"}, hashes(node(t, tr, "p/p").Interesting))
}

func TestCommitsExcludesForkPreDivergenceAncestry(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b"), c(10, "c")).
		fork("p/p", "f/f", c(1, "a"), c(5, "b"), c(7, "x"), c(9, "y")).
		annotated()

	require.NoError(t, Commits(tr))
	assert.Equal(t, []string{"b", "y"}, hashes(node(t, tr, "f/f").Interesting))
}

func TestCommitsRewrittenFork(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b")).
		fork("p/p", "f/f", c(20, "x"), c(25, "y")).
		annotated()

	assert.Equal(t, &forktree.Divergence{ParentHash: "b", ChildHash: "x"}, node(t, tr, "f/f").Divergence)

	require.NoError(t, Commits(tr))
	assert.Equal(t, []string{"x", "y"}, hashes(node(t, tr, "f/f").Interesting))
	assert.Equal(t, []string{"a", "b"}, hashes(node(t, tr, "p/p").Interesting))
}

func TestCommitsRootWithoutForks(t *testing.T) {
	tr := newBuilder(t, "p/p", c(10, "c"), c(5, "b"), c(1, "a")).annotated()

	require.NoError(t, Commits(tr))
	assert.Equal(t, []string{"a", "c"}, hashes(node(t, tr, "p/p").Interesting))
}

func TestCommitsIdempotent(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(3, "m"), c(5, "b"), c(10, "c")).
		fork("p/p", "f/f", c(5, "b"), c(6, "n"), c(8, "d")).
		fork("f/f", "g/g", c(6, "n"), c(9, "e")).
		annotated()

	require.NoError(t, Commits(tr))
	first := map[string][]string{}
	for _, k := range []string{"p/p", "f/f", "g/g"} {
		first[k] = hashes(node(t, tr, k).Interesting)
	}

	require.NoError(t, Commits(tr))
	for _, k := range []string{"p/p", "f/f", "g/g"} {
		assert.Equal(t, first[k], hashes(node(t, tr, k).Interesting), k)
	}
	assert.Equal(t, []string{"b", "n", "d"}, first["f/f"])
}

func TestCommitsForkWithoutDivergence(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a")).
		fork("p/p", "f/f", c(2, "b"))
	// divergence never resolved

	err := Commits(tr.tr)
	var se *forktree.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, forktree.KindMissingDivergence, se.Kind)
}

func TestReposRemovesMissingLeaves(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b")).
		fork("p/p", "f/f", c(5, "b"), c(8, "d")).
		fork("p/p", "gone/repo").
		annotated()

	report, err := Repos(tr, clonedUnless("gone/repo"))
	require.NoError(t, err)
	assert.Equal(t, []forktree.Key{key("gone/repo")}, report.MissingClones)
	assert.Equal(t, 2, tr.Count())
	_, ok := tr.Find(key("gone/repo"))
	assert.False(t, ok)
}

func TestReposMissingChainIsRemovedBottomUp(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a")).
		fork("p/p", "mid/repo").
		fork("mid/repo", "leaf/repo").
		annotated()

	report, err := Repos(tr, clonedUnless("mid/repo", "leaf/repo"))
	require.NoError(t, err)
	assert.Equal(t, []forktree.Key{key("leaf/repo"), key("mid/repo")}, report.MissingClones)
	assert.Equal(t, 1, tr.Count())
}

func TestReposMissingCloneWithForksIsFatal(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(2, "b")).
		fork("p/p", "mid/repo", c(2, "b"), c(3, "c")).
		fork("mid/repo", "leaf/repo", c(3, "c"), c(4, "d")).
		annotated()

	_, err := Repos(tr, clonedUnless("mid/repo"))

	var se *forktree.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, forktree.KindChildrenWithoutClone, se.Kind)
	assert.Equal(t, key("mid/repo"), se.Parent)
}

func TestReposRemovesUnchangedForks(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b"), c(10, "c")).
		fork("p/p", "stale/fork", c(1, "a"), c(5, "b")).
		fork("p/p", "live/fork", c(5, "b"), c(8, "d")).
		annotated()

	stale := node(t, tr, "stale/fork")
	assert.True(t, Unchanged(stale))
	assert.False(t, Unchanged(node(t, tr, "live/fork")))
	assert.False(t, Unchanged(node(t, tr, "p/p")))

	report, err := Repos(tr, allCloned)
	require.NoError(t, err)
	assert.Equal(t, []forktree.Key{key("stale/fork")}, report.Unchanged)
	assert.Equal(t, 0, report.Dropped)

	_, ok := tr.Find(key("stale/fork"))
	assert.False(t, ok)
	_, ok = tr.Find(key("live/fork"))
	assert.True(t, ok)
}

func TestReposUnchangedForkTakesItsSubtree(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a"), c(5, "b"), c(10, "c")).
		fork("p/p", "stale/fork", c(1, "a"), c(5, "b")).
		fork("stale/fork", "deep/fork", c(5, "b"), c(12, "z")).
		annotated()

	report, err := Repos(tr, allCloned)
	require.NoError(t, err)
	assert.Equal(t, []forktree.Key{key("stale/fork")}, report.Unchanged)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 2, report.Removed())
	assert.Equal(t, 1, tr.Count())
}

func TestReposRootIsNeverUnchanged(t *testing.T) {
	tr := newBuilder(t, "p/p", c(1, "a")).annotated()

	report, err := Repos(tr, allCloned)
	require.NoError(t, err)
	assert.Zero(t, report.Removed())
	assert.Equal(t, 1, tr.Count())
}
