package gitlog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// Cloner ensures a working copy of url exists at dest. cloned is false when
// dest already existed and nothing was done.
type Cloner interface {
	Clone(ctx context.Context, url, dest string) (cloned bool, err error)
}

// Waiter paces successive clones. *ratelimit.Limiter implements it.
type Waiter interface {
	Wait(ctx context.Context) error
	Observe(h http.Header) time.Duration
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExecCloner runs `git clone`.
type ExecCloner struct {
	Git     string
	Limiter Waiter
}

func (e ExecCloner) Clone(ctx context.Context, url, dest string) (bool, error) {
	if exists(dest) {
		return false, nil
	}
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return false, err
		}
		defer e.Limiter.Observe(nil)
	}

	git := e.Git
	if git == "" {
		git = "git"
	}
	cmd := exec.CommandContext(ctx, git, "clone", url, dest)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("git clone %s: %w", url, err)
	}
	return true, nil
}

// CloneDir is where the clone of k lives under root.
func CloneDir(root string, k forktree.Key) string {
	return filepath.Join(root, k.CloneDirName())
}

// HasClone returns a predicate reporting whether a node's clone exists
// under root.
func HasClone(root string) func(*forktree.Node) bool {
	return func(n *forktree.Node) bool {
		return exists(CloneDir(root, n.Key()))
	}
}

// CloneResult counts the outcome of CloneAll.
type CloneResult struct {
	Cloned  int
	Present int
	Failed  []error
}

// CloneAll clones every repository of t under root. A failed clone is
// recorded and the walk continues: repositories deleted upstream are
// expected, and pruning later removes them.
func CloneAll(ctx context.Context, t *forktree.Tree, root string, cl Cloner) (*CloneResult, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create clone directory: %w", err)
	}

	result := &CloneResult{}
	var walkErr error
	t.Walk(func(_ forktree.Handle, n *forktree.Node) bool {
		if err := ctx.Err(); err != nil {
			walkErr = err
			return false
		}
		dest := CloneDir(root, n.Key())
		if n.Repo.CloneURL == "" {
			result.Failed = append(result.Failed, fmt.Errorf("%s: no clone URL", n.Key()))
			return true
		}
		cloned, err := cl.Clone(ctx, n.Repo.CloneURL, dest)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				walkErr = err
				return false
			}
			log.Printf("clone of %s failed: %v", n.Key(), err)
			result.Failed = append(result.Failed, err)
		case cloned:
			result.Cloned++
		default:
			result.Present++
		}
		return true
	})
	return result, walkErr
}

// PullHistories attaches the commit history of every node whose clone
// exists under root. Nodes without a clone are left without history.
func PullHistories(ctx context.Context, t *forktree.Tree, root string, ex Extractor) (int, error) {
	pulled := 0
	var walkErr error
	t.Walk(func(_ forktree.Handle, n *forktree.Node) bool {
		dir := CloneDir(root, n.Key())
		if !exists(dir) {
			return true
		}
		history, err := ex.History(ctx, dir)
		if err != nil {
			walkErr = fmt.Errorf("history of %s: %w", n.Key(), err)
			return false
		}
		n.History = history
		pulled++
		return true
	})
	return pulled, walkErr
}
