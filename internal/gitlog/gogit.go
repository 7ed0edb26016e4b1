package gitlog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// GoGitExtractor walks the history with go-git instead of the git binary.
type GoGitExtractor struct{}

func (GoGitExtractor) History(ctx context.Context, dir string) ([]forktree.Commit, error) {
	if err := requireDir(dir); err != nil {
		return nil, err
	}

	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD in %s: %w", dir, err)
	}
	iter, err := r.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", dir, err)
	}
	defer iter.Close()

	var history []forktree.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		history = append(history, forktree.Commit{
			Timestamp: c.Author.When.Unix(),
			Hash:      c.Hash.String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history of %s: %w", dir, err)
	}
	return history, nil
}

// GoGitCloner clones with go-git.
type GoGitCloner struct {
	Limiter Waiter
}

func (g GoGitCloner) Clone(ctx context.Context, url, dest string) (bool, error) {
	if exists(dest) {
		return false, nil
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return false, err
		}
		defer g.Limiter.Observe(nil)
	}

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: url, Progress: os.Stderr})
	if err != nil {
		// leave no half-written clone behind, it would count as present
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return false, fmt.Errorf("clone %s: %w", url, err)
	}
	return true, nil
}
