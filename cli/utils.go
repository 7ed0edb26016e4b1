package cli

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/discover"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/github"
	"github.com/novellus/pixel-dungeon-network/internal/gitlog"
	"github.com/novellus/pixel-dungeon-network/internal/ratelimit"
	"github.com/novellus/pixel-dungeon-network/internal/store"
)

// logf prints progress only with --verbose.
func logf(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// openClient opens the response cache and returns an API client using it.
// The returned function closes the cache.
func openClient(cfg *config.Config) (*github.Client, func(), error) {
	cache, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open API cache: %w", err)
	}
	if n, err := cache.Len(); err == nil {
		logf("API cache %s holds %s pages", cfg.Cache.Path, humanize.Comma(int64(n)))
	}

	client := github.NewClient(github.Options{
		BaseURL: cfg.API.BaseURL,
		Token:   github.TokenFromEnvironment(cfg.API.TokenEnv),
		Cache:   cache,
		Limiter: ratelimit.New(cfg.API.RateLimit),
	})
	return client, func() { cache.Close() }, nil
}

func newDiscoverer(client *github.Client) *discover.Discoverer {
	return &discover.Discoverer{API: client, Logf: logf}
}

func newCloner(cfg *config.Config) gitlog.Cloner {
	limiter := ratelimit.New(cfg.Clone.RateLimit)
	if cfg.Clone.Backend == config.BackendGoGit {
		return gitlog.GoGitCloner{Limiter: limiter}
	}
	return gitlog.ExecCloner{Limiter: limiter}
}

func newExtractor(cfg *config.Config) gitlog.Extractor {
	if cfg.Clone.Backend == config.BackendGoGit {
		return gitlog.GoGitExtractor{}
	}
	return gitlog.ExecExtractor{}
}

func loadTree(path string) (*forktree.Tree, error) {
	t, err := forktree.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}
	logf("loaded %d repositories from %s", t.Count(), path)
	return t, nil
}

func saveTree(t *forktree.Tree, path string) error {
	if err := t.Save(path); err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}
	fmt.Printf("[OK] %s repositories written to %s\n", colors.Count(t.Count()), path)
	return nil
}

// stringFlag returns override when set, otherwise fallback.
func stringFlag(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
