package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

var discoverOut string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Build the fork tree from the GitHub API",
	Long: `Fetch the root repository and all of its forks recursively, then attach the
manual links of the lineage file in order. API pages are memoized in the
response cache, so an interrupted run resumes without refetching.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := discoverStage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return saveTree(t, stringFlag(discoverOut, cfg.Output.Tree))
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverOut, "out", "o", "", "Tree file to write (default: output.tree)")
}

func discoverStage(ctx context.Context, cfg *config.Config) (*forktree.Tree, error) {
	root, err := cfg.RootKey()
	if err != nil {
		return nil, err
	}
	links, err := cfg.ManualLinks()
	if err != nil {
		return nil, err
	}

	client, closeCache, err := openClient(cfg)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	fmt.Printf("Discovering forks of %s\n", colors.Repo(root))
	t, err := newDiscoverer(client).Build(ctx, root, links)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Fetched %s pages from the API\n", colors.Count(client.Fetched()))
	return t, nil
}
