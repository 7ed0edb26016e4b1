package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/divergence"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/gitlog"
)

var (
	historyTree string
	historyOut  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Attach commit histories and divergence points",
	Long: `Read the commit history of every cloned repository and find, for each fork,
the pair of commits where it diverged from its parent. Repositories without a
clone keep an empty history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := loadTree(stringFlag(historyTree, cfg.Output.Tree))
		if err != nil {
			return err
		}
		if err := historyStage(cmd.Context(), cfg, t); err != nil {
			return err
		}
		return saveTree(t, stringFlag(historyOut, cfg.Output.History))
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyTree, "tree", "t", "", "Tree file to read (default: output.tree)")
	historyCmd.Flags().StringVarP(&historyOut, "out", "o", "", "Annotated tree file to write (default: output.history)")
}

func historyStage(ctx context.Context, cfg *config.Config, t *forktree.Tree) error {
	pulled, err := gitlog.PullHistories(ctx, t, cfg.Clone.Dir, newExtractor(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("Read %s histories from %s\n", colors.Count(pulled), cfg.Clone.Dir)

	resolved, err := divergence.Annotate(t)
	if err != nil {
		return err
	}
	fmt.Printf("Resolved %s divergence points\n", colors.Count(resolved))
	return nil
}
