package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/gitlog"
)

var cloneTree string

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone every repository of the fork tree",
	Long: `Clone each repository of the tree into clone.dir as "owner,name". Existing
clones are left alone. Clones that fail, typically because the repository was
deleted after discovery, are reported and later pruned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := loadTree(stringFlag(cloneTree, cfg.Output.Tree))
		if err != nil {
			return err
		}
		return cloneStage(cmd.Context(), cfg, t)
	},
}

func init() {
	cloneCmd.Flags().StringVarP(&cloneTree, "tree", "t", "", "Tree file to read (default: output.tree)")
}

func cloneStage(ctx context.Context, cfg *config.Config, t *forktree.Tree) error {
	fmt.Printf("Cloning %s repositories into %s\n", colors.Count(t.Count()), cfg.Clone.Dir)
	result, err := gitlog.CloneAll(ctx, t, cfg.Clone.Dir, newCloner(cfg))
	if err != nil {
		return fmt.Errorf("failed to clone: %w", err)
	}

	fmt.Printf("[OK] %s cloned, %s already present", colors.Count(result.Cloned), colors.Count(result.Present))
	if len(result.Failed) > 0 {
		fmt.Printf(", %s", colors.WarningText(fmt.Sprintf("%d failed", len(result.Failed))))
	}
	fmt.Println()
	for _, err := range result.Failed {
		logf("clone failure: %v", err)
	}
	return nil
}
