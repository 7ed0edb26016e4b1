package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discover, clone, history and plot in sequence",
	Long: `Run every stage in order. Intermediate trees are still written to
output.tree and output.history so a failed stage can be re-run alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		fmt.Println(colors.SectionHeader("== discover"))
		t, err := discoverStage(ctx, cfg)
		if err != nil {
			return err
		}
		if err := saveTree(t, cfg.Output.Tree); err != nil {
			return err
		}

		fmt.Println(colors.SectionHeader("== clone"))
		if err := cloneStage(ctx, cfg, t); err != nil {
			return err
		}

		fmt.Println(colors.SectionHeader("== history"))
		if err := historyStage(ctx, cfg, t); err != nil {
			return err
		}
		if err := saveTree(t, cfg.Output.History); err != nil {
			return err
		}

		fmt.Println(colors.SectionHeader("== plot"))
		return plotStage(ctx, cfg, t)
	},
}
