package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/gitlog"
	"github.com/novellus/pixel-dungeon-network/internal/prune"
	"github.com/novellus/pixel-dungeon-network/internal/render"
)

var (
	plotIn      string
	plotMode    string
	plotDOT     string
	plotImage   string
	plotFormat  string
	plotNoImage bool
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Prune the annotated tree and draw it",
	Long: `Remove repositories that no longer exist or never changed after forking,
keep only the interesting commits of the rest, and write the result as a DOT
graph and a graphviz image.

Modes:
  commits   one box per interesting commit (default)
  repos     one box per repository`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyPlotFlags(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		t, err := loadTree(stringFlag(plotIn, cfg.Output.History))
		if err != nil {
			return err
		}
		return plotStage(cmd.Context(), cfg, t)
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotIn, "in", "i", "", "Annotated tree file to read (default: output.history)")
	plotCmd.Flags().StringVar(&plotMode, "mode", "", "Graph mode: commits or repos (default: output.mode)")
	plotCmd.Flags().StringVar(&plotDOT, "dot", "", "DOT file to write (default: output.dot)")
	plotCmd.Flags().StringVar(&plotImage, "image", "", "Image file to write (default: output.image)")
	plotCmd.Flags().StringVar(&plotFormat, "format", "", "Image format passed to graphviz (default: output.format)")
	plotCmd.Flags().BoolVar(&plotNoImage, "no-image", false, "Only write the DOT file")
}

func applyPlotFlags(cfg *config.Config) {
	cfg.Output.Mode = stringFlag(plotMode, cfg.Output.Mode)
	cfg.Output.DOT = stringFlag(plotDOT, cfg.Output.DOT)
	cfg.Output.Image = stringFlag(plotImage, cfg.Output.Image)
	cfg.Output.Format = stringFlag(plotFormat, cfg.Output.Format)
}

func plotStage(ctx context.Context, cfg *config.Config, t *forktree.Tree) error {
	before := t.Count()
	report, err := prune.Repos(t, gitlog.HasClone(cfg.Clone.Dir))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %s of %s repositories (%d without clone, %d unchanged, %d below unchanged forks)\n",
		colors.Count(report.Removed()), colors.Count(before),
		len(report.MissingClones), len(report.Unchanged), report.Dropped)
	for _, k := range report.MissingClones {
		logf("no clone: %s", k)
	}
	for _, k := range report.Unchanged {
		logf("unchanged since forking: %s", k)
	}

	var g *render.Graph
	switch cfg.Output.Mode {
	case config.ModeRepos:
		g = render.Repos(t)
	default:
		if err := prune.Commits(t); err != nil {
			return err
		}
		if g, err = render.Commits(t); err != nil {
			return err
		}
	}

	src, err := render.WriteDOT(g, cfg.Output.DOT)
	if err != nil {
		return err
	}
	fmt.Printf("[OK] %s graph with %s nodes written to %s\n", cfg.Output.Mode, colors.Count(g.Len()), cfg.Output.DOT)

	if plotNoImage {
		return nil
	}
	if err := (render.Graphviz{}).Render(ctx, src, cfg.Output.Format, cfg.Output.Image); err != nil {
		return fmt.Errorf("failed to render image: %w", err)
	}
	fmt.Printf("[OK] image written to %s\n", cfg.Output.Image)
	return nil
}
