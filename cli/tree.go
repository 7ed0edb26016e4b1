package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [file]",
	Short: "Show a tree file as an indented outline",
	Long: `Print every repository of a tree file, indented by fork depth, with its
watcher count, history size, latest commit and divergence point when known.
Without an argument the discovery output (output.tree) is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Output.Tree
		}

		t, err := loadTree(path)
		if err != nil {
			return err
		}
		fmt.Println(colors.SectionHeader(fmt.Sprintf("%s (%d repositories)", path, t.Count())))
		t.Walk(func(h forktree.Handle, n *forktree.Node) bool {
			depth := t.Depth(h)
			if treeDepth > 0 && depth > treeDepth {
				return true
			}
			fmt.Println(strings.Repeat("  ", depth) + describeNode(n))
			return true
		})
		return nil
	},
}

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 0, "Maximum fork depth to show (0 for all)")
}

func describeNode(n *forktree.Node) string {
	parts := []string{
		colors.Repo(n.Key()),
		colors.Gray(humanize.Comma(int64(n.Repo.WatchersCount)) + " watchers"),
	}
	if latest, ok := forktree.Latest(n.History); ok {
		parts = append(parts, fmt.Sprintf("%d commits, latest %s %s",
			len(n.History), latest.Short(), humanize.Time(time.Unix(latest.Timestamp, 0))))
	}
	if n.Divergence != nil {
		parts = append(parts, colors.Magenta("diverged "+n.Divergence.String()))
	}
	if len(n.Interesting) > 0 {
		parts = append(parts, fmt.Sprintf("%d interesting", len(n.Interesting)))
	}
	return strings.Join(parts, "  ")
}
