package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

var linkTree string

var linkCmd = &cobra.Command{
	Use:   "link <child owner/name> <parent owner/name>",
	Short: "Attach a repository the API does not list as a fork",
	Long: `Fetch child and its forks and attach them under parent in an existing tree
file. The parent must already be in the tree. Nothing happens when the child
is already present.

Examples:
  pdnet link 00-Evan/shattered-pixel-dungeon watabou/pixel-dungeon
  pdnet link -t my_tree.json NYRDS/remixed-dungeon rodriformiga/pixel-dungeon`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		child, err := forktree.ParseKey(args[0])
		if err != nil {
			return err
		}
		parent, err := forktree.ParseKey(args[1])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := stringFlag(linkTree, cfg.Output.Tree)
		t, err := loadTree(path)
		if err != nil {
			return err
		}

		client, closeCache, err := openClient(cfg)
		if err != nil {
			return err
		}
		defer closeCache()

		added, err := newDiscoverer(client).Link(cmd.Context(), t, child, parent)
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("%s is already in the tree\n", colors.Repo(child))
			return nil
		}
		fmt.Printf("Linked %s under %s\n", colors.Repo(child), colors.Repo(parent))
		return saveTree(t, path)
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkTree, "tree", "t", "", "Tree file to update (default: output.tree)")
}
