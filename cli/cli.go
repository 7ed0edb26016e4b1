package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
	"github.com/novellus/pixel-dungeon-network/internal/config"
	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pdnet",
	Short: "Map the fork lineage of a game and its mods",
	Long: `pdnet reconstructs how a family of repositories descends from one root.

It discovers forks through the GitHub API, clones every repository, reads
their commit histories, finds where each fork diverged from its parent, and
draws the interesting commits as a graph.

Each stage reads the previous stage's tree file, so stages can be re-run alone:
  pdnet discover   # fork tree from the API and the manual links
  pdnet clone      # local clones of every repository
  pdnet history    # commit histories and divergence points
  pdnet plot       # pruned graph as DOT and SVG
  pdnet run        # all of the above`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Exit codes returned by Execute.
const (
	ExitError      = 1
	ExitStructural = 2
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colors.ErrorText("Error: ")+err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode separates lineage inconsistencies from ordinary failures.
func exitCode(err error) int {
	var se *forktree.StructuralError
	if errors.As(err, &se) {
		return ExitStructural
	}
	return ExitError
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Lineage file (default: built-in Pixel Dungeon lineage)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show progress details")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the lineage named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
