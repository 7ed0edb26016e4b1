package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novellus/pixel-dungeon-network/internal/colors"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show the effective configuration",
	Long: `Show the lineage configuration after defaults, the lineage file and the
environment (PDNET_API_BASE_URL, PDNET_CACHE_PATH, PDNET_CLONE_DIR) have been
applied.

Examples:
  pdnet config
  pdnet config clone.backend
  pdnet -c my_lineage.yaml config api.rate_limit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		value, err := cfg.GetValue(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	source := configPath
	if source == "" {
		source = "built-in lineage"
	}
	fmt.Println(colors.SectionHeader("# " + source))
	fmt.Print(string(data))
	return nil
}
