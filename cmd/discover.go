package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// discoverCmd represents the discover command.
var discoverCmd = newDiscoverCmd()

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover [manifest]",
		Short: "Write a manifest of the declaration files under --root",
		Long: `Discover walks the source tree and lists every externallib.php and
classes/external declaration file, sorted, in manifest format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Discover(cmd.Context(), domain.DiscoverArgs{
				Root:   m.Path(viper.GetString(sourceRootKey)),
				Output: argOrConfig(args, manifestKey),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
