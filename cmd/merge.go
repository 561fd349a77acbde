package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <results>...",
		Short: "Merge results files into one",
		Long: `Merge combines results files in the order given and writes the result to --types.
A package present in several inputs is merged function by function; later inputs win.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Inputs: parsePaths(args),
				Output: m.Path(viper.GetString(outputTypesKey)),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
