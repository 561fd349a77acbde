package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

const extractLongDescription = `Extract reads every declaration file named in the manifest, one path per line
relative to --root, and writes the merged type model to the results file.

Files are parsed in parallel; when two files declare the same function, the one listed
later in the manifest wins. Declarations outside the supported grammar are reported as
degraded and extracted as unknown types.`

// extractCmd represents the extract command.
var extractCmd = newExtractCmd()

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [manifest]",
		Short: "Extract web-service declarations into a results file",
		Long:  extractLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Extract(cmd.Context(), domain.ExtractArgs{
				Manifest: argOrConfig(args, manifestKey),
				Root:     m.Path(viper.GetString(sourceRootKey)),
				Output:   m.Path(viper.GetString(outputTypesKey)),
				Parallel: viper.GetInt(extractParallel),
				Lenient:  viper.GetBool(extractLenientKey),
				Skip:     viper.GetStringSlice(extractSkipKey),
			})
		},
	}

	cmd.Flags().IntP(parallelFlagName, "p", viper.GetInt(extractParallel), "number of files parsed concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), extractParallel)

	cmd.Flags().Bool(lenientFlagName, viper.GetBool(extractLenientKey), "record unsupported constructors as degraded instead of failing")
	bindFlagToConfig(cmd.Flags().Lookup(lenientFlagName), extractLenientKey)

	cmd.Flags().StringArray(skipFlagName, nil, "manifest entry to skip (repeatable, replaces the default list)")
	bindFlagToConfig(cmd.Flags().Lookup(skipFlagName), extractSkipKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
