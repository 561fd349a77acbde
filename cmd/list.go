package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List packages and function counts in a results file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Types: m.Path(viper.GetString(outputTypesKey)),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
