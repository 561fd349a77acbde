package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// compileCmd represents the compile command.
var compileCmd = newCompileCmd()

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a results file to JSON Schema",
		Long: `Compile writes one JSON Schema file per named type plus an index.json that maps
every web-service function to its argument and result type names.

With --check nothing is written; the command fails when any file differs from
what would be generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Compile(cmd.Context(), domain.CompileArgs{
				Types:   m.Path(viper.GetString(outputTypesKey)),
				Schemas: m.Path(viper.GetString(outputSchemasKey)),
				Check:   viper.GetBool(checkFlagName),
			})
		},
	}

	cmd.Flags().StringP(schemasFlagName, "s", viper.GetString(outputSchemasKey), "schema output directory")
	bindFlagToConfig(cmd.Flags().Lookup(schemasFlagName), outputSchemasKey)

	cmd.Flags().Bool(checkFlagName, false, "verify the schema directory is up to date without writing")
	bindFlagToConfig(cmd.Flags().Lookup(checkFlagName), checkFlagName)

	return cmd
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
