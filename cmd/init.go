package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default moodlekit.yaml configuration file",
		Long: `Create a moodlekit.yaml in the current working directory populated with the
current CLI defaults so it can be edited manually.

The client token is never written; keep it in MOODLEKIT_CLIENT_TOKEN or a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			settings := viper.AllSettings()
			if clientSettings, ok := settings["client"].(map[string]any); ok {
				delete(clientSettings, "token")
			}

			out := viper.New()
			out.SetConfigType("yaml")

			if err := out.MergeConfigMap(settings); err != nil {
				return fmt.Errorf("failed to collect settings: %w", err)
			}

			err := out.SafeWriteConfigAs(targetPath)
			if err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Println("Wrote", targetPath)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
