// Package cmd provides the root command and CLI setup for moodlekit.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/adapter"
	"moodlekit.dev/pkg/moodlekit/internal/controller"
	"moodlekit.dev/pkg/moodlekit/internal/domain"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var phpAdapter adapter.PHPFileAdapter
var resultStore adapter.ResultStore
var compiler domain.Compiler
var workflow domain.Workflow
var ui controller.UI

// Root-level flags shared by the commands that read or write results.
var (
	sourceRootFlag string
	typesFlag      string
	logFileFlag    string
	verboseFlag    bool
)

func init() {
	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	phpAdapter = adapter.NewLocalPHPFileAdapter()
	resultStore = adapter.NewResultStore()
	compiler = domain.NewCompiler()
	workflow = newWorkflow(ui)
}

func newWorkflow(ui controller.UI) domain.Workflow {
	return domain.NewWorkflow(
		fsAdapter,
		phpAdapter,
		resultStore,
		ui,
		compiler,
	)
}

const rootLongDescription = `moodlekit reads the web-service declarations of a Moodle source tree,
compiles them to JSON Schema, and calls the declared functions over the REST protocol.

A typical run:
  moodlekit discover manifest.txt --root ../moodle
  moodlekit extract manifest.txt --root ../moodle
  moodlekit compile
  moodlekit call core.webservice.getSiteInfo`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moodlekit",
		Short:         "Moodle web-service schema extractor and client",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&sourceRootFlag, rootFlagName, viper.GetString(sourceRootKey), "root of the Moodle source tree")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(rootFlagName), sourceRootKey)

	cmd.PersistentFlags().StringVarP(&typesFlag, typesFlagName, "t", viper.GetString(outputTypesKey), "extraction results file (.json or .yaml)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(typesFlagName), outputTypesKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// argOrConfig returns the first positional argument, falling back to a config key.
func argOrConfig(args []string, key string) m.Path {
	if len(args) > 0 && args[0] != "" {
		return m.Path(args[0])
	}

	return m.Path(viper.GetString(key))
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
