package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.Path
	}{
		{"empty", []string{}, []m.Path{}},
		{"single", []string{"types.json"}, []m.Path{m.Path("types.json")}},
		{
			"multiple",
			[]string{"core.json", "mod.yaml", "local.json"},
			[]m.Path{m.Path("core.json"), m.Path("mod.yaml"), m.Path("local.json")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePaths(tt.args)
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgOrConfig(t *testing.T) {
	assert.Equal(t, m.Path("custom.txt"), argOrConfig([]string{"custom.txt"}, manifestKey))
	assert.Equal(t, m.Path(defaultManifest), argOrConfig(nil, manifestKey))
	assert.Equal(t, m.Path(defaultManifest), argOrConfig([]string{""}, manifestKey))
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "moodlekit", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)

	for _, name := range []string{rootFlagName, typesFlagName, logFileFlagName, verboseFlagName} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	cmd := newRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-file", t.TempDir() + "/test.log"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, output.String(), "Usage:")
	assert.Contains(t, output.String(), "moodlekit compile")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"extract", "compile", "list", "merge", "discover", "call", "init", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestInit(t *testing.T) {
	assert.NotNil(t, ui)
	assert.NotNil(t, fsAdapter)
	assert.NotNil(t, phpAdapter)
	assert.NotNil(t, resultStore)
	assert.NotNil(t, compiler)
	assert.NotNil(t, workflow)
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd
	defer func() { rootCmd = originalRootCmd }()

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})
	mockCmd.SetArgs([]string{})

	rootCmd = mockCmd

	Execute()
}

func TestExecute_ProcessLevel_Failure(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS_FAIL") == "1" {
		mockCmd := &cobra.Command{
			Use: "test",
			RunE: func(_ *cobra.Command, _ []string) error {
				fmt.Fprintln(os.Stderr, "error occurred")
				return fmt.Errorf("command failed")
			},
		}
		mockCmd.SetArgs([]string{})
		rootCmd = mockCmd

		Execute() // exits with status 1
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExecute_ProcessLevel_Failure$")
	cmd.Env = append(os.Environ(), "TEST_EXECUTE_SUBPROCESS_FAIL=1")
	output, err := cmd.CombinedOutput()

	require.Error(t, err)

	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok, "expected exec.ExitError, got %T", err)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(output), "error occurred")
}
