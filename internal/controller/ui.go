// Package controller provides output adapters for displaying extraction, listing and
// compilation results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeExtract StartMode = iota
	ModeList
	ModeCompile
	ModeCall
)

func (mode StartMode) title() string {
	switch mode {
	case ModeList:
		return "Packages"
	case ModeCompile:
		return "Compilation"
	case ModeCall:
		return "Call"
	default:
		return "Extraction"
	}
}

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithMode sets the UI mode.
func WithMode(mode StartMode) StartOption {
	return func(c *StartConfig) {
		c.mode = mode
	}
}

// FileRow is one manifest entry in an extraction summary.
type FileRow struct {
	Entry     string
	Status    string
	Package   string
	Functions int
	Faults    int
}

// FaultRow is one degraded declaration.
type FaultRow struct {
	File     string
	Line     int
	Function string
	Slot     string
	Message  string
}

// ExtractionSummary is what the extract command shows.
type ExtractionSummary struct {
	Files     []FileRow
	Faults    []FaultRow
	Packages  int
	Functions int
	Output    string
}

// PackageRow is one package of a results file.
type PackageRow struct {
	Package   string
	Functions int
	Callable  int
}

// CompilationSummary is what the compile command shows.
type CompilationSummary struct {
	Types     int
	Functions int
	Output    string
	Check     bool
	Stale     []string
}

// UI defines the interface for displaying moodlekit results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayExtraction(ctx context.Context, summary ExtractionSummary) error
	DisplayPackages(ctx context.Context, rows []PackageRow) error
	DisplayCompilation(ctx context.Context, summary CompilationSummary) error
	DisplayDiff(ctx context.Context, name string, diff string) error
	DisplayManifest(ctx context.Context, entries []string, output string) error
	DisplayCallResult(ctx context.Context, procedure string, body []byte) error
}

// NewUI picks the paged TUI for terminals and the plain UI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
