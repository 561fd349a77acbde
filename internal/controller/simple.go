package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayExtraction prints the per-file table and the degraded declarations.
func (s *SimpleUI) DisplayExtraction(ctx context.Context, summary ExtractionSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderExtraction(summary))

	return nil
}

// DisplayPackages prints one row per package.
func (s *SimpleUI) DisplayPackages(ctx context.Context, rows []PackageRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderPackages(rows))

	return nil
}

// DisplayCompilation prints the compilation outcome.
func (s *SimpleUI) DisplayCompilation(ctx context.Context, summary CompilationSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderCompilation(summary))

	return nil
}

// DisplayDiff prints a unified diff for one generated file.
func (s *SimpleUI) DisplayDiff(ctx context.Context, name string, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderDiff(name, diff))

	return nil
}

// DisplayManifest prints the discovered manifest entries.
func (s *SimpleUI) DisplayManifest(ctx context.Context, entries []string, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderManifest(entries, output))

	return nil
}

// DisplayCallResult prints a remote call's response body.
func (s *SimpleUI) DisplayCallResult(ctx context.Context, _ string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s\n", strings.TrimRight(string(body), "\n"))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	return table
}

func renderExtraction(summary ExtractionSummary) string {
	var out bytes.Buffer

	table := newTable(&out, []string{"File", "Status", "Package", "Functions", "Degraded"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, row := range summary.Files {
		table.Append([]string{row.Entry, row.Status, row.Package, fmt.Sprintf("%d", row.Functions), fmt.Sprintf("%d", row.Faults)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(summary.Files)),
		"",
		fmt.Sprintf("%d packages", summary.Packages),
		fmt.Sprintf("%d", summary.Functions),
		fmt.Sprintf("%d", len(summary.Faults)),
	})
	table.Render()

	if len(summary.Faults) > 0 {
		out.WriteString("\nDegraded declarations:\n")

		for _, fault := range summary.Faults {
			fmt.Fprintf(&out, "  %s:%d %s (%s): %s\n", fault.File, fault.Line, fault.Function, fault.Slot, fault.Message)
		}
	}

	if summary.Output != "" {
		fmt.Fprintf(&out, "\nWrote %s\n", summary.Output)
	}

	return out.String()
}

func renderPackages(rows []PackageRow) string {
	var out bytes.Buffer

	table := newTable(&out, []string{"Package", "Functions", "Callable"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	functions, callable := 0, 0

	for _, row := range rows {
		table.Append([]string{row.Package, fmt.Sprintf("%d", row.Functions), fmt.Sprintf("%d", row.Callable)})

		functions += row.Functions
		callable += row.Callable
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Packages %d", len(rows)),
		fmt.Sprintf("%d", functions),
		fmt.Sprintf("%d", callable),
	})
	table.Render()

	return out.String()
}

func renderCompilation(summary CompilationSummary) string {
	var out bytes.Buffer

	switch {
	case summary.Check && len(summary.Stale) == 0:
		fmt.Fprintf(&out, "%s is up to date (%d types, %d functions)\n", summary.Output, summary.Types, summary.Functions)
	case summary.Check:
		fmt.Fprintf(&out, "%d stale file(s) in %s:\n", len(summary.Stale), summary.Output)

		for _, name := range summary.Stale {
			fmt.Fprintf(&out, "  %s\n", name)
		}
	default:
		fmt.Fprintf(&out, "Compiled %d types for %d functions into %s\n", summary.Types, summary.Functions, summary.Output)
	}

	return out.String()
}

func renderDiff(name, diff string) string {
	if diff == "" {
		return ""
	}

	return fmt.Sprintf("--- %s\n%s\n", name, strings.TrimRight(diff, "\n"))
}

func renderManifest(entries []string, output string) string {
	var out bytes.Buffer

	for _, entry := range entries {
		out.WriteString(entry)
		out.WriteByte('\n')
	}

	if output != "" {
		fmt.Fprintf(&out, "\nWrote %d entries to %s\n", len(entries), output)
	}

	return out.String()
}
