package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pmezard/go-difflib/difflib"

	"moodlekit.dev/pkg/moodlekit/internal/adapter"
	"moodlekit.dev/pkg/moodlekit/internal/controller"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// IndexFile is the name of the compiled index next to the type documents.
const IndexFile = "index.json"

const (
	outputFileMode = 0o644
	manifestHeader = "# Moodle web-service declaration files, one per line relative to the source root.\n"
)

// ExtractArgs contains the arguments for extracting a manifest.
type ExtractArgs struct {
	Manifest m.Path
	Root     m.Path
	Output   m.Path
	Parallel int
	Lenient  bool
	Skip     []string
}

// CompileArgs contains the arguments for compiling a results file.
type CompileArgs struct {
	Types   m.Path
	Schemas m.Path
	Check   bool
}

// ListArgs contains the arguments for listing a results file.
type ListArgs struct {
	Types m.Path
}

// MergeArgs contains the arguments for merging results files.
type MergeArgs struct {
	Inputs []m.Path
	Output m.Path
}

// DiscoverArgs contains the arguments for building a manifest from a source tree.
type DiscoverArgs struct {
	Root   m.Path
	Output m.Path
}

// Workflow drives the moodlekit commands.
type Workflow interface {
	Extract(ctx context.Context, args ExtractArgs) error
	Compile(ctx context.Context, args CompileArgs) error
	List(ctx context.Context, args ListArgs) error
	Merge(ctx context.Context, args MergeArgs) error
	Discover(ctx context.Context, args DiscoverArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.PHPFileAdapter
	adapter.ResultStore
	controller.UI
	Compiler
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	phpAdapter adapter.PHPFileAdapter,
	resultStore adapter.ResultStore,
	ui controller.UI,
	compiler Compiler,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		PHPFileAdapter:  phpAdapter,
		ResultStore:     resultStore,
		UI:              ui,
		Compiler:        compiler,
	}
}

func (w *workflow) Extract(ctx context.Context, args ExtractArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeExtract)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	sources, err := w.readManifest(ctx, args.Manifest, args.Root)
	if err != nil {
		return err
	}

	slog.Info("Extracting declarations", "files", len(sources), "parallel", args.Parallel)

	aggregator := NewAggregator(w.SourceFSAdapter, w.PHPFileAdapter,
		NewExtractor(ExtractorOptions{Lenient: args.Lenient}),
		AggregatorOptions{Parallel: args.Parallel, Skip: NewSkipPolicy(args.Skip)})

	report, err := aggregator.Aggregate(ctx, sources)
	if err != nil {
		slog.Error("Extraction failed", "error", err)
		return fmt.Errorf("extract: %w", err)
	}

	if err := w.SaveResults(args.Output, report.Results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	if err := w.DisplayExtraction(ctx, summarizeExtraction(report, args.Output)); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// readManifest resolves manifest entries against root. Blank lines and lines starting
// with # are ignored.
func (w *workflow) readManifest(ctx context.Context, manifest, root m.Path) ([]m.Source, error) {
	content, err := w.ReadFile(ctx, manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return parseManifest(string(content), func(entry string) m.Path {
		return w.JoinPath(string(root), entry)
	}), nil
}

func parseManifest(content string, resolve func(entry string) m.Path) []m.Source {
	var sources []m.Source

	for _, line := range strings.Split(content, "\n") {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}

		sources = append(sources, m.Source{Entry: entry, FullPath: resolve(entry)})
	}

	return sources
}

func summarizeExtraction(report Report, output m.Path) controller.ExtractionSummary {
	summary := controller.ExtractionSummary{
		Files:    make([]controller.FileRow, 0, len(report.Files)),
		Packages: len(report.Results),
		Output:   string(output),
	}

	for _, result := range report.Results {
		summary.Functions += len(result.Functions)
	}

	for _, file := range report.Files {
		summary.Files = append(summary.Files, controller.FileRow{
			Entry:     file.Source.Entry,
			Status:    string(file.Status),
			Package:   m.PackageKey(file.Package),
			Functions: file.Functions,
			Faults:    len(file.Faults),
		})

		for _, fault := range file.Faults {
			summary.Faults = append(summary.Faults, controller.FaultRow{
				File:     file.Source.Entry,
				Line:     fault.Line,
				Function: fault.Function,
				Slot:     string(fault.Slot),
				Message:  fault.Err.Error(),
			})
		}
	}

	return summary
}

func (w *workflow) Compile(ctx context.Context, args CompileArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeCompile)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	results, err := w.LoadResults(args.Types)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	bundle, err := w.CompileAll(results)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	files, err := renderBundle(bundle)
	if err != nil {
		return err
	}

	summary := controller.CompilationSummary{
		Types:     len(bundle.Types),
		Functions: bundle.Index.Len(),
		Output:    string(args.Schemas),
		Check:     args.Check,
	}

	if args.Check {
		summary.Stale, err = w.checkFiles(ctx, args.Schemas, files)
	} else {
		err = w.writeFiles(args.Schemas, files)
	}

	if err != nil {
		return err
	}

	if err := w.DisplayCompilation(ctx, summary); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	if len(summary.Stale) > 0 {
		return fmt.Errorf("%w: %d file(s) in %s", ErrStaleOutput, len(summary.Stale), args.Schemas)
	}

	return nil
}

// generatedFile is one compiler output document.
type generatedFile struct {
	name    string
	content []byte
}

func renderBundle(bundle Bundle) ([]generatedFile, error) {
	files := make([]generatedFile, 0, len(bundle.Types)+1)

	for _, named := range bundle.Types {
		content, err := json.MarshalIndent(named.Schema, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", named.Name, err)
		}

		files = append(files, generatedFile{name: named.Name + ".json", content: append(content, '\n')})
	}

	index, err := json.MarshalIndent(bundle.Index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	return append(files, generatedFile{name: IndexFile, content: append(index, '\n')}), nil
}

func (w *workflow) writeFiles(dir m.Path, files []generatedFile) error {
	if err := w.MkdirAll(dir); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	for _, file := range files {
		path := w.JoinPath(string(dir), file.name)
		if err := w.WriteFile(path, file.content, outputFileMode); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	slog.Info("Wrote schemas", "dir", dir, "files", len(files))

	return nil
}

// checkFiles diffs every generated file against the copy on disk and returns the names
// of the files that differ. A missing file counts as empty.
func (w *workflow) checkFiles(ctx context.Context, dir m.Path, files []generatedFile) ([]string, error) {
	var stale []string

	for _, file := range files {
		path := w.JoinPath(string(dir), file.name)

		current, err := w.ReadFile(ctx, path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(current)),
			B:        difflib.SplitLines(string(file.content)),
			FromFile: string(path),
			ToFile:   string(path) + " (generated)",
			Context:  3,
		})
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", path, err)
		}

		if diff == "" {
			continue
		}

		stale = append(stale, file.name)

		if err := w.DisplayDiff(ctx, file.name, diff); err != nil {
			return nil, fmt.Errorf("display: %w", err)
		}
	}

	return stale, nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeList)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	results, err := w.LoadResults(args.Types)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	if err := w.DisplayPackages(ctx, packageRows(results)); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

func packageRows(results []m.ParseResult) []controller.PackageRow {
	rows := make([]controller.PackageRow, 0, len(results))

	for _, result := range results {
		row := controller.PackageRow{Package: m.PackageKey(result.Package), Functions: len(result.Functions)}

		for _, fn := range result.Functions {
			if fn.Callable() {
				row.Callable++
			}
		}

		rows = append(rows, row)
	}

	return rows
}

// Merge folds results files into one, in argument order, so later files win.
func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeList)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	aggregation := NewAggregation()

	for _, input := range args.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		results, err := w.LoadResults(input)
		if err != nil {
			return fmt.Errorf("load %s: %w", input, err)
		}

		slog.Debug("Merging results", "file", input, "packages", len(results))

		for _, result := range results {
			aggregation.Merge(result)
		}
	}

	merged := aggregation.Results()

	if err := w.SaveResults(args.Output, merged); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	if err := w.DisplayPackages(ctx, packageRows(merged)); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// Discover walks a Moodle checkout and writes the declaration files it finds as a
// manifest. Entries are slash separated and sorted.
func (w *workflow) Discover(ctx context.Context, args DiscoverArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeExtract)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	if _, err := w.FileInfo(args.Root); err != nil {
		return fmt.Errorf("root path error: %w", err)
	}

	var entries []string

	err := w.Walk(args.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if info.IsDir() {
			if ignoredDirs[info.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := w.RelPath(args.Root, m.Path(path))
		if err != nil {
			return err
		}

		if entry := filepath.ToSlash(string(rel)); isDeclarationFile(entry) {
			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", args.Root, err)
	}

	sort.Strings(entries)

	if args.Output != "" {
		content := manifestHeader + strings.Join(entries, "\n")
		if len(entries) > 0 {
			content += "\n"
		}

		if err := w.WriteFile(args.Output, []byte(content), outputFileMode); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	if err := w.DisplayManifest(ctx, entries, string(args.Output)); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// isDeclarationFile matches the places Moodle keeps external function declarations.
func isDeclarationFile(entry string) bool {
	if !strings.HasSuffix(entry, ".php") {
		return false
	}

	entry = "/" + entry

	return strings.HasSuffix(entry, "/externallib.php") ||
		strings.HasSuffix(entry, "/classes/external.php") ||
		strings.Contains(entry, "/classes/external/")
}
