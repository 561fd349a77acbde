package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"moodlekit.dev/pkg/moodlekit/internal/adapter"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// DefaultSkipList names Moodle declaration files that use shapes outside the grammar.
var DefaultSkipList = []string{
	"report/competency/classes/external.php", // computed constructor target
	"admin/tool/lp/classes/external.php",     // computed constructor target
	"mod/glossary/classes/external.php",      // static delegation to helper_for_get_mods_by_courses
	"auth/email/classes/external.php",        // core_user::get_property_type
	"competency/classes/external.php",        // computed constructor target
	"mod/assign/externallib.php",             // computed constructor target
	"auth/classes/external.php",              // core_user::get_property_type
	"cohort/externallib.php",                 // self::build_custom_fields_parameters_structure
	"group/externallib.php",                  // self::build_custom_fields_parameters_structure
	"user/externallib.php",                   // computed constructor target
}

// SkipPolicy is the deny-list of files skipped before parsing.
type SkipPolicy struct {
	entries []string
}

// NewSkipPolicy builds a policy from slash or OS separated paths.
func NewSkipPolicy(entries []string) SkipPolicy {
	policy := SkipPolicy{}

	for _, entry := range entries {
		if entry = normalizeEntry(entry); entry != "" && entry != "." {
			policy.entries = append(policy.entries, entry)
		}
	}

	return policy
}

// Entries returns the normalized deny-list.
func (p SkipPolicy) Entries() []string {
	return append([]string(nil), p.entries...)
}

// Skips reports whether entry is denied, either exactly or through a path-boundary suffix.
func (p SkipPolicy) Skips(entry string) bool {
	entry = normalizeEntry(entry)

	for _, denied := range p.entries {
		if entry == denied || strings.HasSuffix(entry, "/"+denied) {
			return true
		}
	}

	return false
}

func normalizeEntry(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}

	return strings.TrimPrefix(path.Clean(filepath.ToSlash(entry)), "./")
}

// Aggregation merges parse results by package path, keeping packages in first-seen order.
// On a function name collision the later result wins in full.
type Aggregation struct {
	order    []string
	packages map[string]*m.ParseResult
}

// NewAggregation creates an empty Aggregation.
func NewAggregation() *Aggregation {
	return &Aggregation{packages: map[string]*m.ParseResult{}}
}

// packageID joins segments with a separator that never appears inside one.
func packageID(pkg []string) string {
	return strings.Join(pkg, "\\")
}

// Merge folds result into the aggregation.
func (a *Aggregation) Merge(result m.ParseResult) {
	id := packageID(result.Package)

	existing, ok := a.packages[id]
	if !ok {
		existing = &m.ParseResult{
			Package:   append([]string(nil), result.Package...),
			Functions: make(m.Functions, len(result.Functions)),
		}
		a.packages[id] = existing
		a.order = append(a.order, id)
	}

	for name, fn := range result.Functions {
		existing.Functions[name] = fn
	}
}

// Len returns the number of packages.
func (a *Aggregation) Len() int {
	return len(a.order)
}

// Results returns the merged packages in first-seen order.
func (a *Aggregation) Results() []m.ParseResult {
	results := make([]m.ParseResult, 0, len(a.order))

	for _, id := range a.order {
		pkg := a.packages[id]
		functions := make(m.Functions, len(pkg.Functions))

		for name, fn := range pkg.Functions {
			functions[name] = fn
		}

		results = append(results, m.ParseResult{
			Package:   append([]string(nil), pkg.Package...),
			Functions: functions,
		})
	}

	return results
}

// FileStatus says what happened to one manifest entry.
type FileStatus string

const (
	// FileExtracted files contributed to the aggregation.
	FileExtracted FileStatus = "extracted"
	// FileDenied files were on the deny-list.
	FileDenied FileStatus = "denied"
	// FileNoClass files declare no class.
	FileNoClass FileStatus = "no-class"
)

// FileOutcome is the per-file part of a Report.
type FileOutcome struct {
	Source    m.Source
	Status    FileStatus
	Package   []string
	Functions int
	Faults    []Fault
}

// Report is the outcome of an aggregation run.
type Report struct {
	Results []m.ParseResult
	Files   []FileOutcome
}

// Faults returns every degraded function of the run in manifest order.
func (r Report) Faults() []Fault {
	var faults []Fault
	for _, file := range r.Files {
		faults = append(faults, file.Faults...)
	}

	return faults
}

// AggregatorOptions tunes an Aggregator.
type AggregatorOptions struct {
	// Parallel bounds concurrent file extraction; zero means unbounded.
	Parallel int
	Skip     SkipPolicy
}

// Aggregator extracts a manifest of files and merges the results.
type Aggregator interface {
	Aggregate(ctx context.Context, sources []m.Source) (Report, error)
}

type aggregator struct {
	adapter.SourceFSAdapter
	adapter.PHPFileAdapter
	Extractor
	opts AggregatorOptions
}

// NewAggregator creates an Aggregator with the provided dependencies.
func NewAggregator(
	fsAdapter adapter.SourceFSAdapter,
	phpAdapter adapter.PHPFileAdapter,
	extractor Extractor,
	opts AggregatorOptions,
) Aggregator {
	return &aggregator{
		SourceFSAdapter: fsAdapter,
		PHPFileAdapter:  phpAdapter,
		Extractor:       extractor,
		opts:            opts,
	}
}

// Aggregate extracts files concurrently and merges them strictly in manifest order, so
// the later-wins rule does not depend on scheduling. Denied files are never read; files
// without a class are skipped; any other failure stops the run.
func (a *aggregator) Aggregate(ctx context.Context, sources []m.Source) (Report, error) {
	outcomes := make([]FileOutcome, len(sources))
	extractions := make([]Extraction, len(sources))

	group, groupCtx := errgroup.WithContext(ctx)
	if a.opts.Parallel > 0 {
		group.SetLimit(a.opts.Parallel)
	}

	for i, source := range sources {
		outcomes[i].Source = source

		if a.opts.Skip.Skips(source.Entry) {
			slog.Debug("Skipping denied file", "file", source.Entry)

			outcomes[i].Status = FileDenied

			continue
		}

		i, source := i, source

		group.Go(func() error {
			extraction, err := a.extract(groupCtx, source)
			if errors.Is(err, ErrNoClassFound) {
				slog.Debug("Skipping file without class", "file", source.Entry)

				outcomes[i].Status = FileNoClass

				return nil
			}

			if err != nil {
				return &FileError{File: source.Entry, Err: err}
			}

			extractions[i] = extraction
			outcomes[i].Status = FileExtracted
			outcomes[i].Package = extraction.Result.Package
			outcomes[i].Functions = len(extraction.Result.Functions)
			outcomes[i].Faults = extraction.Faults

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Report{}, err
	}

	aggregation := NewAggregation()

	for i, outcome := range outcomes {
		if outcome.Status != FileExtracted {
			continue
		}

		for _, fault := range outcome.Faults {
			slog.Warn("Degraded declaration", "file", outcome.Source.Entry, "function", fault.Function,
				"slot", fault.Slot, "error", fault.Err)
		}

		aggregation.Merge(extractions[i].Result)
	}

	return Report{Results: aggregation.Results(), Files: outcomes}, nil
}

func (a *aggregator) extract(ctx context.Context, source m.Source) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	content, err := a.ReadFile(ctx, source.FullPath)
	if err != nil {
		return Extraction{}, fmt.Errorf("read: %w", err)
	}

	file, err := a.Parse(ctx, string(source.FullPath), content)
	if err != nil {
		return Extraction{}, fmt.Errorf("parse: %w", err)
	}

	return a.ExtractFile(file)
}
