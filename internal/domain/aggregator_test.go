package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodlekit.dev/pkg/moodlekit/internal/adapter"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// declarationFile renders a namespaced class declaring one function per name, each with a
// single integer parameter described by desc.
func declarationFile(namespace, desc string, functions ...string) string {
	src := fmt.Sprintf("<?php\nnamespace %s;\n\nclass external {\n", namespace)

	for _, fn := range functions {
		src += fmt.Sprintf("    public static function %s_parameters() {\n"+
			"        return new external_function_parameters(['id' => new external_value(PARAM_INT, '%s')]);\n"+
			"    }\n", fn, desc)
	}

	return src + "}\n"
}

func newTestAggregator(opts AggregatorOptions) Aggregator {
	return NewAggregator(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalPHPFileAdapter(),
		NewExtractor(ExtractorOptions{}),
		opts,
	)
}

func sourcesFor(root string, entries ...string) []m.Source {
	sources := make([]m.Source, 0, len(entries))
	for _, entry := range entries {
		sources = append(sources, m.Source{Entry: entry, FullPath: m.Path(filepath.Join(root, entry))})
	}

	return sources
}

func paramDescription(t *testing.T, result m.ParseResult, function string) string {
	t.Helper()

	fn, ok := result.Functions[function]
	require.True(t, ok, "function %s missing", function)

	id, ok := fn.Params.Attributes.Get("id")
	require.True(t, ok)

	return id.Description
}

func TestAggregation_Merge(t *testing.T) {
	t.Run("later wins per function", func(t *testing.T) {
		agg := NewAggregation()
		agg.Merge(m.ParseResult{Package: []string{"core", "user"}, Functions: m.Functions{
			"get_users":  {Description: "first"},
			"view_users": {Description: "kept"},
		}})
		agg.Merge(m.ParseResult{Package: []string{"mod", "forum"}, Functions: m.Functions{"get": {}}})
		agg.Merge(m.ParseResult{Package: []string{"core", "user"}, Functions: m.Functions{
			"get_users": {Description: "second"},
		}})

		results := agg.Results()
		require.Len(t, results, 2)
		assert.Equal(t, 2, agg.Len())
		assert.Equal(t, []string{"core", "user"}, results[0].Package)
		assert.Equal(t, "second", results[0].Functions["get_users"].Description)
		assert.Equal(t, "kept", results[0].Functions["view_users"].Description)
		assert.Equal(t, []string{"mod", "forum"}, results[1].Package)
	})

	t.Run("idempotent", func(t *testing.T) {
		result := m.ParseResult{Package: []string{"core"}, Functions: m.Functions{"a": {Description: "x"}}}

		once := NewAggregation()
		once.Merge(result)

		twice := NewAggregation()
		twice.Merge(result)
		twice.Merge(result)

		assert.Equal(t, once.Results(), twice.Results())
	})

	t.Run("segments are not joined for identity", func(t *testing.T) {
		agg := NewAggregation()
		agg.Merge(m.ParseResult{Package: []string{"mod", "forum"}, Functions: m.Functions{}})
		agg.Merge(m.ParseResult{Package: []string{"mod_forum"}, Functions: m.Functions{}})

		assert.Equal(t, 2, agg.Len())
	})

	t.Run("results are copies", func(t *testing.T) {
		agg := NewAggregation()
		agg.Merge(m.ParseResult{Package: []string{"core"}, Functions: m.Functions{"a": {}}})

		results := agg.Results()
		results[0].Functions["b"] = m.Function{}
		results[0].Package[0] = "changed"

		again := agg.Results()
		assert.Len(t, again[0].Functions, 1)
		assert.Equal(t, []string{"core"}, again[0].Package)
	})
}

func TestSkipPolicy(t *testing.T) {
	policy := NewSkipPolicy([]string{"user/externallib.php", "./mod/assign/externallib.php", "", "  "})

	assert.Equal(t, []string{"user/externallib.php", "mod/assign/externallib.php"}, policy.Entries())

	tests := []struct {
		entry string
		want  bool
	}{
		{"user/externallib.php", true},
		{"./user/externallib.php", true},
		{"moodle/user/externallib.php", true},
		{"otheruser/externallib.php", false},
		{"mod/assign/externallib.php", true},
		{"mod/forum/externallib.php", false},
		{"user/externallib.php.bak", false},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Skips(tt.entry))
		})
	}

	assert.True(t, NewSkipPolicy(DefaultSkipList).Skips("cohort/externallib.php"))
}

func TestAggregate(t *testing.T) {
	t.Run("later file wins", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.php"), declarationFile(`mod_forum\external`, "from a", "get", "view"))
		writeFile(t, filepath.Join(root, "b.php"), declarationFile(`mod_forum\external`, "from b", "get"))

		report, err := newTestAggregator(AggregatorOptions{Parallel: 2}).
			Aggregate(context.Background(), sourcesFor(root, "a.php", "b.php"))
		require.NoError(t, err)

		require.Len(t, report.Results, 1)
		assert.Equal(t, "from b", paramDescription(t, report.Results[0], "get"))
		assert.Equal(t, "from a", paramDescription(t, report.Results[0], "view"))
	})

	t.Run("manifest order decides with many workers", func(t *testing.T) {
		root := t.TempDir()

		entries := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			entry := fmt.Sprintf("f%02d.php", i)
			writeFile(t, filepath.Join(root, entry), declarationFile(`core_course`, entry, "get"))
			entries = append(entries, entry)
		}

		for _, parallel := range []int{0, 1, 8} {
			report, err := newTestAggregator(AggregatorOptions{Parallel: parallel}).
				Aggregate(context.Background(), sourcesFor(root, entries...))
			require.NoError(t, err)
			require.Len(t, report.Results, 1)
			assert.Equal(t, "f19.php", paramDescription(t, report.Results[0], "get"))
		}
	})

	t.Run("denied and classless files are skipped", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "user/externallib.php"), "<?php\nclass broken {")
		writeFile(t, filepath.Join(root, "lib/helpers.php"), "<?php\nnamespace core;\nfunction helper() {}\n")
		writeFile(t, filepath.Join(root, "mod/forum/externallib.php"), declarationFile(`mod_forum`, "", "get"))

		aggregator := newTestAggregator(AggregatorOptions{Skip: NewSkipPolicy([]string{"user/externallib.php"})})
		report, err := aggregator.Aggregate(context.Background(),
			sourcesFor(root, "user/externallib.php", "lib/helpers.php", "mod/forum/externallib.php"))
		require.NoError(t, err)

		require.Len(t, report.Files, 3)
		assert.Equal(t, FileDenied, report.Files[0].Status)
		assert.Equal(t, FileNoClass, report.Files[1].Status)
		assert.Equal(t, FileExtracted, report.Files[2].Status)
		assert.Equal(t, []string{"mod", "forum"}, report.Files[2].Package)
		assert.Equal(t, 1, report.Files[2].Functions)
		require.Len(t, report.Results, 1)
	})

	t.Run("syntax error fails the run", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "bad.php"), "<?php\nclass broken {")

		_, err := newTestAggregator(AggregatorOptions{}).Aggregate(context.Background(), sourcesFor(root, "bad.php"))
		require.Error(t, err)

		var fileErr *FileError
		require.True(t, errors.As(err, &fileErr))
		assert.Equal(t, "bad.php", fileErr.File)
	})

	t.Run("missing package fails the run", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "nopkg.php"), "<?php\nclass orphan {}\n")

		_, err := newTestAggregator(AggregatorOptions{}).Aggregate(context.Background(), sourcesFor(root, "nopkg.php"))
		assert.ErrorIs(t, err, ErrNoPackageFound)
	})

	t.Run("missing file fails the run", func(t *testing.T) {
		_, err := newTestAggregator(AggregatorOptions{}).
			Aggregate(context.Background(), sourcesFor(t.TempDir(), "absent.php"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("faults are reported per file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "x.php"), `<?php
namespace core_x;
class external {
    public static function get_parameters() {
        return self::shared();
    }
}
`)

		report, err := newTestAggregator(AggregatorOptions{}).Aggregate(context.Background(), sourcesFor(root, "x.php"))
		require.NoError(t, err)
		require.Len(t, report.Faults(), 1)
		assert.Equal(t, "get", report.Faults()[0].Function)
		assert.True(t, report.Results[0].Functions["get"].Params.IsUnknown())
	})

	t.Run("canceled context", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.php"), declarationFile(`core`, "", "get"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestAggregator(AggregatorOptions{}).Aggregate(ctx, sourcesFor(root, "a.php"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
