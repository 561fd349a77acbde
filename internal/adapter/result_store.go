package adapter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

// ResultStore persists extraction results. The file extension picks the encoding:
// .yaml and .yml use YAML, anything else JSON.
type ResultStore interface {
	SaveResults(path m.Path, results []m.ParseResult) error
	LoadResults(path m.Path) ([]m.ParseResult, error)
	EncodeResults(path m.Path, results []m.ParseResult) ([]byte, error)
}

// LocalResultStore stores results on the local disk.
type LocalResultStore struct{}

// NewResultStore constructs a LocalResultStore.
func NewResultStore() *LocalResultStore {
	return &LocalResultStore{}
}

func isYAML(path m.Path) bool {
	ext := strings.ToLower(filepath.Ext(string(path)))
	return ext == ".yaml" || ext == ".yml"
}

// EncodeResults renders results in the encoding chosen by path.
func (s *LocalResultStore) EncodeResults(path m.Path, results []m.ParseResult) ([]byte, error) {
	if results == nil {
		results = []m.ParseResult{}
	}

	if isYAML(path) {
		var buf bytes.Buffer

		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)

		if err := enc.Encode(results); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}

		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}

		return buf.Bytes(), nil
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	return append(data, '\n'), nil
}

// SaveResults writes results to path, creating parent directories.
func (s *LocalResultStore) SaveResults(path m.Path, results []m.ParseResult) error {
	data, err := s.EncodeResults(path, results)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(string(path)); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// LoadResults reads results written by SaveResults.
func (s *LocalResultStore) LoadResults(path m.Path) ([]m.ParseResult, error) {
	// #nosec G304 - user-provided results path
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, err
	}

	var results []m.ParseResult

	if isYAML(path) {
		if err := yaml.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("decode yaml %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode json %s: %w", path, err)
	}

	for i := range results {
		if results[i].Functions == nil {
			results[i].Functions = m.Functions{}
		}
	}

	return results, nil
}
