package adapter

import (
	"context"

	"moodlekit.dev/pkg/moodlekit/internal/php"
)

// PHPFileAdapter hides the PHP front end behind an interface so the domain can be fed
// hand-built trees in tests.
type PHPFileAdapter interface {
	// Parse builds a syntax tree for the provided filename/source pair.
	Parse(ctx context.Context, filename string, src []byte) (*php.File, error)
}

// LocalPHPFileAdapter parses with the bundled front end.
type LocalPHPFileAdapter struct{}

// NewLocalPHPFileAdapter constructs a LocalPHPFileAdapter.
func NewLocalPHPFileAdapter() *LocalPHPFileAdapter {
	return &LocalPHPFileAdapter{}
}

// Parse builds a syntax tree for the provided filename/source pair.
func (a *LocalPHPFileAdapter) Parse(ctx context.Context, filename string, src []byte) (*php.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return php.Parse(filename, src)
}
