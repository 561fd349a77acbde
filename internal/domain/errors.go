package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPackageFound means a file has neither a namespace nor an @package tag.
	ErrNoPackageFound = errors.New("no package found")
	// ErrNoClassFound means a file declares no class.
	ErrNoClassFound = errors.New("no class found")
	// ErrUnsupportedConstructor means a `new` expression names a class outside the grammar.
	ErrUnsupportedConstructor = errors.New("unsupported constructor")
	// ErrInvalidDeclaration covers per-function resolution failures.
	ErrInvalidDeclaration = errors.New("invalid declaration")
	// ErrUnrecognizedPrimitiveKind means the compiler met a kind missing from its table.
	ErrUnrecognizedPrimitiveKind = errors.New("unrecognized primitive kind")
	// ErrStaleOutput means generated files on disk differ from a fresh compilation.
	ErrStaleOutput = errors.New("generated output is stale")
)

// FileError attaches the manifest entry to a file-level failure.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Slot names the half of a function signature a declaration method describes.
type Slot string

const (
	// SlotParams is the `<name>_parameters` method.
	SlotParams Slot = "params"
	// SlotReturns is the `<name>_returns` method.
	SlotReturns Slot = "returns"
)

// Fault is a per-function resolution failure. The affected slot was replaced with the
// UNKNOWN sentinel and extraction carried on.
type Fault struct {
	File     string
	Function string
	Slot     Slot
	Line     int
	Err      error
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s:%d: %s %s: %v", f.File, f.Line, f.Function, f.Slot, f.Err)
}

func (f Fault) Unwrap() error {
	return f.Err
}
