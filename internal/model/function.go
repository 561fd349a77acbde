package model

import "strings"

// Function describes one remote function found in a declaration file.
//
// A Function with neither Params nor Returns only carries a description; it is kept in
// results but is not part of the callable surface.
type Function struct {
	Params      *Variable `json:"params,omitempty" yaml:"params,omitempty"`
	Returns     *Variable `json:"returnType,omitempty" yaml:"returnType,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Callable reports whether the function declares a parameter or return signature.
func (f Function) Callable() bool {
	return f.Params != nil || f.Returns != nil
}

// Functions maps function names (without the package prefix) to their declarations.
type Functions map[string]Function

// ParseResult is the extraction output of one declaration file, or the merge of several
// files sharing a package path.
type ParseResult struct {
	Package   []string  `json:"package" yaml:"package"`
	Functions Functions `json:"functions" yaml:"functions"`
}

// PackageKey joins a package path into a single comparable key.
func PackageKey(path []string) string {
	return strings.Join(path, "_")
}

// ProcedureName returns the wire identifier of a function declared under pkg.
func ProcedureName(pkg []string, function string) string {
	if len(pkg) == 0 {
		return function
	}

	return PackageKey(pkg) + "_" + function
}
