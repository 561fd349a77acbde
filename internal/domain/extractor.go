// Package domain extracts web-service declarations into the type model, aggregates them
// by package and compiles them to JSON Schema.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	m "moodlekit.dev/pkg/moodlekit/internal/model"
	"moodlekit.dev/pkg/moodlekit/internal/php"
)

const (
	paramsSuffix  = "_parameters"
	returnsSuffix = "_returns"
)

var (
	packageTagPattern = regexp.MustCompile(`@package\s+([^\s*]+)`)
	packageSeparators = regexp.MustCompile(`[_.\\]`)
	docTagPattern     = regexp.MustCompile(`^@(param|return)\b`)
)

// Extraction is the outcome of one file: its result plus the functions that degraded.
type Extraction struct {
	Result m.ParseResult
	Faults []Fault
}

// ExtractorOptions tunes the extractor.
type ExtractorOptions struct {
	// Lenient degrades unsupported constructors to UNKNOWN instead of failing the file.
	Lenient bool
}

// Extractor resolves the declarations of one parsed file.
type Extractor interface {
	ExtractFile(file *php.File) (Extraction, error)
}

type extractor struct {
	opts     ExtractorOptions
	resolver resolver
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ExtractorOptions) Extractor {
	return &extractor{opts: opts}
}

func (x *extractor) ExtractFile(file *php.File) (Extraction, error) {
	pkg, err := packagePath(file)
	if err != nil {
		return Extraction{}, err
	}

	class := findClass(file)
	if class == nil {
		return Extraction{}, ErrNoClassFound
	}

	extraction := Extraction{Result: m.ParseResult{Package: pkg, Functions: m.Functions{}}}
	functions := extraction.Result.Functions

	for _, method := range class.Methods {
		var (
			name string
			slot Slot
		)

		switch {
		case strings.HasSuffix(method.Name, paramsSuffix):
			name, slot = strings.TrimSuffix(method.Name, paramsSuffix), SlotParams
		case strings.HasSuffix(method.Name, returnsSuffix):
			name, slot = strings.TrimSuffix(method.Name, returnsSuffix), SlotReturns
		default:
			fn := functions[method.Name]
			fn.Description = methodDescription(method)
			functions[method.Name] = fn

			continue
		}

		variable, err := x.resolveMethod(method)
		if err != nil {
			if errors.Is(err, ErrUnsupportedConstructor) && !x.opts.Lenient {
				return Extraction{}, fmt.Errorf("%s::%s: %w", class.Name, method.Name, err)
			}

			extraction.Faults = append(extraction.Faults, Fault{
				File:     file.Name,
				Function: name,
				Slot:     slot,
				Line:     method.Line,
				Err:      err,
			})
			variable = m.Unknown()
		}

		fn := functions[name]
		if slot == SlotParams {
			fn.Params = variable
		} else {
			fn.Returns = variable
		}

		functions[name] = fn
	}

	return extraction, nil
}

// resolveMethod resolves the first top-level return of a declaration method.
func (x *extractor) resolveMethod(method *php.Method) (*m.Variable, error) {
	returns := method.Returns()
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: no return statement", ErrInvalidDeclaration)
	}

	ret := returns[0]
	if ret.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeclaration, ret.Err)
	}

	if ret.Expr == nil {
		return nil, fmt.Errorf("%w: empty return", ErrInvalidDeclaration)
	}

	return x.resolver.resolve(ret.Expr)
}

// packagePath reads the namespace, falling back to the first @package tag of a block
// comment, and splits it into segments.
func packagePath(file *php.File) ([]string, error) {
	name := ""

	if namespaces := file.Namespaces(); len(namespaces) > 0 {
		name = namespaces[0].Name
	}

	if name == "" {
		for _, comment := range file.Comments {
			if !comment.IsBlock() {
				continue
			}

			if match := packageTagPattern.FindStringSubmatch(comment.Text); match != nil {
				name = match[1]
				break
			}
		}
	}

	var segments []string

	for _, segment := range packageSeparators.Split(name, -1) {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	if len(segments) == 0 {
		return nil, ErrNoPackageFound
	}

	return segments, nil
}

// findClass returns the first class of the first namespace, else the first file-level class.
func findClass(file *php.File) *php.Class {
	if namespaces := file.Namespaces(); len(namespaces) > 0 {
		for _, stmt := range namespaces[0].Stmts {
			if class, ok := stmt.(*php.Class); ok {
				return class
			}
		}
	}

	for _, stmt := range file.Stmts {
		if class, ok := stmt.(*php.Class); ok {
			return class
		}
	}

	return nil
}

// methodDescription cleans the method's doc comment, dropping @param and @return lines.
func methodDescription(method *php.Method) string {
	doc, ok := method.DocComment()
	if !ok {
		return ""
	}

	text := strings.TrimSuffix(strings.TrimPrefix(doc.Text, "/**"), "*/")

	var lines []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))

		if docTagPattern.MatchString(line) {
			continue
		}

		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
