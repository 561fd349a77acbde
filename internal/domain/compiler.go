package domain

import (
	"bytes"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"moodlekit.dev/pkg/moodlekit/internal/jsonschema"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
	"moodlekit.dev/pkg/moodlekit/internal/naming"
)

const (
	paramsTypeSuffix = "ParamsType"
	returnTypeSuffix = "ReturnType"
	// AnyType marks a missing signature half in the index.
	AnyType = "any"
)

// sequenceType is the wire shape of PARAM_SEQUENCE: a comma separated list of numbers.
const sequenceType = "sequence"

var primitiveTypes = func() map[m.Kind]string {
	table := map[m.Kind]string{}

	for _, kind := range []m.Kind{
		m.ParamAlpha, m.ParamAlphaExt, m.ParamAlphaNum, m.ParamAlphaNumExt, m.ParamAuth,
		m.ParamBase64, m.ParamCapability, m.ParamCleanHTML, m.ParamEmail, m.ParamFile,
		m.ParamHost, m.ParamLang, m.ParamLocalURL, m.ParamNoTags, m.ParamPath, m.ParamPEM,
		m.ParamPermission, m.ParamRaw, m.ParamRawTrimmed, m.ParamSafeDir, m.ParamSafePath,
		m.ParamTag, m.ParamTagList, m.ParamText, m.ParamTheme, m.ParamURL, m.ParamUsername,
		m.ParamStringID, m.ParamClean, m.ParamAction, m.ParamFormat, m.ParamMultilang,
		m.ParamTimezone, m.ParamCleanFile, m.ParamComponent, m.ParamArea, m.ParamPlugin,
	} {
		table[kind] = jsonschema.TypeString
	}

	for _, kind := range []m.Kind{m.ParamFloat, m.ParamLocalisedFloat, m.ParamInt, m.ParamInteger, m.ParamNumber} {
		table[kind] = jsonschema.TypeNumber
	}

	table[m.ParamBool] = jsonschema.TypeBoolean
	table[m.ParamSequence] = sequenceType

	return table
}()

// NamedSchema is one generated type document.
type NamedSchema struct {
	Name   string
	Schema *jsonschema.Schema
}

// IndexEntry describes one callable function in the index.
type IndexEntry struct {
	Procedure   string `json:"wsfunction"`
	Params      string `json:"params"`
	Returns     string `json:"returns"`
	Description string `json:"description,omitempty"`
}

// Index is the nested callable surface keyed by package segments, then by the camelCase
// function name. Keys keep insertion order.
type Index struct {
	keys     []string
	children map[string]*Index
	entries  map[string]IndexEntry
}

func newIndex() *Index {
	return &Index{children: map[string]*Index{}, entries: map[string]IndexEntry{}}
}

func (ix *Index) child(key string) (*Index, error) {
	if _, ok := ix.entries[key]; ok {
		return nil, fmt.Errorf("index key %q is both a function and a package", key)
	}

	if child, ok := ix.children[key]; ok {
		return child, nil
	}

	child := newIndex()
	ix.children[key] = child
	ix.keys = append(ix.keys, key)

	return child, nil
}

func (ix *Index) set(key string, entry IndexEntry) error {
	if _, ok := ix.children[key]; ok {
		return fmt.Errorf("index key %q is both a package and a function", key)
	}

	if _, ok := ix.entries[key]; !ok {
		ix.keys = append(ix.keys, key)
	}

	ix.entries[key] = entry

	return nil
}

// Lookup follows path and returns the entry at its end.
func (ix *Index) Lookup(path ...string) (IndexEntry, bool) {
	node := ix

	for i, key := range path {
		if i == len(path)-1 {
			entry, ok := node.entries[key]
			return entry, ok
		}

		next, ok := node.children[key]
		if !ok {
			return IndexEntry{}, false
		}

		node = next
	}

	return IndexEntry{}, false
}

// Len counts the entries below ix.
func (ix *Index) Len() int {
	n := len(ix.entries)
	for _, child := range ix.children {
		n += child.Len()
	}

	return n
}

// MarshalJSON writes the index in insertion order.
func (ix *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range ix.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		var value []byte
		if child, ok := ix.children[key]; ok {
			value, err = child.MarshalJSON()
		} else {
			value, err = json.Marshal(ix.entries[key])
		}

		if err != nil {
			return nil, err
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Bundle is the compiled form of a set of parse results.
type Bundle struct {
	Types []NamedSchema
	Index *Index
}

// Compiler turns type model nodes into JSON Schema.
type Compiler interface {
	Compile(v *m.Variable) (*jsonschema.Schema, error)
	CompileAll(results []m.ParseResult) (Bundle, error)
}

type compiler struct{}

// NewCompiler creates a Compiler.
func NewCompiler() Compiler {
	return &compiler{}
}

func (c *compiler) Compile(v *m.Variable) (*jsonschema.Schema, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil variable", ErrInvalidDeclaration)
	}

	switch v.Shape() {
	case m.ShapeObject:
		return c.object(v)
	case m.ShapeArray:
		if v.Element == nil {
			return nil, fmt.Errorf("%w: array without element", ErrInvalidDeclaration)
		}

		items, err := c.Compile(v.Element)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}

		return &jsonschema.Schema{
			Description: v.Description,
			Types:       []string{jsonschema.TypeArray},
			Items:       items,
			Default:     v.DefaultValue,
		}, nil
	default:
		return c.primitive(v)
	}
}

func (c *compiler) object(v *m.Variable) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Description:          v.Description,
		Types:                []string{jsonschema.TypeObject},
		Properties:           make([]jsonschema.Property, 0, len(v.Attributes)),
		Required:             []string{},
		AdditionalProperties: jsonschema.Bool(false),
		Default:              v.DefaultValue,
	}

	for _, attr := range v.Attributes {
		property, err := c.Compile(attr.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr.Name, err)
		}

		schema.Properties = append(schema.Properties, jsonschema.Property{Name: attr.Name, Schema: property})

		if attr.Value.Required == m.Required {
			schema.Required = append(schema.Required, attr.Name)
		}
	}

	return schema, nil
}

// primitive maps a scalar kind. Nullable scalars become a union with null; sequences and
// UNKNOWN are never unioned.
func (c *compiler) primitive(v *m.Variable) (*jsonschema.Schema, error) {
	if v.IsUnknown() {
		return &jsonschema.Schema{Description: v.Description}, nil
	}

	base, ok := primitiveTypes[v.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedPrimitiveKind, v.Type)
	}

	if base == sequenceType {
		return &jsonschema.Schema{
			Description: v.Description,
			Types:       []string{jsonschema.TypeArray},
			Items:       &jsonschema.Schema{Types: []string{jsonschema.TypeNumber}},
			Default:     v.DefaultValue,
		}, nil
	}

	types := []string{base}
	if v.Nullable {
		types = append(types, jsonschema.TypeNull)
	}

	return &jsonschema.Schema{Description: v.Description, Types: types, Default: v.DefaultValue}, nil
}

// CompileAll compiles every callable signature and builds the index. Packages keep their
// order; functions are sorted by name. A later type with an already used name replaces
// the earlier one.
func (c *compiler) CompileAll(results []m.ParseResult) (Bundle, error) {
	bundle := Bundle{Index: newIndex()}
	typeIndex := map[string]int{}

	addType := func(name string, v *m.Variable) error {
		schema, err := c.Compile(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		schema.Draft = jsonschema.Draft07
		schema.Title = name

		if i, ok := typeIndex[name]; ok {
			bundle.Types[i].Schema = schema
			return nil
		}

		typeIndex[name] = len(bundle.Types)
		bundle.Types = append(bundle.Types, NamedSchema{Name: name, Schema: schema})

		return nil
	}

	for _, result := range results {
		names := make([]string, 0, len(result.Functions))
		for name := range result.Functions {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			fn := result.Functions[name]
			if !fn.Callable() {
				continue
			}

			entry := IndexEntry{
				Procedure:   m.ProcedureName(result.Package, name),
				Params:      AnyType,
				Returns:     AnyType,
				Description: fn.Description,
			}

			if fn.Params != nil {
				entry.Params = naming.TypeName(result.Package, name, paramsTypeSuffix)
				if err := addType(entry.Params, fn.Params); err != nil {
					return Bundle{}, err
				}
			}

			if fn.Returns != nil {
				entry.Returns = naming.TypeName(result.Package, name, returnTypeSuffix)
				if err := addType(entry.Returns, fn.Returns); err != nil {
					return Bundle{}, err
				}
			}

			node := bundle.Index

			for _, segment := range result.Package {
				next, err := node.child(segment)
				if err != nil {
					return Bundle{}, err
				}

				node = next
			}

			if err := node.set(naming.CamelCase(name), entry); err != nil {
				return Bundle{}, err
			}
		}
	}

	return bundle, nil
}
