// Package jsonschema holds the small JSON Schema subset the model compiler emits.
package jsonschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Draft07 is the meta-schema URI written on top-level documents.
const Draft07 = "http://json-schema.org/draft-07/schema#"

// Primitive type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Property is one named member of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is an exportable JSON Schema node. A zero Schema is the unconstrained schema.
//
// Types encodes as a single string when it has one member and as an array otherwise.
// Properties keep their declaration order. Default carries raw source text and is
// exported under the x-default extension keyword.
type Schema struct {
	Draft                string
	Title                string
	Description          string
	Types                []string
	Items                *Schema
	Properties           []Property
	Required             []string
	AdditionalProperties *bool
	Default              string
}

// Property returns the member schema named name.
func (s *Schema) Property(name string) (*Schema, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}

	return nil, false
}

// Unconstrained reports whether s accepts any value.
func (s *Schema) Unconstrained() bool {
	return len(s.Types) == 0 && s.Items == nil && len(s.Properties) == 0 &&
		s.Required == nil && s.AdditionalProperties == nil
}

// Bool returns a pointer to b, for AdditionalProperties.
func Bool(b bool) *bool {
	return &b
}

type field struct {
	key   string
	value interface{}
}

// MarshalJSON writes the schema with a fixed key order so generated files are stable.
func (s Schema) MarshalJSON() ([]byte, error) {
	var fields []field

	if s.Draft != "" {
		fields = append(fields, field{"$schema", s.Draft})
	}

	if s.Title != "" {
		fields = append(fields, field{"title", s.Title})
	}

	if s.Description != "" {
		fields = append(fields, field{"description", s.Description})
	}

	switch len(s.Types) {
	case 0:
	case 1:
		fields = append(fields, field{"type", s.Types[0]})
	default:
		fields = append(fields, field{"type", s.Types})
	}

	if s.Items != nil {
		fields = append(fields, field{"items", s.Items})
	}

	if s.Properties != nil {
		fields = append(fields, field{"properties", properties(s.Properties)})
	}

	if s.Required != nil {
		fields = append(fields, field{"required", s.Required})
	}

	if s.AdditionalProperties != nil {
		fields = append(fields, field{"additionalProperties", *s.AdditionalProperties})
	}

	if s.Default != "" {
		fields = append(fields, field{"x-default", s.Default})
	}

	return writeObject(fields)
}

type properties []Property

func (p properties) MarshalJSON() ([]byte, error) {
	fields := make([]field, 0, len(p))
	for _, prop := range p {
		fields = append(fields, field{prop.Name, prop.Schema})
	}

	return writeObject(fields)
}

func writeObject(fields []field) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", f.key, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
