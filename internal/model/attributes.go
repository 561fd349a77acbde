package model

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Attribute is one named field of an OBJECT variable.
type Attribute struct {
	Name  string
	Value *Variable
}

// Attributes keeps object fields in declaration order. It encodes as a JSON/YAML mapping.
type Attributes []Attribute

// Get returns the attribute named name.
func (a Attributes) Get(name string) (*Variable, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}

	return nil, false
}

// Names returns the attribute names in order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for _, attr := range a {
		names = append(names, attr.Name)
	}

	return names
}

// MarshalJSON writes the attributes as an object whose key order follows the slice.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object while keeping its key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*a = nil
		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes: expected object, got %v", tok)
	}

	var out Attributes

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attributes: expected key, got %v", keyTok)
		}

		value := &Variable{}
		if err := dec.Decode(value); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}

		out = append(out, Attribute{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = out

	return nil
}

// MarshalYAML emits a mapping node so YAML output keeps declaration order.
func (a Attributes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, attr := range a {
		value := &yaml.Node{}
		if err := value.Encode(attr.Value); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}

		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: attr.Name},
			value,
		)
	}

	return node, nil
}

// UnmarshalYAML reads a mapping node in document order.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes: expected mapping at line %d", node.Line)
	}

	out := make(Attributes, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		value := &Variable{}
		if err := node.Content[i+1].Decode(value); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}

		out = append(out, Attribute{Name: name, Value: value})
	}

	*a = out

	return nil
}
