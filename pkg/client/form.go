package client

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/google/go-querystring/query"
)

// envelope is the fixed part of every request body.
type envelope struct {
	Token    string `url:"wstoken"`
	Function string `url:"wsfunction"`
	Format   string `url:"moodlewsrestformat"`
}

// encodeForm flattens arg into indexed bracket keys and adds the envelope, whose fields
// replace argument keys of the same name.
func encodeForm(arg any, env envelope) (url.Values, error) {
	values := url.Values{}

	normalized, err := normalize(arg)
	if err != nil {
		return nil, err
	}

	switch v := normalized.(type) {
	case nil:
	case map[string]any:
		flatten(values, "", v)
	default:
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidArgument, normalized)
	}

	fixed, err := query.Values(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	for key, vs := range fixed {
		values[key] = vs
	}

	return values, nil
}

// normalize round-trips arg through JSON so structs, tags and custom marshalers are
// honoured and numbers keep their text.
func normalize(arg any) (any, error) {
	if arg == nil {
		return nil, nil
	}

	data, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return out, nil
}

// flatten writes v under key. Empty objects and arrays add nothing; null is sent empty.
func flatten(values url.Values, key string, v any) {
	switch v := v.(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			flatten(values, childKey(key, name), v[name])
		}
	case []any:
		for i, item := range v {
			flatten(values, childKey(key, strconv.Itoa(i)), item)
		}
	case nil:
		values.Add(key, "")
	case bool:
		values.Add(key, strconv.FormatBool(v))
	case json.Number:
		values.Add(key, v.String())
	case string:
		values.Add(key, v)
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

func childKey(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "[" + name + "]"
}
