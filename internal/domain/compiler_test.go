package domain

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodlekit.dev/pkg/moodlekit/internal/jsonschema"
	m "moodlekit.dev/pkg/moodlekit/internal/model"
)

func primitive(kind m.Kind, required m.Requiredness, nullable bool) *m.Variable {
	return &m.Variable{Type: kind, Required: required, Nullable: nullable}
}

func TestCompile_Primitives(t *testing.T) {
	tests := []struct {
		name string
		v    *m.Variable
		want []string
	}{
		{"string", primitive(m.ParamText, m.Required, false), []string{"string"}},
		{"nullable string", primitive(m.ParamRaw, m.Required, true), []string{"string", "null"}},
		{"number", primitive(m.ParamInt, m.Optional, false), []string{"number"}},
		{"float", primitive(m.ParamFloat, m.Optional, true), []string{"number", "null"}},
		{"boolean", primitive(m.ParamBool, m.Required, false), []string{"boolean"}},
	}

	c := NewCompiler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := c.Compile(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, schema.Types)
		})
	}
}

func TestCompile_EveryPrimitiveKindIsMapped(t *testing.T) {
	c := NewCompiler()

	for _, kind := range m.PrimitiveKinds {
		schema, err := c.Compile(primitive(kind, m.Required, false))
		if err != nil {
			t.Fatalf("Compile(%s) error = %v", kind, err)
		}

		assert.NotEmpty(t, schema.Types, kind)
	}
}

func TestCompile_Sequence(t *testing.T) {
	schema, err := NewCompiler().Compile(&m.Variable{Type: m.ParamSequence, Nullable: true, Description: "ids"})
	require.NoError(t, err)

	assert.Equal(t, []string{"array"}, schema.Types)
	assert.Equal(t, "ids", schema.Description)
	require.NotNil(t, schema.Items)
	assert.Equal(t, []string{"number"}, schema.Items.Types)
}

func TestCompile_Unknown(t *testing.T) {
	c := NewCompiler()

	schema, err := c.Compile(m.Unknown())
	require.NoError(t, err)
	assert.True(t, schema.Unconstrained())

	_, err = c.Compile(&m.Variable{Type: m.Kind("PARAM_NOPE")})
	assert.ErrorIs(t, err, ErrUnrecognizedPrimitiveKind)

	_, err = c.Compile(&m.Variable{Type: m.KindObject, Attributes: m.Attributes{
		{Name: "bad", Value: &m.Variable{Type: m.Kind("PARAM_NOPE")}},
	}})
	assert.ErrorIs(t, err, ErrUnrecognizedPrimitiveKind)
	assert.Contains(t, err.Error(), "bad")
}

func TestCompile_NestedObject(t *testing.T) {
	v := &m.Variable{
		Type:     m.KindObject,
		Required: m.Required,
		Nullable: true,
		Attributes: m.Attributes{
			{Name: "id", Value: primitive(m.ParamInt, m.Required, false)},
			{Name: "name", Value: &m.Variable{Type: m.ParamText, Required: m.Defaulted, DefaultValue: "'x'"}},
			{Name: "tags", Value: &m.Variable{
				Type:     m.KindArray,
				Required: m.Optional,
				Element: &m.Variable{Type: m.KindObject, Attributes: m.Attributes{
					{Name: "tag", Value: primitive(m.ParamTag, m.Required, false)},
					{Name: "weight", Value: primitive(m.ParamInt, m.Optional, true)},
				}},
			}},
		},
	}

	schema, err := NewCompiler().Compile(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"object"}, schema.Types, "objects are never unioned with null")
	assert.Equal(t, []string{"id"}, schema.Required)
	require.NotNil(t, schema.AdditionalProperties)
	assert.False(t, *schema.AdditionalProperties)

	name, ok := schema.Property("name")
	require.True(t, ok)
	assert.Equal(t, "'x'", name.Default)

	tags, ok := schema.Property("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"array"}, tags.Types)
	assert.Equal(t, []string{"tag"}, tags.Items.Required)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"properties":{"id":`)
	assert.Contains(t, string(data), `"x-default":"'x'"`)
}

func TestCompile_EmptyObjectHasEmptyRequired(t *testing.T) {
	schema, err := NewCompiler().Compile(&m.Variable{Type: m.KindObject})
	require.NoError(t, err)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"required":[]`)
}

func TestCompile_ArrayWithoutElement(t *testing.T) {
	_, err := NewCompiler().Compile(&m.Variable{Type: m.KindArray})
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))

	_, err = NewCompiler().Compile(nil)
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))
}

func TestCompileAll(t *testing.T) {
	params := &m.Variable{Type: m.KindObject, Attributes: m.Attributes{
		{Name: "userid", Value: primitive(m.ParamInt, m.Required, false)},
	}}
	returns := &m.Variable{Type: m.KindArray, Element: primitive(m.ParamText, m.Required, false)}

	results := []m.ParseResult{
		{Package: []string{"core", "user"}, Functions: m.Functions{
			"get_users":  {Params: params, Returns: returns, Description: "Get users."},
			"view_users": {Params: params},
			"helper":     {Description: "description only"},
		}},
		{Package: []string{"mod", "forum"}, Functions: m.Functions{
			"get_forum_discussions": {Returns: returns},
		}},
	}

	bundle, err := NewCompiler().CompileAll(results)
	require.NoError(t, err)

	names := make([]string, 0, len(bundle.Types))
	for _, named := range bundle.Types {
		names = append(names, named.Name)
		assert.Equal(t, jsonschema.Draft07, named.Schema.Draft)
		assert.Equal(t, named.Name, named.Schema.Title)
	}

	assert.Equal(t, []string{
		"CoreUserGetUsersParamsType",
		"CoreUserGetUsersReturnType",
		"CoreUserViewUsersParamsType",
		"ModForumGetForumDiscussionsReturnType",
	}, names)

	assert.Equal(t, 3, bundle.Index.Len())

	entry, ok := bundle.Index.Lookup("core", "user", "getUsers")
	require.True(t, ok)
	assert.Equal(t, IndexEntry{
		Procedure:   "core_user_get_users",
		Params:      "CoreUserGetUsersParamsType",
		Returns:     "CoreUserGetUsersReturnType",
		Description: "Get users.",
	}, entry)

	entry, ok = bundle.Index.Lookup("core", "user", "viewUsers")
	require.True(t, ok)
	assert.Equal(t, AnyType, entry.Returns)

	entry, ok = bundle.Index.Lookup("mod", "forum", "getForumDiscussions")
	require.True(t, ok)
	assert.Equal(t, AnyType, entry.Params)

	_, ok = bundle.Index.Lookup("core", "user", "helper")
	assert.False(t, ok, "description-only functions are not callable")

	_, ok = bundle.Index.Lookup("core", "user")
	assert.False(t, ok)

	data, err := json.Marshal(bundle.Index)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"core": {"user": {
			"getUsers": {"wsfunction": "core_user_get_users", "params": "CoreUserGetUsersParamsType",
				"returns": "CoreUserGetUsersReturnType", "description": "Get users."},
			"viewUsers": {"wsfunction": "core_user_view_users", "params": "CoreUserViewUsersParamsType",
				"returns": "any"}
		}},
		"mod": {"forum": {
			"getForumDiscussions": {"wsfunction": "mod_forum_get_forum_discussions", "params": "any",
				"returns": "ModForumGetForumDiscussionsReturnType"}
		}}
	}`, string(data))
}

func TestCompileAll_IndexCollision(t *testing.T) {
	results := []m.ParseResult{
		{Package: []string{"core"}, Functions: m.Functions{"user": {Params: &m.Variable{Type: m.KindObject}}}},
		{Package: []string{"core", "user"}, Functions: m.Functions{"get": {Params: &m.Variable{Type: m.KindObject}}}},
	}

	_, err := NewCompiler().CompileAll(results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user"`)
}

func TestCompileAll_DuplicateTypeNameLaterWins(t *testing.T) {
	results := []m.ParseResult{
		{Package: []string{"core", "user"}, Functions: m.Functions{
			"get": {Params: &m.Variable{Type: m.KindObject, Description: "first"}},
		}},
		{Package: []string{"core_user"}, Functions: m.Functions{
			"get": {Params: &m.Variable{Type: m.KindObject, Description: "second"}},
		}},
	}

	bundle, err := NewCompiler().CompileAll(results)
	require.NoError(t, err)
	require.Len(t, bundle.Types, 1)
	assert.Equal(t, "second", bundle.Types[0].Schema.Description)
}
