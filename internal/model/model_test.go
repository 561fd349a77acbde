package model

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func orderedObject() *Variable {
	return &Variable{
		Type:     KindObject,
		Required: Required,
		Attributes: Attributes{
			{Name: "zeta", Value: &Variable{Type: ParamInt, Required: Required, Description: "last letter"}},
			{Name: "alpha", Value: &Variable{Type: ParamText, Required: Defaulted, DefaultValue: "'x'"}},
			{Name: "items", Value: &Variable{
				Type:     KindArray,
				Required: Optional,
				Element:  &Variable{Type: ParamBool, Required: Required},
			}},
		},
	}
}

func TestAttributes_JSONKeepsOrder(t *testing.T) {
	data, err := json.Marshal(orderedObject())
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, `"zeta"`), strings.Index(text, `"alpha"`))
	assert.Less(t, strings.Index(text, `"alpha"`), strings.Index(text, `"items"`))

	var decoded Variable
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"zeta", "alpha", "items"}, decoded.Attributes.Names())
	assert.Equal(t, *orderedObject(), decoded)
}

func TestAttributes_YAMLKeepsOrder(t *testing.T) {
	data, err := yaml.Marshal(orderedObject())
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, "zeta:"), strings.Index(text, "alpha:"))

	var decoded Variable
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"zeta", "alpha", "items"}, decoded.Attributes.Names())
	assert.Equal(t, *orderedObject(), decoded)
}

func TestAttributes_UnmarshalRejectsNonObject(t *testing.T) {
	var attrs Attributes
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &attrs))

	require.NoError(t, json.Unmarshal([]byte(`null`), &attrs))
	assert.Nil(t, attrs)
}

func TestAttributes_Get(t *testing.T) {
	obj := orderedObject()

	v, ok := obj.Attributes.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, ParamText, v.Type)

	_, ok = obj.Attributes.Get("missing")
	assert.False(t, ok)
}

func TestVariable_Shape(t *testing.T) {
	assert.Equal(t, ShapeObject, orderedObject().Shape())
	assert.Equal(t, ShapeArray, (&Variable{Type: KindArray}).Shape())
	assert.Equal(t, ShapePrimitive, (&Variable{Type: ParamInt}).Shape())
	assert.Equal(t, ShapePrimitive, Unknown().Shape())
	assert.True(t, Unknown().IsUnknown())
	assert.True(t, Unknown().Nullable)
}

func TestConstantLookups(t *testing.T) {
	kind, ok := ParsePrimitiveKind("PARAM_INT")
	assert.True(t, ok)
	assert.Equal(t, ParamInt, kind)

	_, ok = ParsePrimitiveKind("PARAM_NOPE")
	assert.False(t, ok)

	_, ok = ParsePrimitiveKind("OBJECT")
	assert.False(t, ok)

	r, ok := ParseRequiredness("VALUE_DEFAULT")
	assert.True(t, ok)
	assert.Equal(t, Defaulted, r)

	nullable, ok := ParseNullability("NULL_ALLOWED")
	assert.True(t, ok)
	assert.True(t, nullable)

	_, ok = ParseNullability("NULL_MAYBE")
	assert.False(t, ok)
}

func TestFunction_Callable(t *testing.T) {
	assert.False(t, Function{Description: "only text"}.Callable())
	assert.True(t, Function{Params: orderedObject()}.Callable())
	assert.True(t, Function{Returns: Unknown()}.Callable())
}

func TestProcedureName(t *testing.T) {
	assert.Equal(t, "core_user_get_users", ProcedureName([]string{"core", "user"}, "get_users"))
	assert.Equal(t, "get_users", ProcedureName(nil, "get_users"))
	assert.Equal(t, "mod_forum", PackageKey([]string{"mod", "forum"}))
}
