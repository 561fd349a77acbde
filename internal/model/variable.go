// Package model defines the normalized type model extracted from web-service declarations.
package model

// Kind is the discriminator of a Variable: OBJECT, ARRAY or one of the primitive kinds.
type Kind string

const (
	// KindObject marks a structure with named attributes.
	KindObject Kind = "OBJECT"
	// KindArray marks a list whose members share one element schema.
	KindArray Kind = "ARRAY"
	// KindUnknown marks a declaration that could not be resolved.
	KindUnknown Kind = "UNKNOWN"
)

// Primitive kinds, named after the PARAM_* constants of the declaration language.
const (
	ParamAlpha          Kind = "PARAM_ALPHA"
	ParamAlphaExt       Kind = "PARAM_ALPHAEXT"
	ParamAlphaNum       Kind = "PARAM_ALPHANUM"
	ParamAlphaNumExt    Kind = "PARAM_ALPHANUMEXT"
	ParamAuth           Kind = "PARAM_AUTH"
	ParamBase64         Kind = "PARAM_BASE64"
	ParamBool           Kind = "PARAM_BOOL"
	ParamCapability     Kind = "PARAM_CAPABILITY"
	ParamCleanHTML      Kind = "PARAM_CLEANHTML"
	ParamEmail          Kind = "PARAM_EMAIL"
	ParamFile           Kind = "PARAM_FILE"
	ParamFloat          Kind = "PARAM_FLOAT"
	ParamLocalisedFloat Kind = "PARAM_LOCALISEDFLOAT"
	ParamHost           Kind = "PARAM_HOST"
	ParamInt            Kind = "PARAM_INT"
	ParamLang           Kind = "PARAM_LANG"
	ParamLocalURL       Kind = "PARAM_LOCALURL"
	ParamNoTags         Kind = "PARAM_NOTAGS"
	ParamPath           Kind = "PARAM_PATH"
	ParamPEM            Kind = "PARAM_PEM"
	ParamPermission     Kind = "PARAM_PERMISSION"
	ParamRaw            Kind = "PARAM_RAW"
	ParamRawTrimmed     Kind = "PARAM_RAW_TRIMMED"
	ParamSafeDir        Kind = "PARAM_SAFEDIR"
	ParamSafePath       Kind = "PARAM_SAFEPATH"
	ParamSequence       Kind = "PARAM_SEQUENCE"
	ParamTag            Kind = "PARAM_TAG"
	ParamTagList        Kind = "PARAM_TAGLIST"
	ParamText           Kind = "PARAM_TEXT"
	ParamTheme          Kind = "PARAM_THEME"
	ParamURL            Kind = "PARAM_URL"
	ParamUsername       Kind = "PARAM_USERNAME"
	ParamStringID       Kind = "PARAM_STRINGID"
	ParamClean          Kind = "PARAM_CLEAN"
	ParamInteger        Kind = "PARAM_INTEGER"
	ParamNumber         Kind = "PARAM_NUMBER"
	ParamAction         Kind = "PARAM_ACTION"
	ParamFormat         Kind = "PARAM_FORMAT"
	ParamMultilang      Kind = "PARAM_MULTILANG"
	ParamTimezone       Kind = "PARAM_TIMEZONE"
	ParamCleanFile      Kind = "PARAM_CLEANFILE"
	ParamComponent      Kind = "PARAM_COMPONENT"
	ParamArea           Kind = "PARAM_AREA"
	ParamPlugin         Kind = "PARAM_PLUGIN"
)

// PrimitiveKinds lists every scalar kind a declaration may name, in declaration order.
var PrimitiveKinds = []Kind{
	ParamAlpha, ParamAlphaExt, ParamAlphaNum, ParamAlphaNumExt, ParamAuth, ParamBase64,
	ParamBool, ParamCapability, ParamCleanHTML, ParamEmail, ParamFile, ParamFloat,
	ParamLocalisedFloat, ParamHost, ParamInt, ParamLang, ParamLocalURL, ParamNoTags,
	ParamPath, ParamPEM, ParamPermission, ParamRaw, ParamRawTrimmed, ParamSafeDir,
	ParamSafePath, ParamSequence, ParamTag, ParamTagList, ParamText, ParamTheme, ParamURL,
	ParamUsername, ParamStringID, ParamClean, ParamInteger, ParamNumber, ParamAction,
	ParamFormat, ParamMultilang, ParamTimezone, ParamCleanFile, ParamComponent, ParamArea,
	ParamPlugin,
}

var primitiveKindIndex = func() map[Kind]struct{} {
	index := make(map[Kind]struct{}, len(PrimitiveKinds))
	for _, kind := range PrimitiveKinds {
		index[kind] = struct{}{}
	}

	return index
}()

// ParsePrimitiveKind resolves a PARAM_* constant name.
func ParsePrimitiveKind(name string) (Kind, bool) {
	if _, ok := primitiveKindIndex[Kind(name)]; !ok {
		return "", false
	}

	return Kind(name), true
}

// Shape is the structural category of a Variable.
type Shape int

const (
	// ShapePrimitive covers scalar kinds and UNKNOWN.
	ShapePrimitive Shape = iota
	// ShapeArray covers ARRAY.
	ShapeArray
	// ShapeObject covers OBJECT.
	ShapeObject
)

// Requiredness says whether a caller must supply a value.
type Requiredness string

const (
	// Optional values may be omitted.
	Optional Requiredness = "optional"
	// Required values must be supplied.
	Required Requiredness = "required"
	// Defaulted values may be omitted and then take the declared default.
	Defaulted Requiredness = "default"
)

var requirednessConstants = map[string]Requiredness{
	"VALUE_OPTIONAL": Optional,
	"VALUE_REQUIRED": Required,
	"VALUE_DEFAULT":  Defaulted,
}

// ParseRequiredness resolves a VALUE_* constant name.
func ParseRequiredness(name string) (Requiredness, bool) {
	r, ok := requirednessConstants[name]
	return r, ok
}

var nullabilityConstants = map[string]bool{
	"NULL_ALLOWED":     true,
	"NULL_NOT_ALLOWED": false,
}

// ParseNullability resolves a NULL_* constant name.
func ParseNullability(name string) (nullable bool, ok bool) {
	nullable, ok = nullabilityConstants[name]
	return nullable, ok
}

// Variable is one node of the type model.
//
// Type selects the variant: Attributes is only meaningful for OBJECT, Element only for
// ARRAY. DefaultValue holds the declaration's raw source text and is never evaluated.
type Variable struct {
	Type         Kind         `json:"type" yaml:"type"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Required     Requiredness `json:"required" yaml:"required"`
	Nullable     bool         `json:"nullable" yaml:"nullable"`
	DefaultValue string       `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Attributes   Attributes   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Element      *Variable    `json:"element,omitempty" yaml:"element,omitempty"`
}

// Shape reports which variant v is.
func (v *Variable) Shape() Shape {
	switch v.Type {
	case KindObject:
		return ShapeObject
	case KindArray:
		return ShapeArray
	default:
		return ShapePrimitive
	}
}

// IsUnknown reports whether v is the unresolved sentinel.
func (v *Variable) IsUnknown() bool {
	return v.Type == KindUnknown
}

// Unknown returns the sentinel used when a declaration could not be resolved.
func Unknown() *Variable {
	return &Variable{
		Type:     KindUnknown,
		Required: Optional,
		Nullable: true,
	}
}
