package domain

import (
	"fmt"
	"strings"

	m "moodlekit.dev/pkg/moodlekit/internal/model"
	"moodlekit.dev/pkg/moodlekit/internal/php"
)

// Constructor is one of the external_* classes a declaration may instantiate.
type Constructor int

// Recognized constructors.
const (
	ConstructorValue Constructor = iota + 1
	ConstructorWarnings
	ConstructorFunctionParameters
	ConstructorSingleStructure
	ConstructorMultipleStructure
	// ConstructorFormatValue is only valid as the value of a field map entry.
	ConstructorFormatValue
)

// Constructors lists every recognized constructor in lookup order.
var Constructors = []Constructor{
	ConstructorValue,
	ConstructorWarnings,
	ConstructorFunctionParameters,
	ConstructorSingleStructure,
	ConstructorMultipleStructure,
	ConstructorFormatValue,
}

// ClassName returns the PHP class name of c.
func (c Constructor) ClassName() string {
	switch c {
	case ConstructorValue:
		return "external_value"
	case ConstructorWarnings:
		return "external_warnings"
	case ConstructorFunctionParameters:
		return "external_function_parameters"
	case ConstructorSingleStructure:
		return "external_single_structure"
	case ConstructorMultipleStructure:
		return "external_multiple_structure"
	case ConstructorFormatValue:
		return "external_format_value"
	}

	return fmt.Sprintf("Constructor(%d)", int(c))
}

func (c Constructor) String() string {
	return c.ClassName()
}

// Params returns the constructor's parameter names in positional order.
func (c Constructor) Params() []string {
	switch c {
	case ConstructorValue:
		return []string{"type", "desc", "required", "default", "allownull"}
	case ConstructorWarnings:
		return []string{"itemdesc", "itemiddesc", "warningcodedesc"}
	case ConstructorFunctionParameters:
		return []string{"keys", "desc", "required", "default"}
	case ConstructorSingleStructure:
		return []string{"keys", "desc", "required", "default", "allownull"}
	case ConstructorMultipleStructure:
		return []string{"content", "desc", "required", "default", "allownull"}
	case ConstructorFormatValue:
		return []string{"textfieldname", "required", "default"}
	}

	return nil
}

// LookupConstructor matches a possibly qualified class name by suffix.
func LookupConstructor(class string) (Constructor, bool) {
	for _, c := range Constructors {
		if strings.HasSuffix(class, c.ClassName()) {
			return c, true
		}
	}

	return 0, false
}

// Descriptions used by external_warnings when its arguments are omitted.
const (
	defaultWarningItemDesc    = "item"
	defaultWarningItemIDDesc  = "item id"
	defaultWarningCodeDesc    = "the warning code can be used by the client app to implement specific behaviour"
	warningMessageDesc        = "untranslated english message to explain the warning"
	formatValueDescriptionFmt = "%s format (1 = HTML, 0 = MOODLE, 2 = PLAIN, or 4 = MARKDOWN)"
)

// arguments maps parameter names to the expressions bound to them.
type arguments map[string]php.Expr

func bindArguments(c Constructor, args []php.Argument) (arguments, error) {
	params := c.Params()
	bound := make(arguments, len(args))
	named := false

	for i, arg := range args {
		switch {
		case arg.Spread:
			return nil, fmt.Errorf("%w: %s: argument unpacking", ErrInvalidDeclaration, c)
		case arg.Name != "":
			if !contains(params, arg.Name) {
				return nil, fmt.Errorf("%w: %s: unknown named argument %q", ErrInvalidDeclaration, c, arg.Name)
			}

			if _, dup := bound[arg.Name]; dup {
				return nil, fmt.Errorf("%w: %s: argument %q given twice", ErrInvalidDeclaration, c, arg.Name)
			}

			named = true
			bound[arg.Name] = arg.Value
		default:
			if named {
				return nil, fmt.Errorf("%w: %s: positional argument after named argument", ErrInvalidDeclaration, c)
			}

			if i >= len(params) {
				return nil, fmt.Errorf("%w: %s: too many arguments", ErrInvalidDeclaration, c)
			}

			bound[params[i]] = arg.Value
		}
	}

	return bound, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}

// resolver turns constructor expressions into type model nodes.
type resolver struct{}

func (r resolver) resolve(expr php.Expr) (*m.Variable, error) {
	n, ok := expr.(*php.New)
	if !ok {
		return nil, fmt.Errorf("%w: expected a constructor call, found %q", ErrInvalidDeclaration, expr.Source())
	}

	c, ok := LookupConstructor(n.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConstructor, n.Class)
	}

	args, err := bindArguments(c, n.Args)
	if err != nil {
		return nil, err
	}

	switch c {
	case ConstructorValue:
		return r.value(args)
	case ConstructorWarnings:
		return r.warnings(args), nil
	case ConstructorFunctionParameters:
		return r.structure(c, args, false)
	case ConstructorSingleStructure:
		return r.structure(c, args, true)
	case ConstructorMultipleStructure:
		return r.multiple(args)
	case ConstructorFormatValue:
		return nil, fmt.Errorf("%w: %s outside a field map", ErrInvalidDeclaration, c)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedConstructor, n.Class)
}

func (r resolver) value(args arguments) (*m.Variable, error) {
	typeArg, ok := args["type"]
	if !ok {
		return nil, fmt.Errorf("%w: external_value without a type", ErrInvalidDeclaration)
	}

	constant, ok := typeArg.(*php.ConstFetch)
	if !ok {
		return nil, fmt.Errorf("%w: external_value type %q is not a constant", ErrInvalidDeclaration, typeArg.Source())
	}

	kind, ok := m.ParsePrimitiveKind(constant.ShortName())
	if !ok {
		return nil, fmt.Errorf("%w: unknown value type %s", ErrInvalidDeclaration, constant.Name)
	}

	required, err := requiredness(args["required"])
	if err != nil {
		return nil, err
	}

	nullable, err := nullability(args["allownull"], true)
	if err != nil {
		return nil, err
	}

	return &m.Variable{
		Type:         kind,
		Description:  stringValue(args["desc"]),
		Required:     required,
		Nullable:     nullable,
		DefaultValue: sourceText(args["default"]),
	}, nil
}

func (r resolver) warnings(args arguments) *m.Variable {
	describe := func(name, fallback string) string {
		if expr, ok := args[name]; ok {
			return stringValue(expr)
		}

		return fallback
	}

	return &m.Variable{
		Type:        m.KindArray,
		Description: "list of warnings",
		Required:    m.Optional,
		Nullable:    true,
		Element: &m.Variable{
			Type:        m.KindObject,
			Description: "warning",
			Required:    m.Required,
			Nullable:    false,
			Attributes: m.Attributes{
				{Name: "item", Value: &m.Variable{
					Type:        m.ParamText,
					Description: describe("itemdesc", defaultWarningItemDesc),
					Required:    m.Optional,
					Nullable:    true,
				}},
				{Name: "itemid", Value: &m.Variable{
					Type:        m.ParamInt,
					Description: describe("itemiddesc", defaultWarningItemIDDesc),
					Required:    m.Optional,
					Nullable:    true,
				}},
				{Name: "warningcode", Value: &m.Variable{
					Type:        m.ParamAlphaNum,
					Description: describe("warningcodedesc", defaultWarningCodeDesc),
					Required:    m.Required,
					Nullable:    true,
				}},
				{Name: "message", Value: &m.Variable{
					Type:        m.ParamRaw,
					Description: warningMessageDesc,
					Required:    m.Required,
					Nullable:    true,
				}},
			},
		},
	}
}

// structure resolves external_function_parameters (never nullable) and
// external_single_structure (nullable only when allownull says so).
func (r resolver) structure(c Constructor, args arguments, hasAllowNull bool) (*m.Variable, error) {
	keys, ok := args["keys"]
	if !ok {
		return nil, fmt.Errorf("%w: %s without keys", ErrInvalidDeclaration, c)
	}

	fields, ok := keys.(*php.Array)
	if !ok {
		return nil, fmt.Errorf("%w: %s keys %q are not an array literal", ErrInvalidDeclaration, c, keys.Source())
	}

	attributes, err := r.fields(fields)
	if err != nil {
		return nil, err
	}

	required, err := requiredness(args["required"])
	if err != nil {
		return nil, err
	}

	nullable := false
	if hasAllowNull {
		if nullable, err = nullability(args["allownull"], false); err != nil {
			return nil, err
		}
	}

	return &m.Variable{
		Type:         m.KindObject,
		Description:  stringValue(args["desc"]),
		Required:     required,
		Nullable:     nullable,
		DefaultValue: sourceText(args["default"]),
		Attributes:   attributes,
	}, nil
}

func (r resolver) multiple(args arguments) (*m.Variable, error) {
	content, ok := args["content"]
	if !ok {
		return nil, fmt.Errorf("%w: external_multiple_structure without content", ErrInvalidDeclaration)
	}

	element, err := r.resolve(content)
	if err != nil {
		return nil, err
	}

	required, err := requiredness(args["required"])
	if err != nil {
		return nil, err
	}

	nullable, err := nullability(args["allownull"], false)
	if err != nil {
		return nil, err
	}

	return &m.Variable{
		Type:         m.KindArray,
		Description:  stringValue(args["desc"]),
		Required:     required,
		Nullable:     nullable,
		DefaultValue: sourceText(args["default"]),
		Element:      element,
	}, nil
}

// fields resolves a field map. A repeated key replaces the earlier value in place.
func (r resolver) fields(arr *php.Array) (m.Attributes, error) {
	attributes := make(m.Attributes, 0, len(arr.Items))
	index := make(map[string]int, len(arr.Items))

	for _, item := range arr.Items {
		if item.Spread || item.ByRef {
			return nil, fmt.Errorf("%w: unsupported field map entry %q", ErrInvalidDeclaration, item.Value.Source())
		}

		if item.Key == nil {
			return nil, fmt.Errorf("%w: field map entry %q has no key", ErrInvalidDeclaration, item.Value.Source())
		}

		name, ok := constantString(item.Key)
		if !ok {
			return nil, fmt.Errorf("%w: field map key %q is not a string", ErrInvalidDeclaration, item.Key.Source())
		}

		value, err := r.field(name, item.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}

		if i, dup := index[name]; dup {
			attributes[i].Value = value
			continue
		}

		index[name] = len(attributes)
		attributes = append(attributes, m.Attribute{Name: name, Value: value})
	}

	return attributes, nil
}

func (r resolver) field(name string, expr php.Expr) (*m.Variable, error) {
	n, ok := expr.(*php.New)
	if !ok {
		return r.resolve(expr)
	}

	if c, ok := LookupConstructor(n.Class); !ok || c != ConstructorFormatValue {
		return r.resolve(expr)
	}

	args, err := bindArguments(ConstructorFormatValue, n.Args)
	if err != nil {
		return nil, err
	}

	textField, ok := constantString(args["textfieldname"])
	if !ok {
		return nil, fmt.Errorf("%w: external_format_value for %q needs a literal field name", ErrInvalidDeclaration, name)
	}

	required, err := requiredness(args["required"])
	if err != nil {
		return nil, err
	}

	return &m.Variable{
		Type:         m.ParamInt,
		Description:  fmt.Sprintf(formatValueDescriptionFmt, textField),
		Required:     required,
		Nullable:     true,
		DefaultValue: sourceText(args["default"]),
	}, nil
}

// requiredness reads a VALUE_* argument. Non-constant expressions keep the default.
func requiredness(expr php.Expr) (m.Requiredness, error) {
	constant, ok := expr.(*php.ConstFetch)
	if !ok {
		return m.Required, nil
	}

	required, ok := m.ParseRequiredness(constant.ShortName())
	if !ok {
		return "", fmt.Errorf("%w: unknown requiredness %s", ErrInvalidDeclaration, constant.Name)
	}

	return required, nil
}

// nullability reads a NULL_* argument. Non-constant expressions keep the default.
func nullability(expr php.Expr, fallback bool) (bool, error) {
	constant, ok := expr.(*php.ConstFetch)
	if !ok {
		return fallback, nil
	}

	nullable, ok := m.ParseNullability(constant.ShortName())
	if !ok {
		return false, fmt.Errorf("%w: unknown nullability %s", ErrInvalidDeclaration, constant.Name)
	}

	return nullable, nil
}

// constantString folds string literals and their concatenations.
func constantString(expr php.Expr) (string, bool) {
	switch e := expr.(type) {
	case *php.String:
		return e.Value, true
	case *php.Binary:
		if e.Op != "." {
			return "", false
		}

		left, ok := constantString(e.Left)
		if !ok {
			return "", false
		}

		right, ok := constantString(e.Right)
		if !ok {
			return "", false
		}

		return left + right, true
	}

	return "", false
}

// stringValue returns a description argument, or "" when it is absent or computed.
func stringValue(expr php.Expr) string {
	if expr == nil {
		return ""
	}

	s, _ := constantString(expr)

	return s
}

func sourceText(expr php.Expr) string {
	if expr == nil {
		return ""
	}

	return expr.Source()
}
