package php

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const externalSource = `<?php
// License header.

namespace mod_thing\external;

defined('MOODLE_INTERNAL') || die();

use core_external\external_api;
use core_external\external_value;

require_once($CFG->libdir . '/externallib.php');

#[\AllowDynamicProperties]
class get_thing extends external_api {
    const LIMIT = 10;

    private static $cache = ['a' => 1];

    /**
     * Returns description of method parameters
     * @return external_function_parameters
     */
    public static function execute_parameters() {
        return new external_function_parameters([
            'id' => new external_value(PARAM_INT, 'The id', VALUE_REQUIRED),
            'name' => new \core_external\external_value(PARAM_TEXT, 'Name', VALUE_DEFAULT, 'x' . 'y'),
        ]);
    }

    public static function execute(int $id): array {
        if ($id > 0) {
            return ['id' => $id];
        }
        $fn = function () {
            return 1;
        };
        return [];
    }

    /** Returns the result. */
    #[\ReturnTypeWillChange]
    public static function execute_returns(): external_single_structure {
        return new external_single_structure(array(
            'ok' => new external_value(type: PARAM_BOOL, desc: 'ok flag', allownull: NULL_NOT_ALLOWED),
        ));
    }

    abstract protected function hook();
}
`

func parseExternal(t *testing.T) *File {
	t.Helper()

	file, err := Parse("external.php", []byte(externalSource))
	require.NoError(t, err)

	return file
}

func TestParse_NamespaceAndClass(t *testing.T) {
	file := parseExternal(t)

	namespaces := file.Namespaces()
	require.Len(t, namespaces, 1)
	assert.Equal(t, `mod_thing\external`, namespaces[0].Name)
	assert.False(t, namespaces[0].Braced)

	classes := file.Classes()
	require.Len(t, classes, 1)
	assert.Equal(t, "get_thing", classes[0].Name)
	assert.Equal(t, "external_api", classes[0].Extends)

	var names []string
	for _, m := range classes[0].Methods {
		names = append(names, m.Name)
	}

	assert.Equal(t, []string{"execute_parameters", "execute", "execute_returns", "hook"}, names)
}

func TestParse_MethodDocComments(t *testing.T) {
	methods := parseExternal(t).Classes()[0].Methods

	doc, ok := methods[0].DocComment()
	require.True(t, ok)
	assert.Contains(t, doc.Text, "Returns description of method parameters")

	_, ok = methods[1].DocComment()
	assert.False(t, ok)

	doc, ok = methods[2].DocComment()
	require.True(t, ok, "doc comment before an attribute belongs to the method")
	assert.Equal(t, "/** Returns the result. */", doc.Text)
}

func TestParse_TopLevelReturnsOnly(t *testing.T) {
	methods := parseExternal(t).Classes()[0].Methods

	returns := methods[1].Returns()
	require.Len(t, returns, 1, "returns nested in blocks or closures are not direct children")

	arr, ok := returns[0].Expr.(*Array)
	require.True(t, ok)
	assert.Empty(t, arr.Items)

	assert.Nil(t, methods[3].Body)
}

func TestParse_NewExpressionTree(t *testing.T) {
	methods := parseExternal(t).Classes()[0].Methods

	returns := methods[0].Returns()
	require.Len(t, returns, 1)
	require.NoError(t, returns[0].Err)

	outer, ok := returns[0].Expr.(*New)
	require.True(t, ok)
	assert.Equal(t, "external_function_parameters", outer.ShortClass())
	require.Len(t, outer.Args, 1)

	fields, ok := outer.Args[0].Value.(*Array)
	require.True(t, ok)
	require.Len(t, fields.Items, 2)

	key, ok := fields.Items[0].Key.(*String)
	require.True(t, ok)
	assert.Equal(t, "id", key.Value)

	value, ok := fields.Items[0].Value.(*New)
	require.True(t, ok)
	assert.Equal(t, "external_value", value.Class)
	require.Len(t, value.Args, 3)
	assert.Equal(t, "PARAM_INT", value.Args[0].Value.(*ConstFetch).Name)
	assert.Equal(t, "The id", value.Args[1].Value.(*String).Value)

	qualified := fields.Items[1].Value.(*New)
	assert.Equal(t, `\core_external\external_value`, qualified.Class)
	assert.Equal(t, "external_value", qualified.ShortClass())
	assert.Equal(t, "'x' . 'y'", qualified.Args[3].Value.Source())

	concat, ok := qualified.Args[3].Value.(*Binary)
	require.True(t, ok)
	assert.Equal(t, ".", concat.Op)
}

func TestParse_NamedArgumentsAndLongArraySyntax(t *testing.T) {
	methods := parseExternal(t).Classes()[0].Methods

	ret := methods[2].Returns()[0]
	require.NoError(t, ret.Err)

	structure := ret.Expr.(*New)
	fields := structure.Args[0].Value.(*Array)
	require.Len(t, fields.Items, 1)

	value := fields.Items[0].Value.(*New)
	require.Len(t, value.Args, 3)
	assert.Equal(t, []string{"type", "desc", "allownull"},
		[]string{value.Args[0].Name, value.Args[1].Name, value.Args[2].Name})
}

func TestParse_UnsupportedReturnExpressionIsRecorded(t *testing.T) {
	src := `<?php
class a {
    public static function x_returns() {
        return $flag ? new external_value(PARAM_INT) : null;
    }
    public static function y_returns() {
        return new $cls();
    }
    public static function z_returns() {
        return new external_value(PARAM_INT, 'z');
    }
}`

	file, err := Parse("a.php", []byte(src))
	require.NoError(t, err)

	methods := file.Classes()[0].Methods
	require.Len(t, methods, 3)

	for _, m := range methods[:2] {
		ret := m.Returns()[0]

		var syntaxErr *SyntaxError
		assert.True(t, errors.As(ret.Err, &syntaxErr), "method %s", m.Name)
		assert.Nil(t, ret.Expr)
	}

	assert.NoError(t, methods[2].Returns()[0].Err)
}

func TestParse_BracedNamespaces(t *testing.T) {
	src := `<?php
namespace one {
    class a {}
}
namespace two {
    function helper() { return 1; }
    final class b {
        public function m() { return null; }
    }
}`

	file, err := Parse("b.php", []byte(src))
	require.NoError(t, err)

	namespaces := file.Namespaces()
	require.Len(t, namespaces, 2)
	assert.True(t, namespaces[1].Braced)

	classes := file.Classes()
	require.Len(t, classes, 2)
	assert.Equal(t, []string{"final"}, classes[1].Modifiers)

	lit, ok := classes[1].Methods[0].Returns()[0].Expr.(*Literal)
	require.True(t, ok)
	assert.Equal(t, "null", lit.Value)
}

func TestParse_NoNamespaceNoClass(t *testing.T) {
	file, err := Parse("c.php", []byte("<?php\n$functions = ['a' => ['classname' => 'x']];\n"))
	require.NoError(t, err)

	assert.Empty(t, file.Namespaces())
	assert.Empty(t, file.Classes())
	require.Len(t, file.Stmts, 1)
	assert.IsType(t, &Opaque{}, file.Stmts[0])
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := map[string]string{
		"unclosed class":   "<?php class a { public function b() {",
		"stray brace":      "<?php }",
		"mismatched paren": "<?php foo(];",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("bad.php", []byte(src))

			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("Parse() error = %v, want SyntaxError", err)
			}
		})
	}
}

func TestParse_ExpressionForms(t *testing.T) {
	src := `<?php
class e {
    function a() { return -1; }
    function b() { return self::LIMIT; }
    function c() { return get_string('x', 'core'); }
    function d() { return core_text::strlen('x'); }
    function e() { return $this->helper(1)->name; }
    function f() { return (int) '5' + 2 * 3; }
    function g() { return [...$rest, &$ref]; }
}`

	file, err := Parse("e.php", []byte(src))
	require.NoError(t, err)

	methods := file.Classes()[0].Methods
	exprs := make([]Expr, len(methods))

	for i, m := range methods {
		ret := m.Returns()[0]
		require.NoError(t, ret.Err, "method %s", m.Name)
		exprs[i] = ret.Expr
	}

	assert.IsType(t, &Unary{}, exprs[0])
	assert.Equal(t, "-1", exprs[0].Source())

	ccf := exprs[1].(*ClassConstFetch)
	assert.Equal(t, "self", ccf.Class)
	assert.Equal(t, "LIMIT", ccf.Name)

	assert.Equal(t, "get_string", exprs[2].(*Call).Func)
	assert.Equal(t, "strlen", exprs[3].(*StaticCall).Method)

	prop := exprs[4].(*PropertyFetch)
	assert.Equal(t, "name", prop.Name)
	assert.IsType(t, &MethodCall{}, prop.Object)

	sum := exprs[5].(*Binary)
	assert.Equal(t, "+", sum.Op)
	assert.IsType(t, &Unary{}, sum.Left)
	assert.Equal(t, "*", sum.Right.(*Binary).Op)

	items := exprs[6].(*Array).Items
	require.Len(t, items, 2)
	assert.True(t, items[0].Spread)
	assert.True(t, items[1].ByRef)
}
