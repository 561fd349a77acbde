package php

import (
	"fmt"
	"strings"
)

// SyntaxError reports source the front end cannot tokenize or structure.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func newSyntaxError(file string, line int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: syntax error: %s", e.File, e.Line, e.Msg)
}

// Position locates a node in the source.
type Position struct {
	Line  int
	Start int
	End   int
}

// File is a parsed PHP source file.
type File struct {
	Name     string
	Stmts    []Stmt
	Comments []Comment
}

// Namespaces returns the namespace declarations of f in order.
func (f *File) Namespaces() []*Namespace {
	var out []*Namespace

	for _, stmt := range f.Stmts {
		if ns, ok := stmt.(*Namespace); ok {
			out = append(out, ns)
		}
	}

	return out
}

// Classes returns every class declared at the top level of f or of one of its namespaces.
func (f *File) Classes() []*Class {
	var out []*Class

	for _, stmt := range f.Stmts {
		switch node := stmt.(type) {
		case *Class:
			out = append(out, node)
		case *Namespace:
			for _, inner := range node.Stmts {
				if class, ok := inner.(*Class); ok {
					out = append(out, class)
				}
			}
		}
	}

	return out
}

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
}

// Namespace is a `namespace a\b;` or `namespace a\b { ... }` declaration.
type Namespace struct {
	Position
	Name   string
	Braced bool
	Stmts  []Stmt
}

// Class is a class declaration with its methods.
type Class struct {
	Position
	Name      string
	Extends   string
	Modifiers []string
	Methods   []*Method
	Leading   []Comment
}

// Method is a method declaration. Body is nil for abstract methods.
type Method struct {
	Position
	Name      string
	Modifiers []string
	Leading   []Comment
	Body      []Stmt
}

// DocComment returns the last doc comment preceding the method, if any.
func (m *Method) DocComment() (Comment, bool) {
	for i := len(m.Leading) - 1; i >= 0; i-- {
		if m.Leading[i].Kind == CommentDoc {
			return m.Leading[i], true
		}
	}

	return Comment{}, false
}

// Returns lists the return statements directly in the method body.
func (m *Method) Returns() []*Return {
	var out []*Return

	for _, stmt := range m.Body {
		if ret, ok := stmt.(*Return); ok {
			out = append(out, ret)
		}
	}

	return out
}

// Return is a `return` statement. When the returned expression uses syntax outside the
// supported subset, Expr is nil and Err says why.
type Return struct {
	Position
	Expr Expr
	Err  error
}

// Opaque stands for any statement the parser skipped.
type Opaque struct {
	Position
}

func (*Namespace) stmtNode() {}
func (*Class) stmtNode()     {}
func (*Return) stmtNode()    {}
func (*Opaque) stmtNode()    {}

// Expr is an expression node. Source returns the expression's text as written.
type Expr interface {
	Pos() Position
	Source() string
}

type exprBase struct {
	Position
	Text string
}

func (e exprBase) Pos() Position  { return e.Position }
func (e exprBase) Source() string { return e.Text }

// Argument is one call argument. Name is set for named arguments.
type Argument struct {
	Name   string
	Value  Expr
	Spread bool
}

// New is a `new Class(args)` expression.
type New struct {
	exprBase
	Class string
	Args  []Argument
}

// ShortClass returns the class name without its namespace qualifier.
func (n *New) ShortClass() string {
	return shortName(n.Class)
}

// ArrayItem is one entry of an array literal. Key is nil for positional items.
type ArrayItem struct {
	Key    Expr
	Value  Expr
	ByRef  bool
	Spread bool
}

// Array is an array literal in either `[...]` or `array(...)` form.
type Array struct {
	exprBase
	Items []ArrayItem
}

// String is a string literal. Value holds the decoded content.
type String struct {
	exprBase
	Value string
}

// Number is a numeric literal.
type Number struct {
	exprBase
}

// Literal is one of the keywords null, true or false, lower-cased.
type Literal struct {
	exprBase
	Value string
}

// ConstFetch is a bare constant reference such as PARAM_INT.
type ConstFetch struct {
	exprBase
	Name string
}

// ShortName returns the constant name without its namespace qualifier.
func (c *ConstFetch) ShortName() string {
	return shortName(c.Name)
}

// ClassConstFetch is a `Class::NAME` reference.
type ClassConstFetch struct {
	exprBase
	Class string
	Name  string
}

// Variable is a `$name` reference.
type Variable struct {
	exprBase
	Name string
}

// Call is a function call.
type Call struct {
	exprBase
	Func string
	Args []Argument
}

// StaticCall is a `Class::method(args)` call.
type StaticCall struct {
	exprBase
	Class  string
	Method string
	Args   []Argument
}

// MethodCall is a `$obj->method(args)` call.
type MethodCall struct {
	exprBase
	Object Expr
	Method string
	Args   []Argument
}

// PropertyFetch is a `$obj->name` reference.
type PropertyFetch struct {
	exprBase
	Object Expr
	Name   string
}

// Binary is a binary operation.
type Binary struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operation.
type Unary struct {
	exprBase
	Op string
	X  Expr
}

func shortName(name string) string {
	if idx := strings.LastIndexByte(name, '\\'); idx >= 0 {
		return name[idx+1:]
	}

	return name
}
