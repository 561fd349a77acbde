package php

import (
	"strings"
)

var binaryPrecedence = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7, "!=": 7, "===": 7, "!==": 7, "<>": 7, "<=>": 7,
	"<": 8, "<=": 8, ">": 8, ">=": 8,
	".":  9,
	"<<": 10, ">>": 10,
	"+": 11, "-": 11,
	"*": 12, "/": 12, "%": 12,
	"**": 13,
}

var rightAssociative = map[string]bool{"??": true, "**": true}

var classModifiers = map[string]bool{"abstract": true, "final": true, "readonly": true}

var memberModifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true,
	"abstract": true, "final": true, "var": true, "readonly": true,
}

var castTypes = map[string]bool{
	"int": true, "integer": true, "bool": true, "boolean": true, "float": true, "double": true,
	"real": true, "string": true, "array": true, "object": true, "binary": true,
}

var closers = map[string]string{"(": ")", "[": "]", "#[": "]", "{": "}"}

type parser struct {
	filename string
	src      []byte
	toks     []Token
	pos      int
}

// Parse tokenizes and structures a PHP file. Namespaces, classes and methods are kept;
// other statements become Opaque nodes. Unsupported syntax inside a return expression
// is recorded on the Return node, while structural damage is reported as a SyntaxError.
func Parse(filename string, src []byte) (*File, error) {
	toks, comments, err := Tokenize(filename, src)
	if err != nil {
		return nil, err
	}

	p := &parser{filename: filename, src: src, toks: toks}

	stmts, err := p.statements(false, false)
	if err != nil {
		return nil, err
	}

	return &File{Name: filename, Stmts: stmts, Comments: comments}, nil
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}

	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) punct(value string) bool {
	return p.peek().is(TokenPunct, value)
}

func (p *parser) keyword(kw string) bool {
	return isKeyword(p.peek(), kw)
}

func isKeyword(tok Token, kw string) bool {
	return tok.Kind == TokenIdent && strings.EqualFold(tok.Value, kw)
}

func (p *parser) expect(value string) (Token, error) {
	tok := p.peek()
	if !tok.is(TokenPunct, value) {
		return tok, p.errorf(tok, "unexpected %s, expecting %q", tok, value)
	}

	return p.next(), nil
}

func (p *parser) errorf(tok Token, format string, args ...interface{}) error {
	return newSyntaxError(p.filename, tok.Line, format, args...)
}

// statements parses declarations until the end of input, the closing brace of a braced
// block, or the next namespace keyword when inside an unbraced namespace.
func (p *parser) statements(braced, inNamespace bool) ([]Stmt, error) {
	var stmts []Stmt

	for {
		tok := p.peek()

		switch {
		case tok.Kind == TokenEOF:
			if braced {
				return nil, p.errorf(tok, "unexpected end of file, expecting \"}\"")
			}

			return stmts, nil
		case tok.is(TokenPunct, "}"):
			if !braced {
				return nil, p.errorf(tok, "unexpected \"}\"")
			}

			p.next()

			return stmts, nil
		case tok.is(TokenPunct, ";"):
			p.next()
		case tok.is(TokenPunct, "#["):
			p.next()

			if err := p.skipBalanced("]"); err != nil {
				return nil, err
			}
		case isKeyword(tok, "namespace"):
			if inNamespace && !braced {
				return stmts, nil
			}

			ns, err := p.namespace()
			if err != nil {
				return nil, err
			}

			stmts = append(stmts, ns)
		case p.atClass():
			class, err := p.class()
			if err != nil {
				return nil, err
			}

			stmts = append(stmts, class)
		default:
			op, err := p.skipStatement()
			if err != nil {
				return nil, err
			}

			stmts = append(stmts, op)
		}
	}
}

func (p *parser) namespace() (*Namespace, error) {
	kw := p.next()
	ns := &Namespace{Position: Position{Line: kw.Line, Start: kw.Start}}

	if p.peek().Kind == TokenIdent {
		ns.Name = strings.TrimPrefix(p.next().Value, "\\")
	}

	var err error

	switch {
	case p.punct("{"):
		p.next()

		ns.Braced = true
		ns.Stmts, err = p.statements(true, true)
	case p.punct(";"):
		p.next()

		ns.Stmts, err = p.statements(false, true)
	default:
		return nil, p.errorf(p.peek(), "unexpected %s after namespace", p.peek())
	}

	if err != nil {
		return nil, err
	}

	ns.End = p.toks[p.pos-1].End

	return ns, nil
}

func (p *parser) atClass() bool {
	i := 0
	for tok := p.peekAt(i); tok.Kind == TokenIdent && classModifiers[strings.ToLower(tok.Value)]; tok = p.peekAt(i) {
		i++
	}

	return isKeyword(p.peekAt(i), "class") && p.peekAt(i+1).Kind == TokenIdent
}

func (p *parser) class() (*Class, error) {
	first := p.peek()
	class := &Class{
		Position: Position{Line: first.Line, Start: first.Start},
		Leading:  first.Leading,
	}

	for !p.keyword("class") {
		class.Modifiers = append(class.Modifiers, strings.ToLower(p.next().Value))
	}

	p.next()
	class.Name = p.next().Value

	if p.keyword("extends") {
		p.next()

		parent := p.next()
		if parent.Kind != TokenIdent {
			return nil, p.errorf(parent, "unexpected %s after extends", parent)
		}

		class.Extends = parent.Value
	}

	if p.keyword("implements") {
		p.next()

		for {
			iface := p.next()
			if iface.Kind != TokenIdent {
				return nil, p.errorf(iface, "unexpected %s after implements", iface)
			}

			if !p.punct(",") {
				break
			}

			p.next()
		}
	}

	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		switch {
		case tok.Kind == TokenEOF:
			return nil, p.errorf(tok, "unexpected end of file in class %s", class.Name)
		case tok.is(TokenPunct, "}"):
			p.next()
			class.End = tok.End

			return class, nil
		case tok.is(TokenPunct, ";"):
			p.next()
		default:
			method, err := p.member()
			if err != nil {
				return nil, err
			}

			if method != nil {
				class.Methods = append(class.Methods, method)
			}
		}
	}
}

// member parses one class member and returns it when it is a method.
func (p *parser) member() (*Method, error) {
	var (
		leading   []Comment
		modifiers []string
	)

	for {
		tok := p.peek()

		if tok.is(TokenPunct, "#[") {
			leading = append(leading, tok.Leading...)
			p.next()

			if err := p.skipBalanced("]"); err != nil {
				return nil, err
			}

			continue
		}

		if tok.Kind == TokenIdent && memberModifiers[strings.ToLower(tok.Value)] {
			leading = append(leading, tok.Leading...)
			modifiers = append(modifiers, strings.ToLower(tok.Value))
			p.next()

			continue
		}

		break
	}

	if !p.keyword("function") {
		_, err := p.skipStatement()
		return nil, err
	}

	return p.method(append(leading, p.peek().Leading...), modifiers)
}

func (p *parser) method(leading []Comment, modifiers []string) (*Method, error) {
	kw := p.next()

	if p.punct("&") {
		p.next()
	}

	name := p.next()
	if name.Kind != TokenIdent {
		return nil, p.errorf(name, "unexpected %s, expecting method name", name)
	}

	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	if err := p.skipBalanced(")"); err != nil {
		return nil, err
	}

	for !p.punct("{") && !p.punct(";") {
		if tok := p.next(); tok.Kind == TokenEOF {
			return nil, p.errorf(tok, "unexpected end of file in method %s", name.Value)
		}
	}

	method := &Method{
		Position:  Position{Line: kw.Line, Start: kw.Start},
		Name:      name.Value,
		Modifiers: modifiers,
		Leading:   leading,
	}

	if p.punct(";") {
		method.End = p.next().End
		return method, nil
	}

	p.next()

	body, err := p.body()
	if err != nil {
		return nil, err
	}

	method.Body = body
	method.End = p.toks[p.pos-1].End

	return method, nil
}

// body parses a method body after its opening brace, keeping top-level returns.
func (p *parser) body() ([]Stmt, error) {
	stmts := []Stmt{}

	for {
		tok := p.peek()

		switch {
		case tok.Kind == TokenEOF:
			return nil, p.errorf(tok, "unexpected end of file in method body")
		case tok.is(TokenPunct, "}"):
			p.next()
			return stmts, nil
		case tok.is(TokenPunct, ";"):
			p.next()
		case isKeyword(tok, "return"):
			ret, err := p.returnStmt()
			if err != nil {
				return nil, err
			}

			stmts = append(stmts, ret)
		default:
			op, err := p.skipStatement()
			if err != nil {
				return nil, err
			}

			stmts = append(stmts, op)
		}
	}
}

func (p *parser) returnStmt() (*Return, error) {
	kw := p.next()
	ret := &Return{Position: Position{Line: kw.Line, Start: kw.Start}}

	if p.punct(";") {
		ret.End = p.next().End
		return ret, nil
	}

	mark := p.pos

	expr, err := p.expr(1)
	if err == nil && !p.punct(";") {
		err = p.errorf(p.peek(), "unexpected %s in return expression", p.peek())
	}

	if err != nil {
		p.pos = mark

		if _, skipErr := p.skipStatement(); skipErr != nil {
			return nil, skipErr
		}

		ret.Err = err
		ret.End = p.toks[p.pos-1].End

		return ret, nil
	}

	ret.Expr = expr
	ret.End = p.next().End

	return ret, nil
}

// skipStatement consumes one statement without structuring it. It stops after a
// top-level semicolon or after the block a statement opened, and leaves an unmatched
// closing brace for the caller.
func (p *parser) skipStatement() (*Opaque, error) {
	first := p.peek()
	op := &Opaque{Position: Position{Line: first.Line, Start: first.Start, End: first.Start}}

	var stack []string

	for {
		tok := p.peek()

		if tok.Kind == TokenEOF {
			if len(stack) > 0 {
				return nil, p.errorf(tok, "unexpected end of file, expecting %q", stack[len(stack)-1])
			}

			return op, nil
		}

		if tok.Kind == TokenPunct {
			switch tok.Value {
			case "(", "[", "{", "#[":
				stack = append(stack, closers[tok.Value])
			case ")", "]", "}":
				if len(stack) == 0 {
					if tok.Value == "}" {
						return op, nil
					}

					return nil, p.errorf(tok, "unexpected %q", tok.Value)
				}

				if want := stack[len(stack)-1]; want != tok.Value {
					return nil, p.errorf(tok, "unexpected %q, expecting %q", tok.Value, want)
				}

				stack = stack[:len(stack)-1]

				if len(stack) == 0 && tok.Value == "}" {
					op.End = p.next().End
					return op, nil
				}
			case ";":
				if len(stack) == 0 {
					op.End = p.next().End
					return op, nil
				}
			}
		}

		op.End = p.next().End
	}
}

// skipBalanced consumes tokens up to and including closer, whose opener was already read.
func (p *parser) skipBalanced(closer string) error {
	stack := []string{closer}

	for len(stack) > 0 {
		tok := p.next()

		if tok.Kind == TokenEOF {
			return p.errorf(tok, "unexpected end of file, expecting %q", stack[len(stack)-1])
		}

		if tok.Kind != TokenPunct {
			continue
		}

		switch tok.Value {
		case "(", "[", "{", "#[":
			stack = append(stack, closers[tok.Value])
		case ")", "]", "}":
			if want := stack[len(stack)-1]; want != tok.Value {
				return p.errorf(tok, "unexpected %q, expecting %q", tok.Value, want)
			}

			stack = stack[:len(stack)-1]
		}
	}

	return nil
}

func (p *parser) base(startIdx int) exprBase {
	start := p.toks[startIdx]
	end := p.toks[p.pos-1].End

	return exprBase{
		Position: Position{Line: start.Line, Start: start.Start, End: end},
		Text:     string(p.src[start.Start:end]),
	}
}

func (p *parser) expr(minPrec int) (Expr, error) {
	startIdx := p.pos

	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		prec, ok := binaryPrecedence[tok.Value]
		if tok.Kind != TokenPunct || !ok || prec < minPrec {
			return left, nil
		}

		p.next()

		nextPrec := prec + 1
		if rightAssociative[tok.Value] {
			nextPrec = prec
		}

		right, err := p.expr(nextPrec)
		if err != nil {
			return nil, err
		}

		left = &Binary{exprBase: p.base(startIdx), Op: tok.Value, Left: left, Right: right}
	}
}

func (p *parser) unary() (Expr, error) {
	startIdx := p.pos
	tok := p.peek()

	if tok.Kind == TokenPunct {
		op := ""

		switch {
		case tok.Value == "-" || tok.Value == "+" || tok.Value == "!" || tok.Value == "~" || tok.Value == "@":
			op = tok.Value
			p.next()
		case tok.Value == "(" && p.peekAt(1).Kind == TokenIdent && castTypes[strings.ToLower(p.peekAt(1).Value)] &&
			p.peekAt(2).is(TokenPunct, ")"):
			op = "(" + strings.ToLower(p.peekAt(1).Value) + ")"
			p.pos += 3
		}

		if op != "" {
			x, err := p.unary()
			if err != nil {
				return nil, err
			}

			return &Unary{exprBase: p.base(startIdx), Op: op, X: x}, nil
		}
	}

	return p.postfix()
}

func (p *parser) postfix() (Expr, error) {
	startIdx := p.pos

	x, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		switch {
		case tok.is(TokenPunct, "->") || tok.is(TokenPunct, "?->"):
			p.next()

			name := p.next()
			if name.Kind != TokenIdent {
				return nil, p.errorf(name, "unsupported member access %s", name)
			}

			if p.punct("(") {
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}

				x = &MethodCall{exprBase: p.base(startIdx), Object: x, Method: name.Value, Args: args}
			} else {
				x = &PropertyFetch{exprBase: p.base(startIdx), Object: x, Name: name.Value}
			}
		case tok.is(TokenPunct, "[") || tok.is(TokenPunct, "{"):
			return nil, p.errorf(tok, "unsupported offset access")
		default:
			return x, nil
		}
	}
}

func (p *parser) primary() (Expr, error) {
	startIdx := p.pos
	tok := p.peek()

	switch tok.Kind {
	case TokenString:
		p.next()
		return &String{exprBase: p.base(startIdx), Value: tok.Value}, nil
	case TokenNumber:
		p.next()
		return &Number{exprBase: p.base(startIdx)}, nil
	case TokenVariable:
		p.next()
		return &Variable{exprBase: p.base(startIdx), Name: tok.Value}, nil
	case TokenIdent:
		return p.identExpr()
	case TokenPunct:
		switch tok.Value {
		case "[":
			p.next()
			return p.array(startIdx, "]")
		case "(":
			p.next()

			x, err := p.expr(1)
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(")"); err != nil {
				return nil, err
			}

			return x, nil
		}
	}

	return nil, p.errorf(tok, "unsupported expression starting with %s", tok)
}

func (p *parser) identExpr() (Expr, error) {
	startIdx := p.pos
	tok := p.next()

	switch lower := strings.ToLower(tok.Value); lower {
	case "new":
		return p.newExpr(startIdx)
	case "null", "true", "false":
		return &Literal{exprBase: p.base(startIdx), Value: lower}, nil
	case "array":
		if p.punct("(") {
			p.next()
			return p.array(startIdx, ")")
		}
	case "function", "fn", "match", "yield", "throw", "clone":
		return nil, p.errorf(tok, "unsupported %q expression", lower)
	case "static":
		if p.keyword("function") || p.keyword("fn") {
			return nil, p.errorf(tok, "unsupported closure expression")
		}
	}

	if p.punct("::") {
		p.next()

		member := p.next()
		if member.Kind != TokenIdent {
			return nil, p.errorf(member, "unsupported static member %s", member)
		}

		if p.punct("(") {
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}

			return &StaticCall{exprBase: p.base(startIdx), Class: tok.Value, Method: member.Value, Args: args}, nil
		}

		return &ClassConstFetch{exprBase: p.base(startIdx), Class: tok.Value, Name: member.Value}, nil
	}

	if p.punct("(") {
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}

		return &Call{exprBase: p.base(startIdx), Func: tok.Value, Args: args}, nil
	}

	return &ConstFetch{exprBase: p.base(startIdx), Name: tok.Value}, nil
}

func (p *parser) newExpr(startIdx int) (Expr, error) {
	class := p.peek()

	switch {
	case isKeyword(class, "class"):
		return nil, p.errorf(class, "anonymous classes are not supported")
	case class.Kind != TokenIdent:
		return nil, p.errorf(class, "computed class name in new expression")
	}

	p.next()

	args := []Argument{}

	if p.punct("(") {
		var err error

		args, err = p.arguments()
		if err != nil {
			return nil, err
		}
	}

	return &New{exprBase: p.base(startIdx), Class: class.Value, Args: args}, nil
}

func (p *parser) arguments() ([]Argument, error) {
	p.next()

	args := []Argument{}

	for !p.punct(")") {
		var arg Argument

		switch {
		case p.punct("..."):
			p.next()

			if p.punct(")") {
				return nil, p.errorf(p.peek(), "first-class callable syntax is not supported")
			}

			arg.Spread = true
		case p.peek().Kind == TokenIdent && p.peekAt(1).is(TokenPunct, ":"):
			arg.Name = p.next().Value
			p.next()
		}

		value, err := p.expr(1)
		if err != nil {
			return nil, err
		}

		arg.Value = value
		args = append(args, arg)

		if p.punct(",") {
			p.next()
			continue
		}

		if !p.punct(")") {
			return nil, p.errorf(p.peek(), "unexpected %s in argument list", p.peek())
		}
	}

	p.next()

	return args, nil
}

// array parses array items after the opening bracket or `array(`.
func (p *parser) array(startIdx int, closer string) (Expr, error) {
	items := []ArrayItem{}

	for !p.punct(closer) {
		var item ArrayItem

		switch {
		case p.punct(","):
			return nil, p.errorf(p.peek(), "empty array item")
		case p.punct("..."):
			p.next()

			item.Spread = true
		case p.punct("&"):
			p.next()

			item.ByRef = true
		}

		first, err := p.expr(1)
		if err != nil {
			return nil, err
		}

		if !item.Spread && !item.ByRef && p.punct("=>") {
			p.next()

			if p.punct("&") {
				p.next()

				item.ByRef = true
			}

			value, err := p.expr(1)
			if err != nil {
				return nil, err
			}

			item.Key, item.Value = first, value
		} else {
			item.Value = first
		}

		items = append(items, item)

		if p.punct(",") {
			p.next()
			continue
		}

		if !p.punct(closer) {
			return nil, p.errorf(p.peek(), "unexpected %s in array literal", p.peek())
		}
	}

	p.next()

	return &Array{exprBase: p.base(startIdx), Items: items}, nil
}
