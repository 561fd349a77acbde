package php

import (
	"bytes"
	"strings"
)

// multiCharPuncts is ordered longest first so the lexer can take the first prefix match.
var multiCharPuncts = []string{
	"<<=", ">>=", "**=", "...", "<=>", "===", "!==", "??=", "?->",
	"::", "=>", "->", "==", "!=", "<>", "<=", ">=", "&&", "||", "??", "++", "--",
	"+=", "-=", "*=", "/=", ".=", "%=", "&=", "|=", "^=", "<<", ">>", "**", "#[",
}

type lexer struct {
	filename string
	src      []byte
	pos      int
	line     int
	tokens   []Token
	comments []Comment
	pending  []Comment
}

// Tokenize splits src into tokens. Comments are attached to the token that follows them
// and are also returned in source order.
func Tokenize(filename string, src []byte) ([]Token, []Comment, error) {
	lx := &lexer{filename: filename, src: src, line: 1}
	if err := lx.run(); err != nil {
		return nil, nil, err
	}

	return lx.tokens, lx.comments, nil
}

func (lx *lexer) errorf(format string, args ...interface{}) error {
	return newSyntaxError(lx.filename, lx.line, format, args...)
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		lx.inlineHTML()

		if lx.pos >= len(lx.src) {
			break
		}

		if err := lx.code(); err != nil {
			return err
		}
	}

	lx.emit(TokenEOF, "", lx.pos)

	return nil
}

// inlineHTML skips text up to and including the next open tag.
func (lx *lexer) inlineHTML() {
	rest := lx.src[lx.pos:]

	idx := bytes.Index(rest, []byte("<?"))
	if idx < 0 {
		lx.advance(len(rest))
		return
	}

	lx.advance(idx)

	switch {
	case hasFoldPrefix(lx.src[lx.pos:], "<?php"):
		lx.advance(len("<?php"))
	case bytes.HasPrefix(lx.src[lx.pos:], []byte("<?=")):
		lx.advance(len("<?="))
	default:
		lx.advance(len("<?"))
	}
}

// code lexes PHP code until a close tag or the end of input.
func (lx *lexer) code() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case lx.hasPrefix("?>"):
			start := lx.pos
			lx.advance(2)

			if lx.hasPrefix("\r\n") {
				lx.advance(2)
			} else if lx.hasPrefix("\n") {
				lx.advance(1)
			}

			lx.emit(TokenPunct, ";", start)

			return nil
		case lx.hasPrefix("#["):
			start := lx.pos
			lx.advance(2)
			lx.emit(TokenPunct, "#[", start)
		case c == '#' || lx.hasPrefix("//"):
			lx.lineComment()
		case lx.hasPrefix("/*"):
			if err := lx.blockComment(); err != nil {
				return err
			}
		case c == '$' && lx.pos+1 < len(lx.src) && isIdentStart(lx.src[lx.pos+1]):
			start := lx.pos
			lx.pos++
			lx.scanIdent()
			lx.emit(TokenVariable, string(lx.src[start+1:lx.pos]), start)
		case c == '\'':
			if err := lx.singleQuoted(); err != nil {
				return err
			}
		case c == '"' || c == '`':
			if err := lx.doubleQuoted(c); err != nil {
				return err
			}
		case lx.hasPrefix("<<<"):
			if err := lx.heredoc(); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			lx.number()
		case isIdentStart(c) || (c == '\\' && lx.pos+1 < len(lx.src) && isIdentStart(lx.src[lx.pos+1])):
			start := lx.pos
			lx.scanIdent()
			lx.emit(TokenIdent, string(lx.src[start:lx.pos]), start)
		default:
			lx.punct()
		}
	}

	return nil
}

func (lx *lexer) emit(kind TokenKind, value string, start int) {
	lx.tokens = append(lx.tokens, Token{
		Kind:    kind,
		Value:   value,
		Start:   start,
		End:     lx.pos,
		Line:    lx.lineAt(start),
		Leading: lx.pending,
	})
	lx.pending = nil
}

// lineAt counts the line of offset, which is never after lx.pos.
func (lx *lexer) lineAt(offset int) int {
	return lx.line - bytes.Count(lx.src[offset:lx.pos], []byte("\n"))
}

func (lx *lexer) addComment(kind CommentKind, start int) {
	comment := Comment{Kind: kind, Text: string(lx.src[start:lx.pos]), Line: lx.lineAt(start)}
	lx.comments = append(lx.comments, comment)
	lx.pending = append(lx.pending, comment)
}

func (lx *lexer) lineComment() {
	start := lx.pos

	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' && !lx.hasPrefix("?>") {
		lx.pos++
	}

	lx.addComment(CommentLine, start)
}

func (lx *lexer) blockComment() error {
	start := lx.pos
	startLine := lx.line

	end := bytes.Index(lx.src[lx.pos+2:], []byte("*/"))
	if end < 0 {
		lx.line = startLine
		return lx.errorf("unterminated comment")
	}

	lx.advance(2 + end + 2)

	kind := CommentBlock
	if text := lx.src[start:lx.pos]; bytes.HasPrefix(text, []byte("/**")) && len(text) > len("/**/") {
		kind = CommentDoc
	}

	lx.addComment(kind, start)

	return nil
}

func (lx *lexer) singleQuoted() error {
	start := lx.pos
	lx.pos++

	var value strings.Builder

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == '\'':
			lx.pos++
			lx.emit(TokenString, value.String(), start)

			return nil
		case c == '\\' && lx.pos+1 < len(lx.src) && (lx.src[lx.pos+1] == '\'' || lx.src[lx.pos+1] == '\\'):
			value.WriteByte(lx.src[lx.pos+1])
			lx.pos += 2
		default:
			if c == '\n' {
				lx.line++
			}

			value.WriteByte(c)
			lx.pos++
		}
	}

	return lx.errorf("unterminated string")
}

var doubleQuotedEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'v': '\v', 'f': '\f', 'e': 0x1b,
	'\\': '\\', '$': '$', '"': '"', '`': '`',
}

// doubleQuoted decodes simple escapes; interpolated variables are kept verbatim.
func (lx *lexer) doubleQuoted(quote byte) error {
	start := lx.pos
	lx.pos++

	var value strings.Builder

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == quote:
			lx.pos++
			lx.emit(TokenString, value.String(), start)

			return nil
		case c == '\\' && lx.pos+1 < len(lx.src):
			if decoded, ok := doubleQuotedEscapes[lx.src[lx.pos+1]]; ok {
				value.WriteByte(decoded)
			} else {
				value.WriteByte(c)
				value.WriteByte(lx.src[lx.pos+1])
			}

			if lx.src[lx.pos+1] == '\n' {
				lx.line++
			}

			lx.pos += 2
		default:
			if c == '\n' {
				lx.line++
			}

			value.WriteByte(c)
			lx.pos++
		}
	}

	return lx.errorf("unterminated string")
}

// heredoc lexes <<<ID, <<<"ID" and <<<'ID' strings, including indented closing markers.
func (lx *lexer) heredoc() error {
	start := lx.pos
	startLine := lx.line
	lx.advance(3)

	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.pos++
	}

	var quote byte
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == '\'' || lx.src[lx.pos] == '"') {
		quote = lx.src[lx.pos]
		lx.pos++
	}

	idStart := lx.pos
	lx.scanIdent()
	id := string(lx.src[idStart:lx.pos])

	if id == "" {
		return lx.errorf("malformed heredoc")
	}

	if quote != 0 {
		if lx.pos >= len(lx.src) || lx.src[lx.pos] != quote {
			return lx.errorf("malformed heredoc label %q", id)
		}

		lx.pos++
	}

	nl := bytes.IndexByte(lx.src[lx.pos:], '\n')
	if nl < 0 {
		return lx.errorf("unterminated heredoc %q", id)
	}

	lx.advance(nl + 1)

	var body []string

	for lx.pos < len(lx.src) {
		lineEnd := bytes.IndexByte(lx.src[lx.pos:], '\n')
		if lineEnd < 0 {
			lineEnd = len(lx.src) - lx.pos
		}

		text := string(lx.src[lx.pos : lx.pos+lineEnd])
		trimmed := strings.TrimLeft(text, " \t")

		if strings.HasPrefix(trimmed, id) && (len(trimmed) == len(id) || !isIdentChar(trimmed[len(id)])) {
			indent := len(text) - len(trimmed)
			lx.pos += indent + len(id)

			lx.emit(TokenString, dedent(body, text[:indent]), start)

			return nil
		}

		body = append(body, text)
		lx.advance(lineEnd)

		if lx.pos < len(lx.src) {
			lx.advance(1)
		}
	}

	lx.line = startLine

	return lx.errorf("unterminated heredoc %q", id)
}

func dedent(lines []string, indent string) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimPrefix(line, indent)
	}

	return strings.Join(out, "\n")
}

func (lx *lexer) number() {
	start := lx.pos
	hex := lx.hasPrefix("0x") || lx.hasPrefix("0X")

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case isIdentChar(c) || c == '.':
			lx.pos++
		case (c == '+' || c == '-') && !hex && (lx.src[lx.pos-1] == 'e' || lx.src[lx.pos-1] == 'E'):
			lx.pos++
		default:
			lx.emit(TokenNumber, string(lx.src[start:lx.pos]), start)
			return
		}
	}

	lx.emit(TokenNumber, string(lx.src[start:lx.pos]), start)
}

func (lx *lexer) punct() {
	start := lx.pos

	for _, p := range multiCharPuncts {
		if lx.hasPrefix(p) {
			lx.advance(len(p))
			lx.emit(TokenPunct, p, start)

			return
		}
	}

	lx.pos++
	lx.emit(TokenPunct, string(lx.src[start:lx.pos]), start)
}

func (lx *lexer) scanIdent() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if !isIdentChar(c) && c != '\\' {
			return
		}

		if c == '\\' && (lx.pos+1 >= len(lx.src) || !isIdentStart(lx.src[lx.pos+1])) {
			return
		}

		lx.pos++
	}
}

// advance moves forward n bytes, keeping the line counter in sync.
func (lx *lexer) advance(n int) {
	end := lx.pos + n
	if end > len(lx.src) {
		end = len(lx.src)
	}

	lx.line += bytes.Count(lx.src[lx.pos:end], []byte("\n"))
	lx.pos = end
}

func (lx *lexer) hasPrefix(prefix string) bool {
	return bytes.HasPrefix(lx.src[lx.pos:], []byte(prefix))
}

func hasFoldPrefix(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && strings.EqualFold(string(b[:len(prefix)]), prefix)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
