// Package php is a small PHP front end: it tokenizes a source file and parses just enough
// of it (namespaces, classes, methods and their return expressions) to support
// declaration extraction. Everything else is skipped structurally.
package php

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

// Token kinds.
const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenVariable
	TokenString
	TokenNumber
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenVariable:
		return "variable"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punctuation"
	}

	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// CommentKind distinguishes line comments, block comments and doc comments.
type CommentKind int

// Comment kinds.
const (
	CommentLine CommentKind = iota
	CommentBlock
	CommentDoc
)

// Comment is a comment with its raw text (delimiters included).
type Comment struct {
	Kind CommentKind
	Text string
	Line int
}

// IsBlock reports whether c is a /* */ or /** */ comment.
func (c Comment) IsBlock() bool {
	return c.Kind == CommentBlock || c.Kind == CommentDoc
}

// Token is a lexical token. Start and End are byte offsets into the source; Value holds
// the decoded content for strings and the raw text otherwise.
type Token struct {
	Kind    TokenKind
	Value   string
	Start   int
	End     int
	Line    int
	Leading []Comment
}

func (t Token) is(kind TokenKind, value string) bool {
	return t.Kind == kind && t.Value == value
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "end of file"
	}

	return fmt.Sprintf("%s %q", t.Kind, t.Value)
}
