package php

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenValues(toks []Token) []string {
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind == TokenEOF {
			break
		}

		out = append(out, tok.Value)
	}

	return out
}

func TestTokenize_SkipsInlineHTMLAndOpenTag(t *testing.T) {
	toks, _, err := Tokenize("a.php", []byte("<html>\n<?php echo 1;"))
	require.NoError(t, err)

	assert.Equal(t, []string{"echo", "1", ";"}, tokenValues(toks))
	assert.Equal(t, 2, toks[0].Line)
}

func TestTokenize_CloseTagActsAsSemicolon(t *testing.T) {
	toks, _, err := Tokenize("a.php", []byte("<?php $a = 1 ?>\ntext<?php $b;"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "=", "1", ";", "b", ";"}, tokenValues(toks))
}

func TestTokenize_Strings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "single quoted", src: `'it\'s \\ \n'`, want: `it's \ \n`},
		{name: "double quoted", src: `"a\tb\"c"`, want: "a\tb\"c"},
		{name: "double quoted unknown escape", src: `"a\qb"`, want: `a\qb`},
		{name: "heredoc", src: "<<<EOT\n  one\n  two\n  EOT", want: "one\ntwo"},
		{name: "nowdoc", src: "<<<'EOT'\nraw $x\nEOT", want: "raw $x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, _, err := Tokenize("a.php", []byte("<?php "+tt.src+";"))
			require.NoError(t, err)
			require.Equal(t, TokenString, toks[0].Kind)
			assert.Equal(t, tt.want, toks[0].Value)
		})
	}
}

func TestTokenize_NumbersIdentifiersAndOperators(t *testing.T) {
	toks, _, err := Tokenize("a.php", []byte(`<?php 0x1F 1.5e-3 1_000 \core\external\foo $x => ?-> ... :: #[`))
	require.NoError(t, err)

	assert.Equal(t, []string{"0x1F", "1.5e-3", "1_000", `\core\external\foo`, "x", "=>", "?->", "...", "::", "#["}, tokenValues(toks))
	assert.Equal(t, TokenNumber, toks[0].Kind)
	assert.Equal(t, TokenIdent, toks[3].Kind)
	assert.Equal(t, TokenVariable, toks[4].Kind)
}

func TestTokenize_CommentsAttachToNextToken(t *testing.T) {
	src := "<?php\n// line\n# hash\n/* block */\n/** doc */\nfunction"

	toks, comments, err := Tokenize("a.php", []byte(src))
	require.NoError(t, err)
	require.Len(t, comments, 4)

	assert.Equal(t, []CommentKind{CommentLine, CommentLine, CommentBlock, CommentDoc},
		[]CommentKind{comments[0].Kind, comments[1].Kind, comments[2].Kind, comments[3].Kind})
	assert.Equal(t, "/** doc */", comments[3].Text)
	assert.Equal(t, 5, comments[3].Line)

	require.Len(t, toks[0].Leading, 4)
	assert.Equal(t, "function", toks[0].Value)
	assert.Equal(t, 6, toks[0].Line)
}

func TestTokenize_EmptyBlockCommentIsNotDoc(t *testing.T) {
	_, comments, err := Tokenize("a.php", []byte("<?php /**/ x;"))
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, CommentBlock, comments[0].Kind)
}

func TestTokenize_Errors(t *testing.T) {
	for _, src := range []string{"<?php 'open", "<?php \"open", "<?php /* open", "<?php <<<EOT\nno end"} {
		_, _, err := Tokenize("bad.php", []byte(src))

		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("Tokenize(%q) error = %v, want SyntaxError", src, err)
		}

		if syntaxErr.File != "bad.php" {
			t.Fatalf("SyntaxError.File = %q, want bad.php", syntaxErr.File)
		}
	}
}
