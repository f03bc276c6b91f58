package tiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lex := NewLexer("<test>", []byte(src))
	var toks []Token
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	return toks
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := lexAll(t, "func abc if x123")
	assert.Equal(t, TokFunc, toks[0].Kind)
	assert.Equal(t, TokIdent, toks[1].Kind)
	assert.Equal(t, "abc", toks[1].Text)
	assert.Equal(t, TokIf, toks[2].Kind)
	assert.Equal(t, TokIdent, toks[3].Kind)
}

func TestLexerNumbers(t *testing.T) {
	toks := lexAll(t, "42 3.5")
	assert.Equal(t, TokNumber, toks[0].Kind)
	assert.Equal(t, float64(42), toks[0].Num)
	assert.Equal(t, TokNumber, toks[1].Kind)
	assert.Equal(t, 3.5, toks[1].Num)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := lexAll(t, `"a\nb\101"`)
	assert.Equal(t, TokString, toks[0].Kind)
	assert.Equal(t, "a\nbA", toks[0].Text)
}

func TestLexerUnterminatedString(t *testing.T) {
	lex := NewLexer("<test>", []byte(`"abc`))
	_, err := lex.Next()
	assert.Error(t, err)
}

func TestLexerTwoCharOperators(t *testing.T) {
	toks := lexAll(t, ":= :: += == != <= >=")
	kinds := []TokenKind{TokDeclare, TokDeclareConst, TokAddAssign, TokEq, TokNeq, TokLte, TokGte, TokEOF}
	for i, k := range kinds {
		assert.Equal(t, k, toks[i].Kind)
	}
}

func TestLexerComment(t *testing.T) {
	toks := lexAll(t, "1 // comment\n2")
	assert.Equal(t, TokNumber, toks[0].Kind)
	assert.Equal(t, float64(1), toks[0].Num)
	assert.Equal(t, TokNumber, toks[1].Kind)
	assert.Equal(t, float64(2), toks[1].Num)
}

func TestLexerCharLiteral(t *testing.T) {
	toks := lexAll(t, `'a' '\n'`)
	assert.Equal(t, TokNumber, toks[0].Kind)
	assert.Equal(t, float64('a'), toks[0].Num)
	assert.Equal(t, float64('\n'), toks[1].Num)
}
