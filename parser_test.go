package tiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, src string) ([]Node, *SymbolTable, error) {
	t.Helper()
	symbols := NewSymbolTable()
	numbers := newNumberPool(DefaultMaxNumbers)
	strings := newStringPool(DefaultMaxStrings)
	p, err := NewParser("<test>", []byte(src), symbols, numbers, strings)
	require.NoError(t, err)
	stmts, err := p.ParseProgram()
	return stmts, symbols, err
}

func TestParserGlobalDeclaration(t *testing.T) {
	stmts, symbols, err := parseProgram(t, "x := 10;")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	sym, ok := symbols.GlobalByName("x")
	require.True(t, ok)
	assert.True(t, sym.Initialized)
}

func TestParserFunctionForwardReference(t *testing.T) {
	_, _, err := parseProgram(t, `
		func even(n) { if n == 0 { return true; } return odd(n - 1); }
		func odd(n) { if n == 0 { return false; } return even(n - 1); }
	`)
	require.NoError(t, err)
}

func TestParserScopeShadowing(t *testing.T) {
	// x:=1 at the outer scope, then a fresh x:=2 in a nested block must
	// be allowed; it shadows rather than conflicts.
	_, _, err := parseProgram(t, `
		func f() {
			x := 1;
			{
				x := 2;
			}
			return x;
		}
	`)
	require.NoError(t, err)
}

func TestParserDuplicateDeclarationInSameScopeFails(t *testing.T) {
	_, _, err := parseProgram(t, `
		func f() {
			x := 1;
			x := 2;
			return x;
		}
	`)
	assert.Error(t, err)
}

func TestParserAssignToConstFails(t *testing.T) {
	_, _, err := parseProgram(t, `
		pi :: 3;
		pi = 4;
	`)
	assert.Error(t, err)
}

func TestParserUnknownIdentifierFails(t *testing.T) {
	_, _, err := parseProgram(t, "x := y;")
	assert.Error(t, err)
}

func TestParserCallUndeclaredFunctionFails(t *testing.T) {
	_, _, err := parseProgram(t, "x := f();")
	assert.Error(t, err)
}

func TestParserPrecedenceClimbing(t *testing.T) {
	stmts, _, err := parseProgram(t, "x := 1 + 2 * 3;")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	decl, ok := stmts[0].(*BinaryNode)
	require.True(t, ok)
	add, ok := decl.RHS.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, BinOp(punct('+')), add.Op)
	// 1 + (2 * 3): the addition node's RHS must be the multiplication.
	rhs, ok := add.RHS.(*BinaryNode)
	require.True(t, ok)
	assert.Equal(t, BinOp(punct('*')), rhs.Op)
}
