package tiny

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileAndRun(t *testing.T, src string, opts ...Option) (*Thread, *State) {
	t.Helper()
	state := NewState(opts...)
	require.NoError(t, state.Compile("<test>", []byte(src)))
	th := NewThread(state)
	require.NoError(t, th.Run())
	return th, state
}

func TestRecursiveFactorial(t *testing.T) {
	th, _ := compileAndRun(t, `
		func fact(n) {
			if n <= 1 { return 1; }
			return n * fact(n - 1);
		}
		result := fact(5);
	`)
	v, ok := th.GetGlobalByName("result")
	require.True(t, ok)
	assert.Equal(t, float64(120), v.AsNumber())
}

func TestForLoopWithCompoundAssign(t *testing.T) {
	th, _ := compileAndRun(t, `
		s := 0;
		for i := 1; i <= 10; i += 1 {
			s += i * i;
		}
	`)
	v, ok := th.GetGlobalByName("s")
	require.True(t, ok)
	assert.Equal(t, float64(385), v.AsNumber())
}

func TestMutualForwardReference(t *testing.T) {
	th, _ := compileAndRun(t, `
		func even(n) { if n == 0 { return true; } return odd(n - 1); }
		func odd(n) { if n == 0 { return false; } return even(n - 1); }
	`)
	v, err := th.CallFunction("even", Number(10))
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestMultipleLocalsReserveIndependentStackSlots(t *testing.T) {
	th, _ := compileAndRun(t, `
		func f(a, b) {
			x := a + b;
			y := a - b;
			return x * y;
		}
		result := f(3, 2);
	`)
	v, ok := th.GetGlobalByName("result")
	require.True(t, ok)
	assert.Equal(t, float64(5), v.AsNumber())
}

func TestScopeShadowingReturnsOuterValue(t *testing.T) {
	th, _ := compileAndRun(t, `
		func f() {
			x := 1;
			{
				x := 2;
			}
			return x;
		}
		result := f();
	`)
	v, ok := th.GetGlobalByName("result")
	require.True(t, ok)
	assert.Equal(t, float64(1), v.AsNumber())
}

func TestForeignCallAndBalancedStack(t *testing.T) {
	state := NewState()
	require.NoError(t, state.BindForeignFunction("add", func(th *Thread, args []Value) (Value, error) {
		return Number(args[0].AsNumber() + args[1].AsNumber()), nil
	}))
	require.NoError(t, state.Compile("<test>", []byte(`r := add(2.5, 3.5);`)))
	th := NewThread(state)
	require.NoError(t, th.Run())

	v, ok := th.GetGlobalByName("r")
	require.True(t, ok)
	assert.Equal(t, 6.0, v.AsNumber())
	assert.Equal(t, 0, th.StackDepth())
}

func TestEmptyProgramCompilesToSingleHalt(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Compile("<empty>", []byte("")))
	require.Len(t, state.program, 1)
	assert.Equal(t, OpHalt, Opcode(state.program[0]))
}

func TestEmptyFunctionBodyReturnsNull(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Compile("<test>", []byte(`func f() {}`)))
	th := NewThread(state)
	require.NoError(t, th.Run())
	v, err := th.CallFunction("f")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDivisionByZeroProducesInfNotFault(t *testing.T) {
	th, _ := compileAndRun(t, `r := 1 / 0;`)
	v, ok := th.GetGlobalByName("r")
	require.True(t, ok)
	assert.True(t, math.IsInf(v.AsNumber(), 1))
}

func TestModuloTruncatesOperandsToInt32(t *testing.T) {
	th, _ := compileAndRun(t, `r := 5.5 % 2;`)
	v, ok := th.GetGlobalByName("r")
	require.True(t, ok)
	assert.Equal(t, float64(1), v.AsNumber())
}

func TestModuloByZeroProducesNaN(t *testing.T) {
	// The divisor truncates to 0, which would panic as a native Go
	// integer division; OpMod guards it and yields NaN instead, the
	// same "never trap" treatment OpDiv gives floating-point zero.
	th, _ := compileAndRun(t, `r := 1 % 0;`)
	v, ok := th.GetGlobalByName("r")
	require.True(t, ok)
	assert.True(t, math.IsNaN(v.AsNumber()))
}

func TestUnaryMinusAndNot(t *testing.T) {
	th, _ := compileAndRun(t, `
		a := -5;
		b := not false;
	`)
	av, _ := th.GetGlobalByName("a")
	bv, _ := th.GetGlobalByName("b")
	assert.Equal(t, float64(-5), av.AsNumber())
	assert.True(t, bv.AsBool())
}

func TestStringConcatViaHostFunction(t *testing.T) {
	state := NewState()
	require.NoError(t, state.BindForeignFunction("concat", func(th *Thread, args []Value) (Value, error) {
		return th.NewHeapString(args[0].AsString(th.State()) + args[1].AsString(th.State())), nil
	}))
	require.NoError(t, state.Compile("<test>", []byte(`r := concat("foo", "bar");`)))
	th := NewThread(state)
	require.NoError(t, th.Run())
	v, ok := th.GetGlobalByName("r")
	require.True(t, ok)
	assert.Equal(t, "foobar", v.AsString(state))
}

func TestMultipleCompileCallsAccumulate(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Compile("<a>", []byte(`x := 1;`)))
	require.NoError(t, state.Compile("<b>", []byte(`y := x + 1;`)))
	th := NewThread(state)
	require.NoError(t, th.Run())
	v, ok := th.GetGlobalByName("y")
	require.True(t, ok)
	assert.Equal(t, float64(2), v.AsNumber())
}

func TestUninitializedGlobalIsCompileError(t *testing.T) {
	// Declaring a global is only possible through `:=`, which always
	// assigns a value, so the only way to exercise CheckInitialized is
	// indirectly; this guards the checker itself stays wired into Compile.
	state := NewState()
	_, err := state.symbols.DeclareGlobal("orphan", Location{Line: 1})
	require.NoError(t, err)
	err = state.Compile("<test>", []byte(``))
	assert.Error(t, err)
}
