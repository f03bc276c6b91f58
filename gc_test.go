package tiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNative struct{ value int }

type countingVtable struct{ finalized *int }

func (countingVtable) Name() string                               { return "counting" }
func (countingVtable) ProtectFromGC(addr any, protect func(Value)) {}
func (v countingVtable) Finalize(addr any)                         { *v.finalized++ }
func (countingVtable) ToString(addr any) (Value, bool)             { return Value{}, false }

func TestGCCollectsUnreachableHeapStrings(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	th := NewThread(state)

	// Each string is garbage as soon as it is allocated, since nothing
	// keeps a reference to it; the collection below is run directly.
	th.NewHeapString("garbage 1")
	th.NewHeapString("garbage 2")
	assert.Equal(t, 2, th.numHeapObjects)

	th.collectGarbage()
	// Neither string is reachable from the stack, globals, or return
	// register, so both are swept.
	assert.Equal(t, 0, th.numHeapObjects)
}

func TestGCKeepsReachableHeapStrings(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	th := NewThread(state)

	v := th.NewHeapString("kept")
	require.NoError(t, th.push(v))

	th.collectGarbage()
	assert.Equal(t, 1, th.numHeapObjects)
}

func TestGCFinalizesUnreachableNatives(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	th := NewThread(state)

	finalized := 0
	vt := countingVtable{finalized: &finalized}
	th.NewNative(&countingNative{value: 1}, vt)
	th.NewNative(&countingNative{value: 2}, vt)

	th.collectGarbage()
	assert.Equal(t, 2, finalized)
	assert.Equal(t, 0, th.numHeapObjects)
}

func TestGCProtectKeepsValueAliveOneCycle(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	th := NewThread(state)

	v := th.NewHeapString("protected off-stack")
	th.Protect(v)
	th.collectGarbage()
	assert.Equal(t, 1, th.numHeapObjects)

	// Without re-protecting, the next cycle sweeps it.
	th.collectGarbage()
	assert.Equal(t, 0, th.numHeapObjects)
}

func TestGCThresholdDoublesAfterCollection(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	th := NewThread(state)
	v := th.NewHeapString("a")
	require.NoError(t, th.push(v))
	th.collectGarbage()
	// "a" survives (it's on the stack), so the post-collection count is
	// 1 and the next threshold is double that.
	assert.Equal(t, 1, th.numHeapObjects)
	assert.Equal(t, 2, th.maxHeapObjects)
}

func TestGCRunsDuringScriptExecution(t *testing.T) {
	state := NewState(WithInitialGCThreshold(1))
	require.NoError(t, state.BindForeignFunction("makestr", func(th *Thread, args []Value) (Value, error) {
		return th.NewHeapString("ephemeral"), nil
	}))
	require.NoError(t, state.Compile("<test>", []byte(`
		for i := 0; i < 20; i += 1 {
			makestr();
		}
	`)))
	th := NewThread(state)
	require.NoError(t, th.Run())
	// Every call result is discarded by the script (a bare call
	// statement), so the collections along the way sweep each earlier
	// string; only the last one survives, because the return register
	// still holds it and is a GC root.
	assert.Equal(t, 1, th.numHeapObjects)
}
