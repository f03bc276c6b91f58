package tiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// A compiled State is read-only: its program, literal pools, and
// function table never change once Compile returns. Distinct Threads
// backed by the same State carry their own stack, globals, and GC
// heap, so many of them may run concurrently without coordination.
func TestConcurrentThreadsShareOneState(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Compile("<test>", []byte(`
		func fact(n) {
			if n <= 1 { return 1; }
			return n * fact(n - 1);
		}
		result := fact(6);
	`)))

	const numThreads = 16
	results := make([]float64, numThreads)

	var g errgroup.Group
	for i := 0; i < numThreads; i++ {
		i := i
		g.Go(func() error {
			th := NewThread(state)
			if err := th.Run(); err != nil {
				return err
			}
			v, ok := th.GetGlobalByName("result")
			if !ok {
				v = Null()
			}
			results[i] = v.AsNumber()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, r := range results {
		assert.Equal(t, float64(720), r)
	}
}

func TestConcurrentThreadsIndependentGlobals(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Compile("<test>", []byte(`counter := 0;`)))

	const numThreads = 8
	var g errgroup.Group
	for i := 0; i < numThreads; i++ {
		i := i
		g.Go(func() error {
			th := NewThread(state)
			if err := th.Run(); err != nil {
				return err
			}
			th.SetGlobalByName("counter", Number(float64(i)))
			v, _ := th.GetGlobalByName("counter")
			if v.AsNumber() != float64(i) {
				t.Errorf("thread %d: got %v", i, v.AsNumber())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
