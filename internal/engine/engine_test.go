package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allVariants lists every variant under test; the always-spawn and pooled
// variants all need a worker count, Serial ignores it.
var allVariants = []Variant{Serial, AlwaysSpawn, SpinPool, SleepPool, SleepPoolDAG}

func newTestEngine(t *testing.T, variant Variant) Engine {
	t.Helper()
	e, err := New(variant, 4)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func TestVariant_Name(t *testing.T) {
	want := map[Variant]string{
		Serial:       "Serial",
		AlwaysSpawn:  "Parallel + Always Spawn",
		SpinPool:     "Parallel + Thread Pool + Spin",
		SleepPool:    "Parallel + Thread Pool + Sleep",
		SleepPoolDAG: "Parallel + Thread Pool + Sleep + DAG",
	}
	for variant, name := range want {
		e, err := New(variant, 2)
		require.NoError(t, err)
		assert.Equal(t, name, e.Name())
		assert.Equal(t, name, variant.String())
		require.NoError(t, e.Close())
	}
}

// TestSerialSum checks the baseline variant end to end.
func TestSerialSum(t *testing.T) {
	e := newTestEngine(t, Serial)

	output := make([]int, 5)
	r := RunnableFunc(func(t, n int) { output[t] = t * t })

	require.NoError(t, e.Run(r, 5))
	assert.Equal(t, []int{0, 1, 4, 9, 16}, output)
}

// TestParallelCoverage runs every variant against the same bulk: the set of
// dispatched indices must equal {0,...,N-1} exactly once, regardless of the
// worker count.
func TestParallelCoverage(t *testing.T) {
	const n = 10000
	for _, variant := range allVariants {
		variant := variant
		t.Run(variant.String(), func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t, variant)

			var counter atomic.Int64
			seen := make([]atomic.Int32, n)
			r := RunnableFunc(func(taskIndex, totalTasks int) {
				counter.Add(1)
				seen[taskIndex].Add(1)
			})

			require.NoError(t, e.Run(r, n))
			assert.EqualValues(t, n, counter.Load())
			for i := range seen {
				if seen[i].Load() != 1 {
					t.Fatalf("task %d executed %d times, want exactly 1", i, seen[i].Load())
				}
			}
		})
	}
}

// TestBoundary_NZero: with N = 0, Execute is never invoked.
func TestBoundary_NZero(t *testing.T) {
	for _, variant := range allVariants {
		variant := variant
		t.Run(variant.String(), func(t *testing.T) {
			e := newTestEngine(t, variant)

			invoked := false
			r := RunnableFunc(func(int, int) { invoked = true })

			require.NoError(t, e.Run(r, 0))
			assert.False(t, invoked)
		})
	}
}

// TestBoundary_NOne covers "N = 1: single invocation with arguments (0, 1)."
func TestBoundary_NOne(t *testing.T) {
	for _, variant := range allVariants {
		variant := variant
		t.Run(variant.String(), func(t *testing.T) {
			e := newTestEngine(t, variant)

			var gotIndex, gotTotal = -1, -1
			calls := 0
			r := RunnableFunc(func(taskIndex, totalTasks int) {
				gotIndex, gotTotal = taskIndex, totalTasks
				calls++
			})

			require.NoError(t, e.Run(r, 1))
			assert.Equal(t, 1, calls)
			assert.Equal(t, 0, gotIndex)
			assert.Equal(t, 1, gotTotal)
		})
	}
}

func TestRun_NegativeN(t *testing.T) {
	for _, variant := range allVariants {
		variant := variant
		t.Run(variant.String(), func(t *testing.T) {
			e := newTestEngine(t, variant)
			err := e.Run(RunnableFunc(func(int, int) {}), -1)
			require.Error(t, err)
			var precondition *PreconditionError
			assert.ErrorAs(t, err, &precondition)
		})
	}
}

// TestClose_JoinsWorkersPromptly covers "Engine destruction joins all
// workers within a bounded time after the last sync()."
func TestClose_JoinsWorkersPromptly(t *testing.T) {
	for _, variant := range []Variant{AlwaysSpawn, SpinPool, SleepPool, SleepPoolDAG} {
		variant := variant
		t.Run(variant.String(), func(t *testing.T) {
			e, err := New(variant, 4)
			require.NoError(t, err)
			require.NoError(t, e.Run(RunnableFunc(func(int, int) {}), 16))

			done := make(chan error, 1)
			go func() { done <- e.Close() }()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("Close did not return within the bound")
			}
		})
	}
}

func TestNew_InvalidVariant(t *testing.T) {
	_, err := New(Variant(99), 1)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNew_RequiresPositiveWorkers(t *testing.T) {
	for _, variant := range []Variant{AlwaysSpawn, SpinPool, SleepPool, SleepPoolDAG} {
		_, err := New(variant, 0)
		require.Error(t, err)
	}
}
