package engine

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// benchWorkload is a near-empty task body so the benchmarks measure
// dispatch overhead, not work cost.
func benchWorkload(counter *atomic.Int64) Runnable {
	return RunnableFunc(func(int, int) { counter.Add(1) })
}

func benchmarkVariant(b *testing.B, variant Variant, n int) {
	e, err := New(variant, 4)
	require.NoError(b, err)
	defer func() { require.NoError(b, e.Close()) }()

	var counter atomic.Int64
	r := benchWorkload(&counter)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.Run(r, n); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_Serial(b *testing.B)      { benchmarkVariant(b, Serial, 1000) }
func BenchmarkEngine_AlwaysSpawn(b *testing.B) { benchmarkVariant(b, AlwaysSpawn, 1000) }
func BenchmarkEngine_SpinPool(b *testing.B)    { benchmarkVariant(b, SpinPool, 1000) }
func BenchmarkEngine_SleepPool(b *testing.B)   { benchmarkVariant(b, SleepPool, 1000) }

func BenchmarkEngine_DAGDiamond(b *testing.B) {
	e, err := New(SleepPoolDAG, 4)
	require.NoError(b, err)
	defer func() { require.NoError(b, e.Close()) }()

	var counter atomic.Int64
	r := benchWorkload(&counter)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a, err := e.RunAsyncWithDeps(r, 100, nil)
		if err != nil {
			b.Fatal(err)
		}
		left, err := e.RunAsyncWithDeps(r, 100, []LaunchID{a})
		if err != nil {
			b.Fatal(err)
		}
		right, err := e.RunAsyncWithDeps(r, 100, []LaunchID{a})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := e.RunAsyncWithDeps(r, 100, []LaunchID{left, right}); err != nil {
			b.Fatal(err)
		}
		if err := e.Sync(); err != nil {
			b.Fatal(err)
		}
	}
}
