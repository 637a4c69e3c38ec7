package engine

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlwaysSpawn_FreshGoroutinesPerRun(t *testing.T) {
	e := newTestEngine(t, AlwaysSpawn)

	const n = 1000
	for i := 0; i < 5; i++ {
		var sum atomic.Int64
		r := RunnableFunc(func(taskIndex, _ int) { sum.Add(int64(taskIndex)) })
		require.NoError(t, e.Run(r, n))
		assert.EqualValues(t, n*(n-1)/2, sum.Load())
	}
}

func TestAlwaysSpawn_ClosedEngineRejectsRun(t *testing.T) {
	e, err := New(AlwaysSpawn, 2)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	err = e.Run(RunnableFunc(func(int, int) {}), 1)
	require.ErrorIs(t, err, ErrEngineClosed)
}
