package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSleepPool_WakeIsCheap drives a sleep-pool engine with N=0 bulks
// repeatedly; each call must return promptly and keep idle workers parked
// rather than spinning.
func TestSleepPool_WakeIsCheap(t *testing.T) {
	e := newTestEngine(t, SleepPool)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, e.Run(RunnableFunc(func(int, int) {}), 0))
	}
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Millisecond, "100 empty Run calls should be near-instant on a parked sleep pool")
}

func TestSleepPool_CloseWhileBusyIsRejected(t *testing.T) {
	e, err := New(SleepPool, 2)
	require.NoError(t, err)

	release := make(chan struct{})
	runDone := make(chan error, 1)
	go func() {
		runDone <- e.Run(RunnableFunc(func(taskIndex, _ int) {
			if taskIndex == 0 {
				<-release
			}
		}), 2)
	}()

	// Give the Run call a moment to mark the engine busy.
	time.Sleep(20 * time.Millisecond)
	err = e.Close()
	assert.ErrorIs(t, err, ErrShutdownWhileBusy)

	close(release)
	require.NoError(t, <-runDone)
	require.NoError(t, e.Close())
}

func TestSleepPool_RunAsyncWithDepsIgnoresDeps(t *testing.T) {
	e := newTestEngine(t, SleepPool)

	var ran bool
	id, err := e.RunAsyncWithDeps(RunnableFunc(func(int, int) { ran = true }), 1, []LaunchID{42})
	require.NoError(t, err)
	assert.True(t, ran, "non-DAG variants execute RunAsyncWithDeps synchronously and ignore deps")
	require.NoError(t, e.Sync())
	_ = id
}
