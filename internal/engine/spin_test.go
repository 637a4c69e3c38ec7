package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinPool_ParksBetweenBulks(t *testing.T) {
	e := newTestEngine(t, SpinPool)

	require.NoError(t, e.Run(RunnableFunc(func(int, int) {}), 100))
	require.NoError(t, e.Run(RunnableFunc(func(int, int) {}), 0))
	require.NoError(t, e.Run(RunnableFunc(func(int, int) {}), 50))
}

func TestSpinPool_CloseWhileBusyIsRejected(t *testing.T) {
	e, err := New(SpinPool, 2, WithSpinYieldEvery(8))
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

	time.Sleep(20 * time.Millisecond)
	err = e.Close()
	assert.ErrorIs(t, err, ErrShutdownWhileBusy)

	close(release)
	require.NoError(t, <-runDone)
	require.NoError(t, e.Close())
}
