package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// sleepEngine keeps a persistent pool that blocks on a condition variable
// between bulks instead of busy-waiting. Idle workers consume no CPU; wake
// latency is higher than the spin variant. This is the flat (non-DAG)
// prototype for the dependency-ordered engine in dag.go.
type sleepEngine struct {
	id      uuid.UUID
	workers int
	grace   time.Duration
	logger  *logrus.Logger
	metrics *metricsSet

	mu     sync.Mutex
	cvWork *sync.Cond
	cvDone *sync.Cond

	runnable  Runnable
	n         int
	next      int
	completed int
	terminate bool
	busy      bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSleepEngine(workers int, cfg *EngineConfig) *sleepEngine {
	e := &sleepEngine{
		id:      cfg.InstanceID,
		workers: workers,
		grace:   cfg.ShutdownGrace,
		logger:  cfg.Logger,
		metrics: newMetricsSet(SleepPool.String(), cfg.Registerer),
	}
	e.cvWork = sync.NewCond(&e.mu)
	e.cvDone = sync.NewCond(&e.mu)
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	e.logger.WithFields(logrus.Fields{"engine_id": e.id, "workers": workers}).Debug("bulktask: sleep-pool engine constructed")
	return e
}

func (e *sleepEngine) Name() string { return SleepPool.String() }

func (e *sleepEngine) worker() {
	defer e.wg.Done()
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		for !e.terminate && !(e.n > 0 && e.next < e.n) {
			e.cvWork.Wait()
		}
		if e.terminate {
			return
		}

		t := e.next
		e.next++
		total := e.n
		runnable := e.runnable

		e.mu.Unlock()
		e.metrics.workerStarted()
		runTaskRecovered(runnable, t, total, e.logger, e.metrics)
		e.metrics.workerStopped()
		e.mu.Lock()

		e.completed++
		if e.completed == total {
			// The last worker to complete this bulk wakes the caller
			// blocked in Run; the test-and-signal happens under
			// the lock so no wakeup is ever lost.
			e.cvDone.Signal()
		}
	}
}

func (e *sleepEngine) Run(r Runnable, n int) error {
	if n < 0 {
		return &PreconditionError{Msg: "n must be >= 0"}
	}

	e.mu.Lock()
	if e.terminate {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.busy = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	e.metrics.launchSubmitted()
	if n == 0 {
		e.metrics.launchDone()
		return nil
	}

	e.mu.Lock()
	e.runnable = r
	e.n = n
	e.next = 0
	e.completed = 0
	e.mu.Unlock()
	e.cvWork.Broadcast()

	e.mu.Lock()
	for e.completed != e.n {
		e.cvDone.Wait()
	}
	e.n = 0 // park workers until the next bulk
	e.mu.Unlock()
	e.metrics.launchDone()
	return nil
}

func (e *sleepEngine) RunAsyncWithDeps(r Runnable, n int, deps []LaunchID) (LaunchID, error) {
	if err := e.Run(r, n); err != nil {
		return 0, err
	}
	return 0, nil
}

func (e *sleepEngine) Sync() error { return nil }

func (e *sleepEngine) Close() error {
	var alreadyClosed bool
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrShutdownWhileBusy
	}
	alreadyClosed = e.terminate
	e.terminate = true
	e.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	e.closeOnce.Do(func() {
		e.cvWork.Broadcast()
		if !joinWithin(&e.wg, e.grace) {
			e.logger.WithField("engine_id", e.id).Warn("bulktask: sleep workers did not exit within the shutdown grace period")
			return
		}
		e.logger.WithField("engine_id", e.id).Debug("bulktask: sleep-pool engine closed")
	})
	return nil
}
