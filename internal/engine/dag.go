package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// dagEngine is the sleep-pool mechanism of sleep.go plus an asynchronous,
// dependency-ordered DAG of launches. All scheduler state lives behind one
// mutex; the only fields read outside it are the ones captured into local
// variables before the lock is released around task execution.
//
// Sync is not re-entrant: a single caller goroutine drives
// RunAsyncWithDeps/Sync.
type dagEngine struct {
	id        uuid.UUID
	workers   int
	queueHint int
	grace     time.Duration
	logger    *logrus.Logger
	metrics   *metricsSet

	mu      sync.Mutex
	cvWork  *sync.Cond // workers wake to look for work or shutdown
	cvDone  *sync.Cond // the caller in Sync wakes when the epoch finishes
	cvReady *sync.Cond // workers wake when another launch completes

	launches []*bulkRecord
	children map[LaunchID][]LaunchID
	visited  []bool

	sortedLaunches []LaunchID // stack; top is sortedLaunches[len-1]

	hasWorking    bool
	workingLaunch LaunchID

	launchesCompleted int
	numTotalLaunches  int // snapshot of len(launches) at Sync() time; 0 outside an epoch

	terminate bool
	busy      bool // a Sync() is currently draining an epoch

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newDAGEngine(workers int, cfg *EngineConfig) *dagEngine {
	e := &dagEngine{
		id:        cfg.InstanceID,
		workers:   workers,
		queueHint: cfg.QueueSize,
		grace:     cfg.ShutdownGrace,
		logger:    cfg.Logger,
		metrics:   newMetricsSet(SleepPoolDAG.String(), cfg.Registerer),
	}
	e.cvWork = sync.NewCond(&e.mu)
	e.cvDone = sync.NewCond(&e.mu)
	e.cvReady = sync.NewCond(&e.mu)
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	e.logger.WithFields(logrus.Fields{"engine_id": e.id, "workers": workers}).Debug("bulktask: sleep-pool+DAG engine constructed")
	return e
}

func (e *dagEngine) Name() string { return SleepPoolDAG.String() }

// worker is the per-goroutine dispatch loop. At most one launch is
// "working" at a time; workers never interleave tasks from different
// launches, which keeps completion accounting a pair of integers.
func (e *dagEngine) worker() {
	defer e.wg.Done()
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		for !e.terminate &&
			(e.numTotalLaunches == 0 ||
				(len(e.sortedLaunches) == 0 && !e.hasWorking) ||
				e.launchesCompleted == e.numTotalLaunches) {
			e.cvWork.Wait()
		}
		if e.terminate {
			return
		}

		if e.hasWorking {
			e.dispatchFromWorkingLaunch()
			continue
		}

		if len(e.sortedLaunches) == 0 {
			continue
		}

		candidate := e.sortedLaunches[len(e.sortedLaunches)-1]
		if !e.depsSatisfied(candidate) {
			e.cvReady.Wait()
			continue
		}

		// Pop the ready candidate.
		e.sortedLaunches = e.sortedLaunches[:len(e.sortedLaunches)-1]
		launch := e.launches[candidate]

		if launch.n == 0 {
			// Vacuously done: never dispatched, but it must still be
			// counted so Sync can observe the epoch complete and so
			// dependents see it satisfied.
			e.completeLaunchLocked()
			continue
		}

		e.workingLaunch = candidate
		e.hasWorking = true
		e.cvReady.Broadcast()
	}
}

// dispatchFromWorkingLaunch claims one task index from the current working
// launch, executing it with the lock released, or clears workingLaunch once
// dispatch (not completion) is exhausted. Must be called with e.mu held.
func (e *dagEngine) dispatchFromWorkingLaunch() {
	launch := e.launches[e.workingLaunch]
	if launch.dispatched >= launch.n {
		// Dispatch (not completion) exhausted: park this launch so the
		// next ready candidate can be picked up. Stragglers already
		// claimed by other workers still finish and report through
		// completeLaunchLocked.
		e.hasWorking = false
		return
	}

	t := launch.dispatched
	launch.dispatched++
	total := launch.n
	runnable := launch.runnable

	e.mu.Unlock()
	e.metrics.workerStarted()
	runTaskRecovered(runnable, t, total, e.logger, e.metrics)
	e.metrics.workerStopped()
	e.mu.Lock()

	launch.completed++
	if launch.completed == total {
		e.completeLaunchLocked()
	}
}

// completeLaunchLocked records that one more launch has fully completed and
// wakes anything that can now make progress. Must be called with e.mu held.
func (e *dagEngine) completeLaunchLocked() {
	e.launchesCompleted++
	e.metrics.launchDone()
	if e.launchesCompleted == e.numTotalLaunches {
		e.cvDone.Signal()
	}
	e.cvReady.Broadcast()
}

func (e *dagEngine) depsSatisfied(id LaunchID) bool {
	for _, d := range e.launches[id].deps {
		if !e.launches[d].done() {
			return false
		}
	}
	return true
}

// RunAsyncWithDeps records a fresh launch under the lock and returns its id.
// No dispatch wait; the scheduler is not yet running for this launch until
// the next Sync().
func (e *dagEngine) RunAsyncWithDeps(r Runnable, n int, deps []LaunchID) (LaunchID, error) {
	if n < 0 {
		return 0, &PreconditionError{Msg: "n must be >= 0"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminate {
		return 0, ErrEngineClosed
	}

	id := LaunchID(len(e.launches))
	for _, d := range deps {
		if d < 0 || d >= id {
			return 0, &PreconditionError{Msg: "dependency id must refer to a launch submitted earlier in the current epoch"}
		}
	}

	rec := &bulkRecord{
		runnable: r,
		n:        n,
		deps:     append([]LaunchID(nil), deps...),
	}
	if e.launches == nil && e.queueHint > 0 {
		e.launches = make([]*bulkRecord, 0, e.queueHint)
		e.visited = make([]bool, 0, e.queueHint)
	}
	e.launches = append(e.launches, rec)
	e.visited = append(e.visited, false)
	if e.children == nil {
		e.children = make(map[LaunchID][]LaunchID)
	}
	for _, d := range deps {
		e.children[d] = append(e.children[d], id)
	}

	e.metrics.launchSubmitted()
	return id, nil
}

// Run submits runnable as a dependency-free launch and immediately syncs,
// satisfying the synchronous "block until N tasks done" contract. Because
// the DAG engine has no per-launch wait primitive separate from Sync, this
// also drains any other launches submitted earlier in the same epoch.
func (e *dagEngine) Run(r Runnable, n int) error {
	if _, err := e.RunAsyncWithDeps(r, n, nil); err != nil {
		return err
	}
	return e.Sync()
}

// Sync runs the topological sort, dispatches the whole epoch, and blocks
// until every launch submitted since the last Sync has completed.
func (e *dagEngine) Sync() error {
	e.mu.Lock()
	if e.terminate {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	numLaunches := len(e.launches)
	if numLaunches == 0 {
		// No submissions since the last Sync: idempotent no-op.
		e.mu.Unlock()
		return nil
	}

	e.busy = true
	e.topoSortLocked(numLaunches)

	e.hasWorking = false
	e.launchesCompleted = 0
	e.numTotalLaunches = numLaunches
	e.mu.Unlock()

	e.cvWork.Broadcast()

	e.mu.Lock()
	for e.launchesCompleted != e.numTotalLaunches {
		e.cvDone.Wait()
	}

	e.numTotalLaunches = 0
	e.launches = nil
	e.children = nil
	e.visited = nil
	e.sortedLaunches = nil
	e.busy = false
	e.mu.Unlock()
	return nil
}

// dfsFrame is one level of the explicit work stack topoSortLocked uses in
// place of recursion, so a long dependency chain submitted in one epoch
// cannot overflow the goroutine stack.
type dfsFrame struct {
	id  LaunchID
	idx int
}

// topoSortLocked runs a post-order DFS from every launch id in
// [0, numLaunches), pushing each id onto sortedLaunches only after every id
// it points to (its children, i.e. its dependents) has been pushed. Must be
// called with e.mu held.
func (e *dagEngine) topoSortLocked(numLaunches int) {
	e.sortedLaunches = e.sortedLaunches[:0]
	for i := range e.visited {
		e.visited[i] = false
	}

	for start := 0; start < numLaunches; start++ {
		if e.visited[start] {
			continue
		}
		e.visited[start] = true
		stack := []dfsFrame{{id: LaunchID(start)}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := e.children[top.id]

			if top.idx < len(kids) {
				child := kids[top.idx]
				top.idx++
				if !e.visited[child] {
					e.visited[child] = true
					stack = append(stack, dfsFrame{id: child})
				}
				continue
			}

			e.sortedLaunches = append(e.sortedLaunches, top.id)
			stack = stack[:len(stack)-1]
		}
	}
}

func (e *dagEngine) Close() error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrShutdownWhileBusy
	}
	if e.terminate {
		e.mu.Unlock()
		return nil
	}
	e.terminate = true
	e.mu.Unlock()

	e.closeOnce.Do(func() {
		e.cvWork.Broadcast()
		e.cvReady.Broadcast()
		if !joinWithin(&e.wg, e.grace) {
			e.logger.WithField("engine_id", e.id).Warn("bulktask: DAG workers did not exit within the shutdown grace period")
			return
		}
		e.logger.WithField("engine_id", e.id).Debug("bulktask: sleep-pool+DAG engine closed")
	})
	return nil
}
