package engine

// bulkRecord is the DAG engine's record for one submitted launch. It lives
// inside the engine's launches slice; the reclamation point is the Sync()
// call that observes launchesCompleted reach numTotalLaunches, so there is
// no manual free.
type bulkRecord struct {
	runnable Runnable
	n        int
	deps     []LaunchID

	dispatched int // next task index to hand out, 0..n
	completed  int // number of tasks that finished executing, 0..n
}

func (b *bulkRecord) done() bool { return b.completed == b.n }
