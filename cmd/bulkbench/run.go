package main

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/devhale/bulktask/internal/engine"
)

// runBenchmark constructs the selected variant, submits repeatFlag bulk
// launches of nFlag tasks each (a trivial atomic-increment workload, to
// isolate scheduling overhead from work cost), and prints wall-clock time
// and per-task throughput for each launch.
func runBenchmark() error {
	variant, err := parseVariant(variantFlag)
	if err != nil {
		return err
	}

	workers := workersFlag
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e, err := engine.New(variant, workers, engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.WithError(cerr).Warn("bulkbench: close returned an error")
		}
	}()

	fmt.Printf("variant=%s workers=%d n=%d repeat=%d\n", e.Name(), workers, nFlag, repeatFlag)

	var counter int64
	task := engine.RunnableFunc(func(taskIndex, totalTasks int) {
		atomic.AddInt64(&counter, 1)
	})

	for i := 0; i < repeatFlag; i++ {
		start := time.Now()
		if err := e.Run(task, nFlag); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		elapsed := time.Since(start)

		var throughput float64
		if elapsed > 0 {
			throughput = float64(nFlag) / elapsed.Seconds()
		}
		fmt.Printf("launch %d: %s (%.0f tasks/sec)\n", i, elapsed, throughput)
	}

	if atomic.LoadInt64(&counter) != int64(nFlag)*int64(repeatFlag) {
		logger.WithFields(map[string]interface{}{
			"expected": int64(nFlag) * int64(repeatFlag),
			"observed": counter,
		}).Error("bulkbench: task count mismatch, a task index was skipped or double-counted")
	}

	return nil
}
