package engine

import "github.com/sirupsen/logrus"

// runTaskRecovered invokes r.Execute(taskIndex, totalTasks), recovering a
// panic so that one misbehaving task cannot permanently retire a worker.
// A panicking task counts as completed for scheduling purposes; it is not
// retried or reported beyond the log line and counter.
func runTaskRecovered(r Runnable, taskIndex, totalTasks int, logger *logrus.Logger, metrics *metricsSet) {
	defer func() {
		if rec := recover(); rec != nil {
			if metrics != nil {
				metrics.panicRecovered()
			}
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"task_index":  taskIndex,
					"total_tasks": totalTasks,
					"panic":       rec,
				}).Error("bulktask: recovered panic in task execution")
			}
		}
		if metrics != nil {
			metrics.taskDone()
		}
	}()
	r.Execute(taskIndex, totalTasks)
}
