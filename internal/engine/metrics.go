package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet holds one engine instance's gauge/counter instrumentation.
// Metrics are per-instance rather than package-level globals: tests
// construct many engines in one binary, and package-level metrics
// registered against prometheus.DefaultRegisterer would panic on the
// second construction. Each engine gets its own metric objects and, if the
// caller supplied a Registerer (WithMetricsRegisterer), registers them
// there; otherwise the metrics are tracked in memory only.
type metricsSet struct {
	activeWorkers     prometheus.Gauge
	tasksCompleted    prometheus.Counter
	launchesCompleted prometheus.Counter
	launchesSubmitted prometheus.Counter
	panicsRecovered   prometheus.Counter
}

func newMetricsSet(variant string, reg prometheus.Registerer) *metricsSet {
	labels := prometheus.Labels{"variant": variant}

	m := &metricsSet{
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "bulktask",
			Name:        "active_workers",
			Help:        "Number of workers currently executing a task.",
			ConstLabels: labels,
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bulktask",
			Name:        "tasks_completed_total",
			Help:        "Total number of task indices that finished executing.",
			ConstLabels: labels,
		}),
		launchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bulktask",
			Name:        "launches_completed_total",
			Help:        "Total number of bulk launches whose tasks all completed.",
			ConstLabels: labels,
		}),
		launchesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bulktask",
			Name:        "launches_submitted_total",
			Help:        "Total number of bulk launches submitted.",
			ConstLabels: labels,
		}),
		panicsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bulktask",
			Name:        "task_panics_recovered_total",
			Help:        "Total number of task panics recovered by the engine.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		// Best-effort registration: a registration error (e.g. two
		// engines of the same variant sharing one registry) is ignored,
		// not fatal to engine construction; the metrics that failed to
		// register are still tracked but not exported.
		_ = reg.Register(m.activeWorkers)
		_ = reg.Register(m.tasksCompleted)
		_ = reg.Register(m.launchesCompleted)
		_ = reg.Register(m.launchesSubmitted)
		_ = reg.Register(m.panicsRecovered)
	}

	return m
}

func (m *metricsSet) workerStarted() { m.activeWorkers.Inc() }
func (m *metricsSet) workerStopped() { m.activeWorkers.Dec() }
func (m *metricsSet) taskDone()      { m.tasksCompleted.Inc() }
func (m *metricsSet) launchDone()    { m.launchesCompleted.Inc() }

func (m *metricsSet) launchSubmitted() { m.launchesSubmitted.Inc() }
func (m *metricsSet) panicRecovered()  { m.panicsRecovered.Inc() }
