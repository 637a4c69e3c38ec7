package engine

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// serialEngine executes every task on the caller's goroutine. It is the
// baseline every other variant is measured against.
type serialEngine struct {
	id      uuid.UUID
	logger  *logrus.Logger
	metrics *metricsSet
	closed  bool
}

func newSerialEngine(cfg *EngineConfig) *serialEngine {
	e := &serialEngine{
		id:      cfg.InstanceID,
		logger:  cfg.Logger,
		metrics: newMetricsSet(Serial.String(), cfg.Registerer),
	}
	e.logger.WithField("engine_id", e.id).Debug("bulktask: serial engine constructed")
	return e
}

func (e *serialEngine) Name() string { return Serial.String() }

func (e *serialEngine) Run(r Runnable, n int) error {
	if e.closed {
		return ErrEngineClosed
	}
	if n < 0 {
		return &PreconditionError{Msg: "n must be >= 0"}
	}
	e.metrics.launchSubmitted()
	for t := 0; t < n; t++ {
		runTaskRecovered(r, t, n, e.logger, e.metrics)
	}
	e.metrics.launchDone()
	return nil
}

// RunAsyncWithDeps runs synchronously and ignores deps; only the DAG
// variant honors dependency ordering.
func (e *serialEngine) RunAsyncWithDeps(r Runnable, n int, deps []LaunchID) (LaunchID, error) {
	if err := e.Run(r, n); err != nil {
		return 0, err
	}
	return 0, nil
}

func (e *serialEngine) Sync() error { return nil }

func (e *serialEngine) Close() error {
	e.closed = true
	e.logger.WithField("engine_id", e.id).Debug("bulktask: serial engine closed")
	return nil
}
