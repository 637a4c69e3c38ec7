// Package engine implements the bulk-task execution scheduler: a small
// family of engines that all satisfy the same contract but trade off
// thread-creation latency, wake latency, and idle CPU burn differently.
package engine

import "github.com/google/uuid"

// Runnable is the capability the engine borrows for the duration of one
// Run/Sync call window. Execute must be safe to invoke concurrently from any
// worker; the engine never invokes it with the lock held.
type Runnable interface {
	Execute(taskIndex, totalTasks int)
}

// RunnableFunc adapts a plain function to the Runnable interface.
type RunnableFunc func(taskIndex, totalTasks int)

// Execute implements Runnable.
func (f RunnableFunc) Execute(taskIndex, totalTasks int) { f(taskIndex, totalTasks) }

// LaunchID identifies an asynchronous bulk launch within the current epoch.
// IDs are dense, start at 0, and are only meaningful between the
// RunAsyncWithDeps call that produced them and the end of the Sync() that
// reclaims them.
type LaunchID int32

// Variant selects which scheduling discipline New constructs.
type Variant int

const (
	// Serial executes every task on the caller, no workers.
	Serial Variant = iota
	// AlwaysSpawn spawns a fresh worker goroutine set for every Run call.
	AlwaysSpawn
	// SpinPool keeps a persistent pool that busy-waits between bulks.
	SpinPool
	// SleepPool keeps a persistent pool that blocks on a condition
	// variable between bulks; RunAsyncWithDeps ignores deps.
	SleepPool
	// SleepPoolDAG is the SleepPool mechanism plus dependency-ordered
	// asynchronous dispatch across a DAG of launches.
	SleepPoolDAG
)

// String reports the variant's human-readable identifier, matching Name().
func (v Variant) String() string {
	switch v {
	case Serial:
		return "Serial"
	case AlwaysSpawn:
		return "Parallel + Always Spawn"
	case SpinPool:
		return "Parallel + Thread Pool + Spin"
	case SleepPool:
		return "Parallel + Thread Pool + Sleep"
	case SleepPoolDAG:
		return "Parallel + Thread Pool + Sleep + DAG"
	default:
		return "Unknown"
	}
}

// Engine is the contract every scheduling discipline implements.
type Engine interface {
	// Run executes every task index in [0, n) and returns only once all of
	// them have been processed.
	Run(r Runnable, n int) error

	// RunAsyncWithDeps records an asynchronous launch and returns its
	// LaunchID without waiting for dispatch. Every id in deps must have
	// been returned by a previous RunAsyncWithDeps call in the current
	// epoch and not yet reclaimed by a completed Sync().
	RunAsyncWithDeps(r Runnable, n int, deps []LaunchID) (LaunchID, error)

	// Sync blocks until every async launch submitted since the last Sync
	// (or since construction) has completed, then resets LaunchID
	// allocation to 0 for the next epoch.
	Sync() error

	// Name reports the variant's human-readable identifier.
	Name() string

	// Close stops all workers and releases engine resources. Callers must
	// Sync() before Close(). For the pooled variants (SpinPool, SleepPool,
	// SleepPoolDAG), calling Close() while a Run/Sync is in flight on
	// another goroutine returns ErrShutdownWhileBusy; Serial and
	// AlwaysSpawn do not check for an in-flight Run and always return nil.
	Close() error
}

// New constructs an Engine of the given variant with the given worker count.
// workers is ignored by Serial but must be >= 1 for every other variant.
func New(variant Variant, workers int, opts ...Option) (Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	if cfg.InstanceID == uuid.Nil {
		cfg.InstanceID = uuid.New()
	}

	switch variant {
	case Serial:
		return newSerialEngine(cfg), nil
	case AlwaysSpawn:
		if workers < 1 {
			return nil, &ConfigError{Msg: "AlwaysSpawn requires workers >= 1"}
		}
		return newSpawnEngine(workers, cfg), nil
	case SpinPool:
		if workers < 1 {
			return nil, &ConfigError{Msg: "SpinPool requires workers >= 1"}
		}
		return newSpinEngine(workers, cfg), nil
	case SleepPool:
		if workers < 1 {
			return nil, &ConfigError{Msg: "SleepPool requires workers >= 1"}
		}
		return newSleepEngine(workers, cfg), nil
	case SleepPoolDAG:
		if workers < 1 {
			return nil, &ConfigError{Msg: "SleepPoolDAG requires workers >= 1"}
		}
		return newDAGEngine(workers, cfg), nil
	default:
		return nil, &ConfigError{Msg: "unknown variant"}
	}
}
