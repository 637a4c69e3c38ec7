package engine

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// EngineConfig holds construction-time tuning for every variant. Defaults
// are read from environment variables with the BULKTASK_ prefix; functional
// options override them.
type EngineConfig struct {
	// QueueSize bounds the internal launch table pre-allocation hint for
	// the sleep+DAG variant; it is advisory, not a hard cap.
	QueueSize int
	// ShutdownGrace bounds how long Close waits for workers to drain
	// before treating them as stuck.
	ShutdownGrace time.Duration
	// SpinYieldEvery is the number of busy-wait iterations between
	// runtime.Gosched() calls in the spin variant. Real OS threads don't
	// need this, but the Go scheduler can starve a single-core test
	// runner without it.
	SpinYieldEvery int
	// Logger receives structured lifecycle events (construction, close,
	// shutdown-grace expiry) and recovered task panics.
	Logger *logrus.Logger
	// Registerer, if set, registers this engine's metrics with the given
	// Prometheus registry. Left nil, metrics are tracked but never
	// exported.
	Registerer prometheus.Registerer
	// InstanceID tags every lifecycle log line this engine emits, so that
	// log aggregation can separate concurrently-running engines in the
	// same process.
	// New() assigns one unless WithInstanceID overrides it.
	InstanceID uuid.UUID
}

// Option mutates an EngineConfig at construction time.
type Option func(*EngineConfig)

// WithQueueSize overrides the advisory queue-size hint.
func WithQueueSize(n int) Option {
	return func(c *EngineConfig) { c.QueueSize = n }
}

// WithShutdownGrace overrides how long Close waits for workers to drain.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *EngineConfig) { c.ShutdownGrace = d }
}

// WithSpinYieldEvery overrides the spin variant's yield cadence.
func WithSpinYieldEvery(n int) Option {
	return func(c *EngineConfig) { c.SpinYieldEvery = n }
}

// WithLogger overrides the structured logger used for lifecycle events.
func WithLogger(l *logrus.Logger) Option {
	return func(c *EngineConfig) { c.Logger = l }
}

// WithMetricsRegisterer registers this engine's Prometheus metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *EngineConfig) { c.Registerer = reg }
}

// WithInstanceID pins the engine's log-correlation identifier instead of
// letting New() generate a random one. Useful in tests that assert on log
// output for a known ID.
func WithInstanceID(id uuid.UUID) Option {
	return func(c *EngineConfig) { c.InstanceID = id }
}

func defaultConfig() *EngineConfig {
	return &EngineConfig{
		QueueSize:      getIntEnv("BULKTASK_QUEUE_SIZE", 1024),
		ShutdownGrace:  getDurationEnv("BULKTASK_SHUTDOWN_GRACE", 5*time.Second),
		SpinYieldEvery: getIntEnv("BULKTASK_SPIN_YIELD_EVERY", 256),
	}
}

func defaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
