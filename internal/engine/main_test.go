package engine

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if any engine leaks a worker goroutine past
// Close; every test constructs its engines through newTestEngine or closes
// them explicitly, so a leak here is a real join bug, not test debris.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
