package affinity

import (
	"testing"
)

// Pin's success depends on the host's scheduler and core count, which
// varies across CI sandboxes and containers; this only checks that a
// call (success or failure) never panics and that Unpin after a failed
// Pin is still safe to call.
func TestPinDoesNotPanic(t *testing.T) {
	_ = Pin(0)
	Unpin()
}
