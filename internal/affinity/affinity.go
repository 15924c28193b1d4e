// Package affinity pins the calling goroutine's OS thread to a CPU
// core and locks it so the Go scheduler never migrates it mid-block.
// A render thread bound to a core this way never gets rescheduled onto
// a colder cache underneath a deadline-sensitive loop.
package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the current goroutine to its OS thread and restricts that
// thread to cpu. Callers run it once at the top of a long-lived render
// loop. It returns a non-nil error if the affinity syscall fails; the
// caller may choose to continue unpinned.
func Pin(cpu int) error {
	runtime.LockOSThread()
	var mask unix.CPUSet
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("affinity: set CPU %d: %w", cpu, err)
	}
	return nil
}

// Unpin releases the OS thread lock taken by Pin. It does not restore
// the previous affinity mask; the thread is simply freed for the Go
// scheduler to reuse.
func Unpin() {
	runtime.UnlockOSThread()
}
