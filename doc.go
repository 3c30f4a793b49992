// Package ipcsem provides named counting semaphores shared between independent
// operating-system processes.
//
// A semaphore is opened by a logical name and an initial count. Any process on the
// same host that opens the same name gets a handle to the same kernel counter, so the
// semaphore behaves like an in-process counting semaphore that is visible system-wide.
//
// # Opening a Semaphore
//
// The first process to open a name creates the counter with the given count. Later
// opens attach to the existing counter and ignore their count argument:
//
//	sem, err := ipcsem.New("render-slots", 4)
//	if err != nil {
//	    return err
//	}
//	defer sem.Close()
//
// Close only releases the local handle. The kernel object is left in place for the
// other processes that use it; Remove deletes it explicitly.
//
// # Acquiring and Releasing
//
// Acquire blocks until a unit is available, TryAcquire never blocks, and Release
// returns a unit and wakes one waiter:
//
//	sem.Acquire()
//	// critical section
//	sem.Release()
//
// Access returns a Guard that gives the unit back exactly once:
//
//	g := sem.Access()
//	defer g.Release()
//
// Do runs a function while holding a unit and releases it on every exit path,
// including panics:
//
//	err := sem.Do(func() error {
//	    return render(frame)
//	})
//
// # Failure Semantics
//
// Errors while resolving a name or creating/attaching to the counter are returned as
// *OpError values carrying the OS error. A joiner that never sees the counter finish
// initialization gets ErrInitTimeout, which also matches errors.Timeout from
// github.com/juju/errors.
//
// Once a handle exists, Acquire, TryAcquire and Release treat unexpected OS errors as
// unrecoverable: they log at CRITICAL level and panic with an *OpError. Interrupted
// system calls are retried and a busy TryAcquire reports false; anything else means the
// counter was removed underneath the process or the environment is broken. Callers
// that need to survive such conditions can recover and inspect the value with IsFatal.
//
// # Platform Support
//
// Linux uses System V semaphores. Every acquire and release is made with SEM_UNDO, so
// the kernel gives back units held by a process that dies without releasing them.
// Creation and initialization are separate system calls there; the first creator
// initializes the counter and later openers wait until the kernel reports a completed
// operation on it. Key files live in a dedicated directory under os.TempDir and are
// never cleaned up.
//
// Windows uses kernel semaphore objects in the Global\ namespace. Creation is atomic.
// The kernel closes a process's handles when it exits but has no per-unit undo, so units
// held by a crashed process stay taken; this package does not emulate SEM_UNDO there.
//
// The Linux backend covers amd64, arm, arm64, loong64, ppc64, ppc64le, riscv64 and
// s390x. Other platforms return an error matching errors.NotSupported from New.
package ipcsem
