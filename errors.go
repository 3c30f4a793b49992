package ipcsem

import (
	"fmt"

	"github.com/juju/errors"
)

// ErrClosed is the panic value cause when a closed Semaphore is used.
const ErrClosed = errors.ConstError("semaphore is closed")

// ErrInitTimeout is returned by New when the semaphore already exists but the
// process that created it never finished initializing it.
// It also matches errors.Timeout.
var ErrInitTimeout error = initTimeoutError{}

type initTimeoutError struct{}

func (initTimeoutError) Error() string {
	return "timed out waiting for semaphore to be initialized"
}

func (initTimeoutError) Is(target error) bool {
	return target == errors.Timeout
}

// OpError records a failed semaphore operation together with the semaphore name.
// Err is usually the raw OS error (a unix.Errno or windows.Errno).
type OpError struct {
	// Op is the operation that failed: "resolve", "create", "remove",
	// "wait", "trywait" or "post".
	Op string

	// Name is the logical semaphore name.
	Name string

	// Err is the underlying error.
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("ipcsem: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether a value recovered from a panic was raised by a
// semaphore operation, and returns it.
func IsFatal(recovered any) (*OpError, bool) {
	e, ok := recovered.(*OpError)
	return e, ok
}

// fatal aborts an operation on an existing semaphore. Operations on an open
// handle have no error return; an unexpected OS error here means the counter
// was removed or the environment is broken.
func fatal(op, name string, err error) {
	e := &OpError{Op: op, Name: name, Err: err}
	logger.Criticalf("unrecoverable semaphore error: %v", e)
	panic(e)
}
