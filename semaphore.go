package ipcsem

import (
	"sync/atomic"

	"github.com/juju/errors"
)

// backend is one platform's kernel semaphore. Each Semaphore owns exactly one.
// Operations on an open backend never return errors; unexpected failures go
// through fatal.
type backend interface {
	// wait takes one unit, blocking until one is available.
	wait()

	// tryWait takes one unit if one is available right now.
	tryWait() bool

	// post returns one unit.
	post()

	// close releases the local handle only; the kernel object stays.
	close() error
}

// Semaphore is a handle to a named counting semaphore shared between processes.
//
// A Semaphore is safe for concurrent use by multiple goroutines, except for Close
// (see there). Handles opened with the same name, in the same or different
// processes, share one counter.
type Semaphore struct {
	// Name is the logical name the semaphore was opened with.
	Name string

	b      backend
	closed atomic.Bool
}

// New opens the semaphore called name, creating it with count units if no
// process has created it yet. If it already exists, count is ignored.
func New(name string, count uint) (*Semaphore, error) {
	return NewWithOptions(name, count, nil)
}

// NewWithOptions is New with explicit options. opts may be nil.
func NewWithOptions(name string, count uint, opts *Options) (*Semaphore, error) {
	b, err := openBackend(name, count, opts.withDefaults())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Semaphore{Name: name, b: b}, nil
}

// Remove deletes the kernel object behind name so that the next New creates it
// afresh. Processes still holding handles see their next operation fail. On
// Windows the object disappears with its last handle and Remove does nothing.
func Remove(name string) error {
	return RemoveWithOptions(name, nil)
}

// RemoveWithOptions is Remove with explicit options. opts may be nil.
func RemoveWithOptions(name string, opts *Options) error {
	return errors.Trace(removeBackend(name, opts.withDefaults()))
}

// Acquire takes one unit, blocking until one is available.
// It panics with an *OpError if the kernel reports an unexpected error.
func (s *Semaphore) Acquire() {
	s.live("wait").wait()
}

// TryAcquire takes one unit if one is available without blocking, and
// reports whether it did.
func (s *Semaphore) TryAcquire() bool {
	return s.live("trywait").tryWait()
}

// Release returns one unit, waking one blocked waiter if there is one.
func (s *Semaphore) Release() {
	s.live("post").post()
}

// Access acquires one unit and returns a Guard that releases it.
func (s *Semaphore) Access() *Guard {
	s.Acquire()
	return &Guard{sem: s}
}

// TryAccess is the non-blocking Access. The Guard is nil when no unit was
// available.
func (s *Semaphore) TryAccess() (*Guard, bool) {
	if !s.TryAcquire() {
		return nil, false
	}
	return &Guard{sem: s}, true
}

// Do runs fn while holding one unit. The unit is released when fn returns or
// panics.
func (s *Semaphore) Do(fn func() error) error {
	g := s.Access()
	defer g.Release()
	return fn()
}

// TryDo runs fn only if a unit is available right now, and reports whether fn
// ran. The unit is released when fn returns or panics.
func (s *Semaphore) TryDo(fn func() error) (bool, error) {
	g, ok := s.TryAccess()
	if !ok {
		return false, nil
	}
	defer g.Release()
	return true, fn()
}

// Close releases the local handle. It does not remove the semaphore from the
// system and does not return units held through this handle. Close is
// idempotent; any other method panics once the handle is closed.
//
// Close must not run concurrently with other methods on the same Semaphore.
// The closed check is not synchronized with an operation already in progress,
// and on Windows closing the handle under a pending wait is undefined.
func (s *Semaphore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Trace(s.b.close())
}

func (s *Semaphore) live(op string) backend {
	if s.closed.Load() {
		fatal(op, s.Name, ErrClosed)
	}
	return s.b
}
