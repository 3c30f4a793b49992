//go:build linux && (amd64 || arm || arm64 || loong64 || ppc64 || ppc64le || riscv64 || s390x)

package ipcsem

import (
	"unsafe"

	"github.com/juju/errors"
	"github.com/juju/retry"
	"golang.org/x/sys/unix"
)

// System V semaphores, used in preference to POSIX named semaphores because
// SEM_UNDO lets the kernel give back units held by a process that dies.
//
// The facility cannot create a counter with an initial value in one step:
// semget creates it and a later semctl sets it, and another process can attach
// in between. Whoever wins the exclusive semget initializes the counter and
// finishes with a semop, which makes sem_otime non-zero. Everybody else waits
// for sem_otime before using the counter.

const (
	semUndo   = 0x1000
	semGetVal = 12
	semSetVal = 16

	// semValueMax is SEMVMX, the largest value a counter can hold.
	semValueMax = 32767
)

type sembuf struct {
	num uint16
	op  int16
	flg int16
}

type sysvSem struct {
	id   int
	name string
}

// semopFunc applies one operation to the counter. Tests swap it to inject
// failures.
var semopFunc = semop

// errNotInitialized keeps the joiner polling.
const errNotInitialized = errors.ConstError("semaphore not initialized")

func openBackend(name string, count uint, opts Options) (backend, error) {
	if count > semValueMax {
		return nil, errors.NotValidf("initial count %d for semaphore %q (max %d)", count, name, semValueMax)
	}
	key, err := resolveKey(opts.KeyDir, name)
	if err != nil {
		return nil, &OpError{Op: "resolve", Name: name, Err: err}
	}

	id, err := semget(key, 1, unix.IPC_CREAT|unix.IPC_EXCL|0o666)
	switch {
	case err == nil:
		logger.Debugf("initializing semaphore %q (key %#x, id %d) with count %d", name, key, id, count)
		if err := initialize(id, count); err != nil {
			_, _ = semctl(id, unix.IPC_RMID, 0)
			return nil, &OpError{Op: "create", Name: name, Err: err}
		}
	case err == unix.EEXIST:
		if id, err = semget(key, 1, 0); err != nil {
			return nil, &OpError{Op: "create", Name: name, Err: err}
		}
		logger.Debugf("joining semaphore %q (key %#x, id %d)", name, key, id)
		if err := awaitInit(id, opts); err != nil {
			return nil, &OpError{Op: "create", Name: name, Err: err}
		}
	default:
		return nil, &OpError{Op: "create", Name: name, Err: err}
	}
	return &sysvSem{id: id, name: name}, nil
}

// initialize sets the new counter to count. The value after semget is not
// defined, so clamp it to zero first, then add count with a real operation so
// that sem_otime tells joiners we are done. The operation has no SEM_UNDO:
// the initial units must survive this process.
func initialize(id int, count uint) error {
	if _, err := semctl(id, semSetVal, 0); err != nil {
		return err
	}
	return semopFunc(id, int16(count), 0)
}

// awaitInit polls sem_otime until the creating process has initialized the
// counter, giving up after opts.InitAttempts checks.
func awaitInit(id int, opts Options) error {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			otime, err := semOtime(id)
			if err != nil {
				return err
			}
			if otime == 0 {
				return errNotInitialized
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return err != errNotInitialized
		},
		NotifyFunc: func(_ error, attempt int) {
			logger.Tracef("semaphore %d not initialized yet (attempt %d)", id, attempt)
		},
		Attempts: opts.InitAttempts,
		Delay:    initPollDelay,
		Clock:    opts.Clock,
	})
	if retry.IsAttemptsExceeded(err) {
		return ErrInitTimeout
	}
	return err
}

func (s *sysvSem) wait() {
	for {
		err := semopFunc(s.id, -1, semUndo)
		if err == nil {
			return
		}
		// Interrupted before anything was applied; try again.
		if err != unix.EINTR {
			fatal("wait", s.name, err)
		}
	}
}

func (s *sysvSem) tryWait() bool {
	for {
		switch err := semopFunc(s.id, -1, semUndo|unix.IPC_NOWAIT); err {
		case nil:
			return true
		case unix.EAGAIN:
			return false
		case unix.EINTR:
		default:
			fatal("trywait", s.name, err)
		}
	}
}

func (s *sysvSem) post() {
	for {
		err := semopFunc(s.id, 1, semUndo)
		if err == nil {
			return
		}
		if err != unix.EINTR {
			fatal("post", s.name, err)
		}
	}
}

// close leaves the counter in the kernel for the other processes using it.
func (s *sysvSem) close() error {
	return nil
}

// value reads the current count.
func (s *sysvSem) value() (int, error) {
	return semctl(s.id, semGetVal, 0)
}

func removeBackend(name string, opts Options) error {
	key, err := resolveKey(opts.KeyDir, name)
	if err != nil {
		return &OpError{Op: "resolve", Name: name, Err: err}
	}
	id, err := semget(key, 1, 0)
	if err == unix.ENOENT {
		return errors.NotFoundf("semaphore %q", name)
	}
	if err != nil {
		return &OpError{Op: "remove", Name: name, Err: err}
	}
	if _, err := semctl(id, unix.IPC_RMID, 0); err != nil {
		return &OpError{Op: "remove", Name: name, Err: err}
	}
	logger.Debugf("removed semaphore %q (key %#x, id %d)", name, key, id)
	return nil
}

func semget(key int32, nsems, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(flags))
	if errno != 0 {
		return -1, errno
	}
	return int(id), nil
}

// semctl runs a command on semaphore 0 of the set. arg is passed by value,
// which covers SETVAL, GETVAL and IPC_RMID.
func semctl(id, cmd int, arg uintptr) (int, error) {
	r, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(cmd), arg, 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}

func semOtime(id int) (int64, error) {
	var ds semidDS
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, ipcStatCmd, uintptr(unsafe.Pointer(&ds)), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return ds.opTime(), nil
}

// semop goes through semtimedop with no timeout, which is semop on every
// architecture and the only entry point on some.
func semop(id int, op, flags int16) error {
	buf := sembuf{num: 0, op: op, flg: flags}
	_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP, uintptr(id), uintptr(unsafe.Pointer(&buf)), 1, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
