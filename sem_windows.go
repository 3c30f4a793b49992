//go:build windows

package ipcsem

import (
	"math"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/windows"
)

// Kernel semaphore objects are created with their initial count in one call,
// so there is no initialization race to handle here.

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procCreateSemaphoreW = modkernel32.NewProc("CreateSemaphoreW")
	procReleaseSemaphore = modkernel32.NewProc("ReleaseSemaphore")
)

const (
	waitObject0 = 0x00000000
	waitTimeout = 0x00000102
	waitFailed  = 0xFFFFFFFF
)

type winSem struct {
	h    windows.Handle
	name string
}

func openBackend(name string, count uint, _ Options) (backend, error) {
	if count > math.MaxInt32 {
		return nil, errors.NotValidf("initial count %d for semaphore %q (max %d)", count, name, math.MaxInt32)
	}
	objName := objectName(name)
	p, err := windows.UTF16PtrFromString(objName)
	if err != nil {
		return nil, &OpError{Op: "resolve", Name: name, Err: err}
	}
	r, _, err := procCreateSemaphoreW.Call(0, uintptr(count), uintptr(math.MaxInt32), uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return nil, &OpError{Op: "create", Name: name, Err: err}
	}
	if err == windows.ERROR_ALREADY_EXISTS {
		logger.Debugf("joined semaphore %q (%s)", name, objName)
	} else {
		logger.Debugf("created semaphore %q (%s) with count %d", name, objName, count)
	}
	return &winSem{h: windows.Handle(r), name: name}, nil
}

func (s *winSem) wait() {
	ev, err := windows.WaitForSingleObject(s.h, windows.INFINITE)
	switch ev {
	case waitObject0:
	case waitFailed:
		fatal("wait", s.name, err)
	default:
		fatal("wait", s.name, errors.Errorf("unrecognized wait result %#x", ev))
	}
}

func (s *winSem) tryWait() bool {
	ev, err := windows.WaitForSingleObject(s.h, 0)
	switch ev {
	case waitObject0:
		return true
	case waitTimeout:
		return false
	case waitFailed:
		fatal("trywait", s.name, err)
	default:
		fatal("trywait", s.name, errors.Errorf("unrecognized wait result %#x", ev))
	}
	return false
}

func (s *winSem) post() {
	r, _, err := procReleaseSemaphore.Call(uintptr(s.h), 1, 0)
	if r == 0 {
		fatal("post", s.name, err)
	}
}

// close drops this process's reference. The object lives on until the last
// handle to it, in any process, is closed.
func (s *winSem) close() error {
	return windows.CloseHandle(s.h)
}

// removeBackend has nothing to do: named objects cannot be deleted while
// other handles exist and vanish on their own afterwards.
func removeBackend(string, Options) error {
	return nil
}
