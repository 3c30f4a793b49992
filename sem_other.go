//go:build !windows && !(linux && (amd64 || arm || arm64 || loong64 || ppc64 || ppc64le || riscv64 || s390x))

package ipcsem

import (
	"runtime"

	"github.com/juju/errors"
)

// This platform has no semaphore backend. New and Remove fail with an error
// matching errors.NotSupported.

func openBackend(name string, _ uint, _ Options) (backend, error) {
	return nil, errors.NotSupportedf("ipc semaphores on %s/%s", runtime.GOOS, runtime.GOARCH)
}

func removeBackend(name string, _ Options) error {
	return errors.NotSupportedf("ipc semaphores on %s/%s", runtime.GOOS, runtime.GOARCH)
}
