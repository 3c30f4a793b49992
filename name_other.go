//go:build !unix && !windows

package ipcsem

import (
	"runtime"

	"github.com/juju/errors"
)

func resolvedName(string, Options) (string, error) {
	return "", errors.NotSupportedf("ipc semaphore names on %s", runtime.GOOS)
}
