//go:build linux && (amd64 || arm64 || loong64 || ppc64 || ppc64le || riscv64 || s390x)

package ipcsem

import "golang.org/x/sys/unix"

// These architectures only have the modern semctl, which always reports the
// 64-bit structures and rejects the IPC_64 flag.
const ipcStatCmd = unix.IPC_STAT

// semidDS is struct semid64_ds on 64-bit Linux, where sem_otime follows the
// 48 byte ipc64_perm. The tail is padded past the largest arch layout.
type semidDS struct {
	perm  [48]byte
	otime int64
	_     [8]uint64
}

func (ds *semidDS) opTime() int64 {
	return ds.otime
}
