package ipcsem

import "golang.org/x/sys/unix"

// ipc64 asks the old-style semctl on arm for struct semid64_ds.
const ipc64 = 0x100

const ipcStatCmd = unix.IPC_STAT | ipc64

// semidDS is struct semid64_ds on 32-bit arm: a 36 byte ipc64_perm followed
// by sem_otime split into two words.
type semidDS struct {
	perm      [36]byte
	otime     uint32
	otimeHigh uint32
	_         [8]uint32
}

func (ds *semidDS) opTime() int64 {
	return int64(ds.otimeHigh)<<32 | int64(ds.otime)
}
