//go:build unix

package ipcsem

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// keyProjectID is the project discriminator mixed into every key.
const keyProjectID = 'I'

// keyFilePath returns the key file for name inside dir.
func keyFilePath(dir, name string) string {
	return filepath.Join(dir, resolvedFragment(name))
}

// resolveKey makes sure the key file for name exists and derives the System V
// key from it. Several processes may race through here; losing a creation race
// is not an error.
func resolveKey(dir, name string) (int32, error) {
	path := keyFilePath(dir, name)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return -1, errors.Annotatef(err, "creating key directory %q", dir)
	}

	// Create the file exclusively so an existing one is never truncated.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o640)
	switch {
	case err == nil:
		if err := f.Close(); err != nil {
			return -1, errors.Trace(err)
		}
		logger.Debugf("created key file %s", path)
	case errors.Is(err, fs.ErrExist):
	default:
		return -1, errors.Annotatef(err, "creating key file %q", path)
	}

	key, err := ftok(path, keyProjectID)
	if err != nil {
		return -1, errors.Annotatef(err, "deriving key from %q", path)
	}
	return key, nil
}

// ftok derives a System V IPC key from a file's identity the same way the C
// library does, so keys agree with native programs using the same file.
func ftok(path string, proj byte) (int32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return -1, err
	}
	key := uint32(st.Ino)&0xffff | (uint32(st.Dev)&0xff)<<16 | uint32(proj)<<24
	return int32(key), nil
}

func resolvedName(name string, opts Options) (string, error) {
	key, err := resolveKey(opts.KeyDir, name)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(key), 10), nil
}
