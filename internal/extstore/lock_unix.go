//go:build linux || darwin

package extstore

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// shareLock takes a shared fcntl lock on the store's LOCK file. Chromium and
// the C++ leveldb lock that file with fcntl, which goleveldb's flock does not
// see on Linux. The returned file holds the lock until it is closed; it is
// nil when the store has no LOCK file.
func shareLock(dir string) (*os.File, error) {
	f, err := os.Open(filepath.Join(dir, "LOCK"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	lk := unix.Flock_t{Type: unix.F_RDLCK, Whence: 0} // whole file
	if err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return f, nil
}

func isPlatformLockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN)
}
