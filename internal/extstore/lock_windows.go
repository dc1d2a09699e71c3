//go:build windows

package extstore

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// shareLock is a no-op: the browser opens LOCK without sharing, so opening
// the store fails with a sharing violation instead.
func shareLock(string) (*os.File, error) { return nil, nil }

func isPlatformLockError(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
