//go:build !linux && !darwin && !windows

package extstore

import "os"

func shareLock(string) (*os.File, error) { return nil, nil }

func isPlatformLockError(error) bool { return false }
