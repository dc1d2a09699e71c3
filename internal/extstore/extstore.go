// Package extstore reads values from a Chrome extension's LevelDB storage
// directory ("Local Extension Settings/<id>" or the extension's "Local
// Storage/leveldb").
package extstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// OneTabExtensionID is the Chrome Web Store ID of the OneTab extension.
const OneTabExtensionID = "chphlpgkkbolifaimnlloiipkdnihall"

// OneTabStateKey is the exact LevelDB key holding OneTab's state: the
// extension origin followed by a 0x00 0x01 separator and the item name.
var OneTabStateKey = []byte("_chrome-extension://" + OneTabExtensionID + "\x00\x01state")

var (
	// ErrLocked is returned when another process (usually the browser) holds
	// the store lock. Close the browser and retry.
	ErrLocked = errors.New("extension store is locked by another process")
	// ErrNotFound is returned when the store has no value for the key.
	ErrNotFound = errors.New("key not found in extension store")
)

// Store is a read-only handle on an extension LevelDB directory.
type Store struct {
	db   *leveldb.DB
	lock *os.File // fcntl read lock on LOCK, nil if the platform has none
	path string
}

// Open opens the LevelDB directory at path read-only. It fails with ErrLocked
// while a browser or another leveldb process has the store open.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening extension store: %w", err)
	}
	lock, err := shareLock(path)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("opening %s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("locking extension store %s: %w", path, err)
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		if lock != nil {
			_ = lock.Close()
		}
		if isLockError(err) {
			return nil, fmt.Errorf("opening %s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("opening extension store %s: %w", path, err)
	}
	return &Store{db: db, lock: lock, path: path}, nil
}

// isLockError reports whether err comes from the LOCK file being held.
func isLockError(err error) bool {
	return errors.Is(err, storage.ErrLocked) || isPlatformLockError(err)
}

// Get returns a copy of the raw value stored under key. Only an exact key
// match counts.
func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%q in %s: %w", key, s.path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	return value, nil
}

// Keys lists every key in the store. Useful when a profile stores the state
// under a different origin.
func (s *Store) Keys() ([][]byte, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var keys [][]byte
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, key)
	}
	return keys, iter.Error()
}

// Close releases the store and its locks.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if lockErr := s.lock.Close(); err == nil {
			err = lockErr
		}
	}
	return err
}
