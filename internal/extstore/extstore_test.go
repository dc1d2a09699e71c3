package extstore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
)

// seed creates a LevelDB directory holding the given entries.
func seed(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "leveldb")
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		t.Fatalf("creating leveldb: %v", err)
	}
	for k, v := range entries {
		if err := db.Put([]byte(k), v, nil); err != nil {
			t.Fatalf("seeding %q: %v", k, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing leveldb: %v", err)
	}
	return dir
}

func TestStore_Get(t *testing.T) {
	value := []byte("\x00{\x00}\x00")
	dir := seed(t, map[string][]byte{
		string(OneTabStateKey): value,
		"_chrome-extension://" + OneTabExtensionID + "\x00\x01settings": []byte("other"),
	})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, err := s.Get(OneTabStateKey)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get() = %q, want %q", got, value)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys() unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys() returned %d keys, want 2", len(keys))
	}
}

func TestStore_GetExactKeyOnly(t *testing.T) {
	dir := seed(t, map[string][]byte{
		"_chrome-extension://" + OneTabExtensionID + "\x00state": []byte("near miss"),
	})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer func() { _ = s.Close() }()

	_, err = s.Get(OneTabStateKey)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("Open() expected error for missing directory, got nil")
	}
	if errors.Is(err, ErrLocked) {
		t.Errorf("Open() missing directory reported as locked: %v", err)
	}
}
