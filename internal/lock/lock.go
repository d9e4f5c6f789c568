package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/rowjay/scenesnap/internal/util"
)

// ErrBusy is returned when another operation holds the lock.
var ErrBusy = errors.New("another operation is already running")

type Lock struct {
	file *flock.Flock
	Path string
}

// Acquire obtains a filesystem lock to prevent overlapping operations.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "scenesnap.lock")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock: %s)", ErrBusy, path)
	}
	return &Lock{file: lock, Path: path}, nil
}

// AcquireFor locks one target identity, so capture, restore and schema swaps on the
// same target never interleave while different targets proceed independently.
func AcquireFor(dir, identity string) (*Lock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := util.SanitizeName(identity)
	if name == "" {
		name = "corpus"
	}
	return Acquire(filepath.Join(dir, name+".lock"))
}

// Release frees the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Unlock()
	l.file = nil
	return err
}
