package cratescache

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
)

const lockFile = ".lock"

// dirLock is an OS file lock held for the duration of a refresh or Clear.
// The operating system drops it when the holder exits, however it exits,
// so the .lock file left on disk never blocks anyone by itself.
type dirLock struct {
	fl *flock.Flock
	id string // identifies the holder in log lines
}

func acquireLock(dir string) (*dirLock, error) {
	path := filepath.Join(dir, lockFile)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "lock %s", path)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeAlreadyExists,
			"refresh already in progress (%s is held by another process)", path)
	}
	return &dirLock{fl: fl, id: uuid.NewString()}, nil
}

// release unlocks. Releasing twice is a no-op.
func (l *dirLock) release() error {
	if err := l.fl.Unlock(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "unlock %s", l.fl.Path())
	}
	return nil
}
