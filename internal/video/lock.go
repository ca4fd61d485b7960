package video

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrVideoLocked is returned when another process holds the lock of a video.
var ErrVideoLocked = errors.New("video is locked by another worker")

// Locker hands out exclusive per-video file locks kept in dir.
// Locks are advisory and hold across processes sharing dir.
type Locker struct {
	dir string
}

// NewLocker creates a Locker that keeps lock files in dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir}
}

// TryLock acquires the lock for id without blocking. The returned function
// releases the lock. Lock files are left in place: unlinking a flock file
// lets a second worker lock a fresh inode while the old one is still held.
func (l *Locker) TryLock(id string) (unlock func() error, err error) {
	path := filepath.Join(l.dir, "."+id+".lock")
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVideoLocked, id)
	}

	return func() error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("release lock %s: %w", path, err)
		}
		return nil
	}, nil
}
