package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sys/unix"
)

// locksDirName is the subdirectory holding lock files. Keeping them out of
// the document directory leaves document listings untouched.
const locksDirName = ".locks"

const lockFilePerms = 0o600

// Lock acquisition polls with exponential backoff between these bounds.
const (
	lockBackoffMin = time.Millisecond
	lockBackoffMax = 25 * time.Millisecond
)

var (
	errLockBusy = errors.New("lock busy")

	// errInodeMismatch means the lock file was replaced between open and
	// flock. The attempt is retried.
	errInodeMismatch = errors.New("lock file replaced")
)

// fileLock is an exclusive flock on a lock file.
type fileLock struct {
	path string
	file *os.File
}

// withLock runs fn while holding an exclusive lock for path.
func withLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	lock, err := acquireLock(ctx, path, timeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer lock.release()

	return fn()
}

// acquireLock takes an exclusive lock on the sidecar lock file of path,
// retrying until timeout or ctx is done.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (*fileLock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	dir, base := filepath.Split(path)
	locksDir := filepath.Join(dir, locksDirName)
	lockPath := filepath.Join(locksDir, base+".lock")

	mkdirErr := os.MkdirAll(locksDir, dirPerms)
	if mkdirErr != nil {
		return nil, fmt.Errorf("creating locks dir: %w", mkdirErr)
	}

	backoff := retry.NewExponential(lockBackoffMin)
	backoff = retry.WithCappedDuration(lockBackoffMax, backoff)
	backoff = retry.WithMaxDuration(timeout, backoff)

	var lock *fileLock

	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		acquired, tryErr := tryLock(lockPath)
		if errors.Is(tryErr, errLockBusy) || errors.Is(tryErr, errInodeMismatch) {
			return retry.RetryableError(tryErr)
		}

		if tryErr != nil {
			return tryErr
		}

		lock = acquired

		return nil
	})
	if err != nil {
		if errors.Is(err, errLockBusy) || errors.Is(err, errInodeMismatch) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		return nil, err
	}

	return lock, nil
}

// tryLock makes one non-blocking attempt. It verifies after flock that the
// locked inode is still the file at lockPath, since a releasing holder
// removes the file.
func tryLock(lockPath string) (*fileLock, error) {
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockFilePerms)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	fd := int(file.Fd())

	var openStat unix.Stat_t

	err = unix.Fstat(fd, &openStat)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("fstat lock file: %w", err)
	}

	err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return nil, errLockBusy
		}

		return nil, fmt.Errorf("flock: %w", err)
	}

	var pathStat unix.Stat_t

	statErr := unix.Stat(lockPath, &pathStat)
	if statErr != nil || pathStat.Ino != openStat.Ino || pathStat.Dev != openStat.Dev {
		_ = unix.Flock(fd, unix.LOCK_UN)
		_ = file.Close()

		return nil, errInodeMismatch
	}

	return &fileLock{path: lockPath, file: file}, nil
}

// release removes the lock file, then unlocks and closes it.
// Order matters: remove while holding the lock so no waiter locks a file
// that is about to disappear without noticing.
func (l *fileLock) release() {
	if l.file == nil {
		return
	}

	_ = os.Remove(l.path)
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
