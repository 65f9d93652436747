// Package lock serializes reconciliations. A Lock combines an in-process
// semaphore with an advisory file lock so that two processes sharing a
// store never persist concurrently.
package lock

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
)

// errBusy is returned by tryLock when another holder has the file lock.
var errBusy = stderrors.New("lock busy")

// Lock is a named exclusive lock. It is not reentrant.
type Lock struct {
	path string
	poll time.Duration
	sem  chan struct{}
	file *os.File
}

// New returns a lock backed by the file at path. An empty path gives a
// lock that only excludes callers within this process.
func New(path string) *Lock {
	return &Lock{
		path: path,
		poll: constants.LockPollInterval,
		sem:  make(chan struct{}, 1),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire blocks until the lock is held or ctx is done. A context error is
// reported as ErrLocked.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", errors.ErrLocked, l.path, ctx.Err())
	}

	if l.path == "" {
		return nil
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		held, err := l.tryFile()
		if err != nil {
			<-l.sem
			return err
		}
		if held {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			<-l.sem
			return fmt.Errorf("%w: %s: %w", errors.ErrLocked, l.path, ctx.Err())
		}
	}
}

// TryAcquire takes the lock if it is free.
func (l *Lock) TryAcquire() (bool, error) {
	select {
	case l.sem <- struct{}{}:
	default:
		return false, nil
	}
	if l.path == "" {
		return true, nil
	}
	held, err := l.tryFile()
	if err != nil || !held {
		<-l.sem
	}
	return held, err
}

// Release gives up the lock. Releasing a lock that is not held is a no-op.
func (l *Lock) Release() error {
	var err error
	if l.file != nil {
		err = unlockFile(l.file)
		if cerr := l.file.Close(); err == nil {
			err = cerr
		}
		l.file = nil
	}
	select {
	case <-l.sem:
	default:
	}
	if err != nil {
		return errors.WrapIO("unlock", l.path, err)
	}
	return nil
}

func (l *Lock) tryFile() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), constants.DirPermissions); err != nil {
		return false, errors.WrapIO("create", filepath.Dir(l.path), err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, constants.FilePermissions)
	if err != nil {
		return false, errors.WrapIO("open", l.path, err)
	}
	if err := tryLockFile(f); err != nil {
		_ = f.Close()
		if stderrors.Is(err, errBusy) {
			return false, nil
		}
		return false, errors.WrapIO("lock", l.path, err)
	}
	l.file = f
	return true, nil
}
