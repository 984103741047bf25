package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danjacques/gofslock/fslock"
	platformerrors "github.com/jmgilman/seed/errors"
)

const (
	lockDirName   = ".locks"
	indexLockName = "index.lock"

	// lockHeldDelay is how long a waiter sleeps between lock attempts.
	lockHeldDelay = 50 * time.Millisecond
)

// Locker serializes access to cache entries. Exclusive holders exclude
// everyone; shared holders only exclude exclusive ones.
type Locker interface {
	// WithExclusive runs fn while holding the exclusive lock at path.
	WithExclusive(ctx context.Context, path string, fn func() error) error

	// WithShared runs fn while holding a shared lock at path.
	WithShared(ctx context.Context, path string, fn func() error) error
}

// FileLocker combines an in-process RWMutex per lock path with an
// advisory file lock, so it serializes goroutines and processes alike.
type FileLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewFileLocker returns a Locker backed by gofslock.
func NewFileLocker() *FileLocker {
	return &FileLocker{locks: make(map[string]*sync.RWMutex)}
}

func (l *FileLocker) mutex(path string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[path]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[path] = m
	}
	return m
}

// WithExclusive implements Locker.
func (l *FileLocker) WithExclusive(ctx context.Context, path string, fn func() error) error {
	m := l.mutex(path)
	if err := acquire(ctx, m.TryLock); err != nil {
		return err
	}
	defer m.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to create lock directory")
	}
	return fslock.WithBlocking(path, blocker(ctx), fn)
}

// WithShared implements Locker.
func (l *FileLocker) WithShared(ctx context.Context, path string, fn func() error) error {
	m := l.mutex(path)
	if err := acquire(ctx, m.TryRLock); err != nil {
		return err
	}
	defer m.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to create lock directory")
	}
	return fslock.WithSharedBlocking(path, blocker(ctx), fn)
}

// acquire polls try until it succeeds or ctx is done.
func acquire(ctx context.Context, try func() bool) error {
	wait := blocker(ctx)
	for !try() {
		if err := wait(); err != nil {
			return err
		}
	}
	return nil
}

// blocker is an fslock.Blocker that sleeps lockHeldDelay between attempts
// and gives up once ctx is done.
func blocker(ctx context.Context) fslock.Blocker {
	return func() error {
		timer := time.NewTimer(lockHeldDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return platformerrors.Wrap(ctx.Err(), platformerrors.CodeCanceled, "gave up waiting for cache lock")
		case <-timer.C:
			return nil
		}
	}
}

// withEntryLock runs fn under the exclusive lock for key.
func (s *Store) withEntryLock(ctx context.Context, key Key, fn func() error) error {
	return s.locker.WithExclusive(ctx, s.lockPath(key), fn)
}

// withEntryReadLock runs fn under a shared lock for key.
func (s *Store) withEntryReadLock(ctx context.Context, key Key, fn func() error) error {
	return s.locker.WithShared(ctx, s.lockPath(key), fn)
}

func (s *Store) withIndexLock(ctx context.Context, fn func() error) error {
	return s.locker.WithExclusive(ctx, filepath.Join(s.root, lockDirName, indexLockName), fn)
}
