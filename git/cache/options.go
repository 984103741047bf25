package cache

import (
	"io"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/seed/git"
	"github.com/rs/zerolog"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFilesystem sets the billy filesystem entries are written to.
// It must be rooted at "/" with the same view of the cache root as the
// OS, since lock files are always real files.
func WithFilesystem(fs billy.Filesystem) StoreOption {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithRemoteOperations replaces the go-git network implementation.
//
// Example:
//
//	store, err := cache.NewStore(root, cache.WithRemoteOperations(fake))
func WithRemoteOperations(ops git.RemoteOperations) StoreOption {
	return func(s *Store) {
		s.remoteOps = ops
	}
}

// WithLocker replaces the default gofslock-backed Locker.
func WithLocker(l Locker) StoreOption {
	return func(s *Store) {
		s.locker = l
	}
}

// WithDepth sets the clone and fetch depth for branch and tag refs
// (0 = full history). Commit hash refs always clone full history.
//
// Example:
//
//	store, err := cache.NewStore(root, cache.WithDepth(1))
func WithDepth(depth int) StoreOption {
	return func(s *Store) {
		s.depth = depth
	}
}

// WithProgress streams clone and fetch progress to w.
func WithProgress(w io.Writer) StoreOption {
	return func(s *Store) {
		s.progress = w
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for index timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// PruneOlderThan removes entries created more than maxAge ago.
//
// Example:
//
//	removed, err := store.Prune(ctx, cache.PruneOlderThan(30*24*time.Hour))
func PruneOlderThan(maxAge time.Duration) PruneStrategy {
	return &pruneOlderThan{maxAge: maxAge}
}

// PruneUnusedFor removes entries not accessed within d.
//
// Example:
//
//	removed, err := store.Prune(ctx, cache.PruneUnusedFor(7*24*time.Hour))
func PruneUnusedFor(d time.Duration) PruneStrategy {
	return &pruneUnusedFor{maxIdle: d}
}

// PruneToSize removes least recently accessed entries until the cache is
// at most maxBytes.
//
// Example:
//
//	removed, err := store.Prune(ctx, cache.PruneToSize(10*1024*1024*1024))
func PruneToSize(maxBytes int64) PruneStrategy {
	return &pruneToSize{maxBytes: maxBytes}
}
