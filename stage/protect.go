package stage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danjacques/gofslock/fslock"
	platformerrors "github.com/jmgilman/seed/errors"
)

const (
	// maxClaimAttempts bounds the retries when an unrelated writer keeps
	// taking the holding slot between resolution and claim.
	maxClaimAttempts = 5

	lockRetryDelay = 50 * time.Millisecond
)

type heldFile struct {
	name    string
	slot    string
	release func()
}

func (s *Stager) slotMutex(slot string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		s.slots = make(map[string]*sync.Mutex)
	}
	m, ok := s.slots[slot]
	if !ok {
		m = &sync.Mutex{}
		s.slots[slot] = m
	}
	return m
}

// lockSlot takes the slot's mutex and its file lock under lockDir, so no
// other goroutine or process can claim or back up the slot until the
// returned release is called.
func (s *Stager) lockSlot(ctx context.Context, slot string) (func(), error) {
	m := s.slotMutex(slot)
	m.Lock()

	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		m.Unlock()
		return nil, stageError(err, "failed to create lock directory", s.lockDir)
	}

	sum := sha256.Sum256([]byte(slot))
	path := filepath.Join(s.lockDir, hex.EncodeToString(sum[:8])+".lock")
	handle, err := fslock.LockBlocking(path, blocker(ctx))
	if err != nil {
		m.Unlock()
		if ctx.Err() != nil {
			return nil, platformerrors.WrapWithContext(err, platformerrors.CodeCanceled,
				"gave up waiting for holding slot", map[string]interface{}{"path": slot})
		}
		return nil, stageError(err, "failed to lock holding slot", slot)
	}

	return func() {
		if err := handle.Unlock(); err != nil {
			s.logger.Warn().Err(err).Str("lock", path).Msg("failed to release slot lock")
		}
		m.Unlock()
	}, nil
}

// blocker is an fslock.Blocker that waits lockRetryDelay between attempts
// and gives up once ctx is done.
func blocker(ctx context.Context) fslock.Blocker {
	return func() error {
		timer := time.NewTimer(lockRetryDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// WithProtectedFiles moves every protected file found in dir to a holding
// slot in dir's parent, runs fn, and moves the files back, overwriting
// whatever fn put in their place. Files are restored even when fn fails
// or panics.
//
// Moves are renames, so each file exists at its original path, its slot
// or its restored path at every point.
//
// Example:
//
//	err := s.WithProtectedFiles(ctx, dest, stage.Options{}, func() error {
//	    return os.RemoveAll(filepath.Join(dest, "src"))
//	})
func (s *Stager) WithProtectedFiles(ctx context.Context, dir string, opts Options, fn func() error) (err error) {
	held, err := s.hold(ctx, dir, opts)
	if err != nil {
		return err
	}

	defer func() {
		if rerr := s.restore(dir, held); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn()
}

// hold moves protected files out of dir. On failure, files already held
// are put back.
func (s *Stager) hold(ctx context.Context, dir string, opts Options) ([]heldFile, error) {
	var held []heldFile
	for _, name := range s.protected {
		src := filepath.Join(dir, name)
		if _, err := s.fs.Lstat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			_ = s.restore(dir, held)
			return nil, stageError(err, "failed to inspect protected file", src)
		}

		release, err := s.lockSlot(ctx, filepath.Join(filepath.Dir(dir), name))
		if err != nil {
			_ = s.restore(dir, held)
			return nil, err
		}

		slot, err := s.claimSlot(ctx, filepath.Dir(dir), name, opts)
		if err != nil {
			release()
			_ = s.restore(dir, held)
			return nil, err
		}

		if err := s.fs.Rename(src, slot); err != nil {
			_ = s.fs.Remove(slot)
			release()
			_ = s.restore(dir, held)
			return nil, stageError(err, "failed to move protected file aside", src)
		}

		s.logger.Debug().Str("file", src).Str("slot", slot).Msg("holding protected file")
		held = append(held, heldFile{name: name, slot: slot, release: release})
	}
	return held, nil
}

// restore moves held files back into dir.
func (s *Stager) restore(dir string, held []heldFile) error {
	if len(held) == 0 {
		return nil
	}
	defer func() {
		for _, h := range held {
			h.release()
		}
	}()

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return stageError(err, "failed to recreate destination for protected files", dir)
	}

	var firstErr error
	for _, h := range held {
		dst := filepath.Join(dir, h.name)
		if err := s.fs.Rename(h.slot, dst); err != nil {
			s.logger.Error().Err(err).Str("slot", h.slot).Str("file", dst).Msg("failed to restore protected file")
			if firstErr == nil {
				firstErr = stageError(err, "failed to restore protected file; it was left at "+h.slot, dst)
			}
			continue
		}
		s.logger.Debug().Str("file", dst).Msg("restored protected file")
	}
	return firstErr
}

// claimSlot reserves <parent>/<name> with an exclusive create. An occupied
// slot is freed according to the conflict resolution.
func (s *Stager) claimSlot(ctx context.Context, parent, name string, opts Options) (string, error) {
	slot := filepath.Join(parent, name)
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		created, err := s.createExclusive(slot)
		if err != nil {
			return "", stageError(err, "failed to claim holding slot", slot)
		}
		if created {
			return slot, nil
		}

		resolution, err := s.resolve(ctx, Conflict{File: name, Path: slot}, opts)
		if err != nil {
			return "", err
		}

		switch resolution {
		case ResolutionDelete:
			s.logger.Info().Str("path", slot).Msg("deleting file in holding slot")
			if err := s.fs.Remove(slot); err != nil && !os.IsNotExist(err) {
				return "", stageError(err, "failed to delete file in holding slot", slot)
			}
		default:
			backup, err := s.backup(slot)
			if err != nil {
				return "", err
			}
			s.logger.Info().Str("path", slot).Str("backup", backup).Msg("backed up file in holding slot")
		}
	}
	return "", platformerrors.WithContext(
		platformerrors.New(platformerrors.CodeStageFailed, "holding slot kept being taken"),
		"path", slot)
}

func (s *Stager) resolve(ctx context.Context, conflict Conflict, opts Options) (Resolution, error) {
	if opts.SkipPrompts || s.resolver == nil {
		return ResolutionBackup, nil
	}

	resolution, err := s.resolver.Resolve(ctx, conflict)
	if err != nil {
		return "", stageError(err, "failed to resolve protected file conflict", conflict.Path)
	}
	switch resolution {
	case ResolutionDelete, ResolutionBackup:
		return resolution, nil
	default:
		return "", platformerrors.WithContext(
			platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown conflict resolution %q", resolution),
			"path", conflict.Path)
	}
}

// backup renames path to the first free path.bak, path.bak1, path.bak2, ...
// Each candidate is claimed with an exclusive create before the rename.
func (s *Stager) backup(path string) (string, error) {
	for i := 0; ; i++ {
		candidate := path + ".bak"
		if i > 0 {
			candidate = fmt.Sprintf("%s.bak%d", path, i)
		}

		created, err := s.createExclusive(candidate)
		if err != nil {
			return "", stageError(err, "failed to claim backup name", candidate)
		}
		if !created {
			continue
		}

		if err := s.fs.Rename(path, candidate); err != nil {
			_ = s.fs.Remove(candidate)
			return "", stageError(err, "failed to back up file", path)
		}
		return candidate, nil
	}
}

// createExclusive creates an empty file at path if nothing is there.
// It reports false, nil when path already exists.
func (s *Stager) createExclusive(path string) (bool, error) {
	f, err := s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, f.Close()
}

func stageError(err error, message, path string) error {
	return platformerrors.WrapWithContext(err, platformerrors.CodeStageFailed, message,
		map[string]interface{}{"path": path})
}
