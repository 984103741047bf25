package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"
	platformerrors "github.com/jmgilman/seed/errors"
)

// Stage picks the final destination for dest, prepares it and runs fn to
// populate it, all while protected files are held aside.
//
// A destination is empty when it is missing or holds only protected
// files. A non-empty destination is used as is with Force, emptied first
// with ForceClean, and otherwise handled by Policy: ConflictFail returns
// TARGET_NOT_EMPTY without touching anything, ConflictUniqueSuffix stages
// into the first dest-N it can create.
//
// If fn fails, entries it added are removed again, and a destination
// created by Stage is removed entirely. Protected files are restored in
// every case. Stage returns the final path.
//
// Example:
//
//	final, err := s.Stage(ctx, "./my-app", stage.Options{Policy: stage.ConflictUniqueSuffix},
//	    func(final string) error {
//	        return extractor.Extract(ctx, src, "", final, extract.Options{})
//	    })
func (s *Stager) Stage(ctx context.Context, dest string, opts Options, fn func(final string) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", platformerrors.Wrap(err, platformerrors.CodeCanceled, "staging canceled")
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", stageError(err, "failed to resolve destination", dest)
	}

	final, claimed, err := s.finalPath(abs, opts)
	if err != nil {
		return "", err
	}

	err = s.WithProtectedFiles(ctx, final, opts, func() error {
		return s.populate(ctx, final, opts, claimed, fn)
	})
	if err != nil {
		return "", err
	}
	return final, nil
}

// finalPath applies the conflict policy. claimed reports whether the
// returned directory was just created by finalPath.
func (s *Stager) finalPath(dest string, opts Options) (string, bool, error) {
	if opts.ForceClean || opts.Force {
		return dest, false, nil
	}

	entries, err := s.contents(dest)
	if err != nil {
		return "", false, err
	}
	if len(entries) == 0 {
		return dest, false, nil
	}

	switch opts.Policy {
	case ConflictUniqueSuffix:
		final, err := claimUnique(dest)
		if err != nil {
			return "", false, err
		}
		s.logger.Info().Str("requested", dest).Str("destination", final).Msg("destination not empty, using unique suffix")
		return final, true, nil
	case ConflictFail, "":
		return "", false, platformerrors.WithContextMap(
			platformerrors.New(platformerrors.CodeTargetNotEmpty, "destination is not empty"),
			map[string]interface{}{"destination": dest, "entries": len(entries)})
	default:
		return "", false, platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown conflict policy %q", opts.Policy)
	}
}

// claimUnique creates the first missing dest-1, dest-2, ... directory. Each
// candidate is a single mkdir, so concurrent claimers never share one.
func claimUnique(dest string) (string, error) {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", dest, i)
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", stageError(err, "failed to create destination", candidate)
		}
	}
}

// contents lists dir's top-level entries that are not protected files.
// A missing dir has no contents.
func (s *Stager) contents(dir string) ([]string, error) {
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, stageError(err, "failed to read destination", dir)
	}

	var names []string
	for _, info := range infos {
		if s.isProtected(info.Name()) {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

// populate runs inside the protected scope, so dir holds no protected
// files here.
func (s *Stager) populate(ctx context.Context, dir string, opts Options, claimed bool, fn func(final string) error) error {
	if opts.ForceClean {
		if err := s.clean(dir); err != nil {
			return err
		}
	}

	before, err := s.contents(dir)
	if err != nil {
		return err
	}

	created := claimed
	if _, err := s.fs.Stat(dir); os.IsNotExist(err) {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return stageError(err, "failed to create destination", dir)
		}
		created = true
	}

	succeeded := false
	defer func() {
		if !succeeded {
			s.rollback(dir, before, created)
		}
	}()

	if err := ctx.Err(); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeCanceled, "staging canceled")
	}
	if err := fn(dir); err != nil {
		return err
	}

	succeeded = true
	return nil
}

// clean removes everything in dir, leaving dir itself.
func (s *Stager) clean(dir string) error {
	entries, err := s.contents(dir)
	if err != nil {
		return err
	}
	for _, name := range entries {
		if err := util.RemoveAll(s.fs, filepath.Join(dir, name)); err != nil {
			return stageError(err, "failed to clean destination", dir)
		}
	}
	s.logger.Debug().Str("destination", dir).Int("removed", len(entries)).Msg("cleaned destination")
	return nil
}

// rollback undoes a failed populate as far as possible.
func (s *Stager) rollback(dir string, before []string, created bool) {
	if created {
		if err := util.RemoveAll(s.fs, dir); err != nil {
			s.logger.Warn().Err(err).Str("destination", dir).Msg("failed to remove destination after failure")
		}
		return
	}

	keep := make(map[string]bool, len(before))
	for _, name := range before {
		keep[name] = true
	}

	// Protected names count too: the originals are held aside, so any
	// such entry here came from fn.
	after, err := s.fs.ReadDir(dir)
	if err != nil {
		s.logger.Warn().Err(err).Str("destination", dir).Msg("failed to inspect destination after failure")
		return
	}
	for _, info := range after {
		if keep[info.Name()] {
			continue
		}
		if err := util.RemoveAll(s.fs, filepath.Join(dir, info.Name())); err != nil {
			s.logger.Warn().Err(err).Str("path", info.Name()).Msg("failed to remove staged entry after failure")
		}
	}
}
