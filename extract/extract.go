// Package extract copies a tree, or a subtree of it, out of a cached
// checkout into a destination directory.
package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/rs/zerolog"
)

// gitDir is skipped unless history is preserved.
const gitDir = ".git"

// Options controls a single extraction.
type Options struct {
	// PreserveHistory copies the .git directory along with the tree. It
	// only applies when the whole tree is extracted.
	PreserveHistory bool
}

// Result summarizes an extraction.
type Result struct {
	Files int   // regular files and symlinks copied
	Bytes int64 // bytes of regular file content copied
}

// Extractor copies trees between directories on a billy filesystem.
type Extractor struct {
	fs     billy.Filesystem
	logger zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFilesystem sets the filesystem, rooted at "/". Defaults to the OS.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(e *Extractor) {
		e.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{fs: osfs.New("/"), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract copies src/subdir (or all of src when subdir is empty) into
// dest, preserving file modes and symlinks. subdir is resolved inside src
// without following links out of it; a missing or escaping subdir is
// SUBDIR_NOT_FOUND.
//
// Example:
//
//	res, err := extract.New().Extract(ctx, entry.Path, "packages/web", "./web", extract.Options{})
func (e *Extractor) Extract(ctx context.Context, src, subdir, dest string, opts Options) (*Result, error) {
	root, err := e.resolve(src, subdir)
	if err != nil {
		return nil, err
	}
	skipGit := !opts.PreserveHistory || root != filepath.Clean(src)

	if err := e.fs.MkdirAll(dest, 0o755); err != nil {
		return nil, extractError(err, "failed to create destination", dest)
	}

	res := &Result{}
	err = util.Walk(e.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return platformerrors.Wrap(err, platformerrors.CodeCanceled, "extraction canceled")
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if skipGit && rel == gitDir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return e.copyEntry(path, filepath.Join(dest, rel), info, res)
	})
	if err != nil {
		if platformerrors.GetCode(err) == platformerrors.CodeCanceled {
			return nil, err
		}
		return nil, extractError(err, "failed to copy tree", dest)
	}

	e.logger.Debug().
		Str("source", root).
		Str("destination", dest).
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Msg("extracted tree")
	return res, nil
}

// resolve returns the directory to copy from.
func (e *Extractor) resolve(src, subdir string) (string, error) {
	src = filepath.Clean(src)
	subdir = strings.Trim(filepath.FromSlash(subdir), string(filepath.Separator))
	if subdir == "" || subdir == "." {
		return src, nil
	}

	notFound := func(cause error) error {
		return platformerrors.WrapWithContext(cause, platformerrors.CodeSubdirNotFound,
			"subdirectory not found in repository",
			map[string]interface{}{"subdir": filepath.ToSlash(subdir)})
	}

	if clean := filepath.Clean(subdir); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", notFound(os.ErrNotExist)
	}

	full, err := securejoin.SecureJoin(src, subdir)
	if err != nil {
		return "", notFound(err)
	}

	info, err := e.fs.Stat(full)
	if err != nil {
		return "", notFound(err)
	}
	if !info.IsDir() {
		return "", notFound(os.ErrNotExist)
	}
	return full, nil
}

func (e *Extractor) copyEntry(src, dst string, info os.FileInfo, res *Result) error {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return e.fs.MkdirAll(dst, mode.Perm())

	case mode&os.ModeSymlink != 0:
		target, err := e.fs.Readlink(src)
		if err != nil {
			return err
		}
		if err := e.fs.Remove(dst); err != nil && !os.IsNotExist(err) {
			return err
		}
		res.Files++
		return e.fs.Symlink(target, dst)

	case mode.IsRegular():
		n, err := e.copyFile(src, dst, mode.Perm())
		if err != nil {
			return err
		}
		res.Files++
		res.Bytes += n
		return nil

	default:
		e.logger.Debug().Str("path", src).Str("mode", mode.String()).Msg("skipping special file")
		return nil
	}
}

func (e *Extractor) copyFile(src, dst string, perm os.FileMode) (int64, error) {
	in, err := e.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := e.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	// OpenFile is subject to the umask.
	if ch, ok := e.fs.(billy.Change); ok {
		if err := ch.Chmod(dst, perm); err != nil {
			return n, err
		}
	}
	return n, nil
}

func extractError(err error, message, path string) error {
	return platformerrors.WrapWithContext(err, platformerrors.CodeStageFailed, message,
		map[string]interface{}{"path": path})
}
