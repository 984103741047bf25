package git

import (
	"context"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// DefaultBranch is the branch Init points HEAD at.
const DefaultBranch = "main"

func applyOptions(opts []RepositoryOption) *repositoryOptions {
	options := &repositoryOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.fs == nil {
		options.fs = osfs.New("/")
	}
	if options.remoteOps == nil {
		options.remoteOps = NewRemoteOperations()
	}
	return options
}

// normalizePath makes a relative path absolute when fs is rooted at "/".
func normalizePath(fs billy.Filesystem, path string) string {
	if filepath.IsAbs(path) || fs.Root() != string(filepath.Separator) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// storageFor scopes fs to path and returns the worktree filesystem and the
// object storage kept in its .git directory.
func storageFor(fs billy.Filesystem, path string) (billy.Filesystem, *filesystem.Storage, error) {
	scoped, err := fs.Chroot(path)
	if err != nil {
		return nil, nil, wrapError(err, "failed to scope filesystem to path")
	}
	dotGit, err := scoped.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, nil, wrapError(err, "failed to scope filesystem to .git")
	}
	return scoped, filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault()), nil
}

// Init creates a repository with a working tree at path.
//
// Example:
//
//	repo, err := git.Init("/tmp/project")
func Init(path string, opts ...RepositoryOption) (*Repository, error) {
	options := applyOptions(opts)
	path = normalizePath(options.fs, path)

	if err := options.fs.MkdirAll(path, 0o755); err != nil {
		return nil, wrapError(err, "failed to create repository directory")
	}

	scoped, storage, err := storageFor(options.fs, path)
	if err != nil {
		return nil, err
	}

	branch := options.defaultBranch
	if branch == "" {
		branch = DefaultBranch
	}
	repo, err := gogit.InitWithOptions(storage, scoped, gogit.InitOptions{
		DefaultBranch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return nil, wrapError(err, "failed to initialize repository")
	}

	return &Repository{path: path, repo: repo, fs: scoped, remoteOps: options.remoteOps}, nil
}

// Open opens the repository with a working tree at path.
// Returns a NOT_FOUND error when path holds no repository.
func Open(path string, opts ...RepositoryOption) (*Repository, error) {
	options := applyOptions(opts)
	path = normalizePath(options.fs, path)

	if _, err := options.fs.Stat(filepath.Join(path, gogit.GitDirName)); err != nil {
		return nil, wrapError(gogit.ErrRepositoryNotExists, "failed to open repository")
	}

	scoped, storage, err := storageFor(options.fs, path)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.Open(storage, scoped)
	if err != nil {
		return nil, wrapError(err, "failed to open repository")
	}

	return &Repository{path: path, repo: repo, fs: scoped, remoteOps: options.remoteOps}, nil
}

// IsValid reports whether path holds a repository whose HEAD resolves to a
// commit. Interrupted clones fail this check.
func IsValid(path string, opts ...RepositoryOption) bool {
	repo, err := Open(path, opts...)
	if err != nil {
		return false
	}
	_, err = repo.Head()
	return err == nil
}

// Clone clones url into path, which should not exist or be empty.
//
// Examples:
//
//	// Shallow clone of a tag
//	repo, err := git.Clone(ctx, "https://github.com/acme/starter.git", dir,
//	    git.WithReferenceName(plumbing.NewTagReferenceName("v2")),
//	    git.WithDepth(1),
//	    git.WithSingleBranch())
//
//	// Clone through a fake for tests
//	repo, err := git.Clone(ctx, url, dir, git.WithRemoteOperations(fake))
func Clone(ctx context.Context, url, path string, opts ...RepositoryOption) (*Repository, error) {
	options := applyOptions(opts)
	path = normalizePath(options.fs, path)

	//nolint:wrapcheck // implementations wrap their own errors
	return options.remoteOps.Clone(ctx, options.fs, path, CloneOptions{
		URL:           url,
		Auth:          options.auth,
		Depth:         options.depth,
		SingleBranch:  options.singleBranch,
		ReferenceName: options.referenceName,
		Progress:      options.progress,
	})
}

// Path returns the repository's working tree path.
func (r *Repository) Path() string {
	return r.path
}

// Underlying returns the go-git repository for operations not wrapped here.
func (r *Repository) Underlying() *gogit.Repository {
	return r.repo
}

// Filesystem returns the working tree filesystem.
func (r *Repository) Filesystem() billy.Filesystem {
	return r.fs
}
