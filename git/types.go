package git

import (
	"io"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository wraps a go-git repository checked out on a billy filesystem.
type Repository struct {
	path      string
	repo      *gogit.Repository
	fs        billy.Filesystem
	remoteOps RemoteOperations
}

// Auth is satisfied by go-git's transport.AuthMethod.
type Auth interface{}

// Reference is a named revision advertised by a remote.
type Reference struct {
	Name plumbing.ReferenceName
	Hash plumbing.Hash
}

// CloneOptions configures a clone.
type CloneOptions struct {
	URL           string
	Auth          Auth
	Depth         int                    // 0 for a full clone
	SingleBranch  bool                   // clone only ReferenceName
	ReferenceName plumbing.ReferenceName // branch or tag to check out
	Progress      io.Writer
}

// FetchOptions configures a fetch.
type FetchOptions struct {
	RemoteName string // default "origin"
	Auth       Auth
	Depth      int
	RefSpecs   []string
	Progress   io.Writer
}

// CommitOptions configures commit creation.
type CommitOptions struct {
	Author     string
	Email      string
	Message    string
	AllowEmpty bool
}

// RepositoryOption configures Init, Open and Clone.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	fs            billy.Filesystem
	remoteOps     RemoteOperations
	auth          Auth
	depth         int
	singleBranch  bool
	referenceName plumbing.ReferenceName
	defaultBranch string
	progress      io.Writer
}

// WithFilesystem sets the filesystem paths are resolved against.
// Defaults to the OS filesystem rooted at "/".
//
// Example:
//
//	repo, err := git.Init("/repo", git.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.fs = fs
	}
}

// WithRemoteOperations replaces the go-git network implementation, mostly
// so tests can count or fail network calls.
func WithRemoteOperations(ops RemoteOperations) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.remoteOps = ops
	}
}

// WithAuth sets credentials for network operations.
//
// Example:
//
//	repo, err := git.Clone(ctx, url, dir, git.WithAuth(git.TokenAuth(token)))
func WithAuth(auth Auth) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.auth = auth
	}
}

// WithDepth sets the clone depth. 0 clones full history.
func WithDepth(depth int) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.depth = depth
	}
}

// WithSingleBranch limits the clone to the requested reference.
func WithSingleBranch() RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.singleBranch = true
	}
}

// WithReferenceName sets the branch or tag to clone.
//
// Example:
//
//	repo, err := git.Clone(ctx, url, dir,
//	    git.WithReferenceName(plumbing.NewTagReferenceName("v2")),
//	    git.WithDepth(1),
//	    git.WithSingleBranch())
func WithReferenceName(ref plumbing.ReferenceName) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.referenceName = ref
	}
}

// WithProgress streams the remote's sideband progress to w.
func WithProgress(w io.Writer) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.progress = w
	}
}

// WithDefaultBranch sets the branch HEAD points to after Init. Defaults to "main".
func WithDefaultBranch(name string) RepositoryOption {
	return func(opts *repositoryOptions) {
		opts.defaultBranch = name
	}
}
