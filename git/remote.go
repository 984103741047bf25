package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

// DefaultRemoteName is the remote created by Clone.
const DefaultRemoteName = "origin"

// RemoteOperations is the network half of the VCS capability. The go-git
// implementation is returned by NewRemoteOperations; tests substitute
// fakes to count or fail network calls.
type RemoteOperations interface {
	// Clone clones opts.URL into path on fs.
	Clone(ctx context.Context, fs billy.Filesystem, path string, opts CloneOptions) (*Repository, error)

	// Fetch downloads objects and refs into repo.
	Fetch(ctx context.Context, repo *Repository, opts FetchOptions) error

	// List returns the references advertised by the remote at url, the
	// equivalent of git ls-remote.
	List(ctx context.Context, url string, auth Auth) ([]Reference, error)
}

type goGitRemoteOps struct{}

// NewRemoteOperations returns the go-git backed RemoteOperations.
func NewRemoteOperations() RemoteOperations {
	return &goGitRemoteOps{}
}

func toAuthMethod(auth Auth) (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}
	method, ok := auth.(transport.AuthMethod)
	if !ok {
		return nil, wrapError(fmt.Errorf("unsupported auth type %T", auth), "failed to convert auth")
	}
	return method, nil
}

func (g *goGitRemoteOps) Clone(ctx context.Context, fs billy.Filesystem, path string, opts CloneOptions) (*Repository, error) {
	if err := fs.MkdirAll(path, 0o755); err != nil {
		return nil, wrapError(err, "failed to create clone directory")
	}

	scoped, storage, err := storageFor(fs, path)
	if err != nil {
		return nil, err
	}

	auth, err := toAuthMethod(opts.Auth)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.CloneContext(ctx, storage, scoped, &gogit.CloneOptions{
		URL:           opts.URL,
		Auth:          auth,
		RemoteName:    DefaultRemoteName,
		ReferenceName: opts.ReferenceName,
		SingleBranch:  opts.SingleBranch,
		Depth:         opts.Depth,
		Progress:      opts.Progress,
	})
	if err != nil {
		return nil, wrapError(err, "failed to clone repository")
	}

	return &Repository{path: path, repo: repo, fs: scoped, remoteOps: g}, nil
}

func (g *goGitRemoteOps) Fetch(ctx context.Context, repo *Repository, opts FetchOptions) error {
	remoteName := opts.RemoteName
	if remoteName == "" {
		remoteName = DefaultRemoteName
	}

	auth, err := toAuthMethod(opts.Auth)
	if err != nil {
		return err
	}

	refSpecs := make([]config.RefSpec, 0, len(opts.RefSpecs))
	for _, spec := range opts.RefSpecs {
		rs := config.RefSpec(spec)
		if err := rs.Validate(); err != nil {
			return wrapError(err, fmt.Sprintf("invalid refspec %q", spec))
		}
		refSpecs = append(refSpecs, rs)
	}

	err = repo.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   refSpecs,
		Auth:       auth,
		Depth:      opts.Depth,
		Progress:   opts.Progress,
		Tags:       gogit.NoTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return wrapError(err, "failed to fetch from remote")
	}
	return nil
}

func (g *goGitRemoteOps) List(ctx context.Context, url string, auth Auth) ([]Reference, error) {
	method, err := toAuthMethod(auth)
	if err != nil {
		return nil, err
	}

	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: DefaultRemoteName,
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{
		Auth:          method,
		PeelingOption: gogit.AppendPeeled,
	})
	if err != nil {
		return nil, wrapError(err, "failed to list remote references")
	}

	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		out = append(out, Reference{Name: ref.Name(), Hash: ref.Hash()})
	}
	return out, nil
}

// LsRemote lists the references advertised at url.
//
// Example:
//
//	refs, err := git.LsRemote(ctx, "https://github.com/acme/starter.git")
func LsRemote(ctx context.Context, url string, opts ...RepositoryOption) ([]Reference, error) {
	options := applyOptions(opts)
	//nolint:wrapcheck // implementations wrap their own errors
	return options.remoteOps.List(ctx, url, options.auth)
}

// Fetch downloads objects and refs from the remote.
//
// Example:
//
//	err := repo.Fetch(ctx, git.FetchOptions{
//	    RefSpecs: []string{"+refs/heads/main:refs/remotes/origin/main"},
//	    Depth:    1,
//	})
func (r *Repository) Fetch(ctx context.Context, opts FetchOptions) error {
	//nolint:wrapcheck // implementations wrap their own errors
	return r.remoteOps.Fetch(ctx, r, opts)
}

// RemoteURL returns the first URL configured for the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", wrapError(err, "failed to read remote")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", wrapError(gogit.ErrMissingURL, "failed to read remote")
	}
	return urls[0], nil
}
