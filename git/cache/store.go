package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git"
	"github.com/rs/zerolog"
)

// NewStore creates a Store rooted at root, creating the directory if needed.
//
// Example:
//
//	store, err := cache.NewStore("/home/me/.cache/seed/repos",
//	    cache.WithDepth(1),
//	    cache.WithLogger(logger))
func NewStore(root string, opts ...StoreOption) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to resolve cache root")
	}

	s := &Store{
		root:      abs,
		indexPath: filepath.Join(abs, indexFileName),
		fs:        osfs.New("/"),
		remoteOps: git.NewRemoteOperations(),
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = NewFileLocker()
	}

	if err := s.fs.MkdirAll(abs, 0o755); err != nil {
		return nil, platformerrors.WrapWithContext(err, platformerrors.CodeInternal,
			"failed to create cache root", map[string]interface{}{"path": abs})
	}

	return s, nil
}

func (s *Store) repoOptions(auth git.Auth) []git.RepositoryOption {
	opts := []git.RepositoryOption{
		git.WithFilesystem(s.fs),
		git.WithRemoteOperations(s.remoteOps),
	}
	if auth != nil {
		opts = append(opts, git.WithAuth(auth))
	}
	if s.progress != nil {
		opts = append(opts, git.WithProgress(s.progress))
	}
	return opts
}

// EnsureFresh makes the entry for req.Key a valid checkout of req.Key.Ref
// and returns it.
//
// Without a usable entry the repository is cloned. A valid entry is
// compared against the remote and fetched only when the ref moved. With
// policy.PreferOffline or policy.Offline a valid entry is returned without
// contacting the remote; policy.Offline with no valid entry fails with
// OFFLINE_UNAVAILABLE.
//
// Example:
//
//	entry, err := store.EnsureFresh(ctx, cache.Request{
//	    URL: "https://github.com/acme/starter.git",
//	    Key: cache.Key{Provider: "github", Repo: "acme/starter", Ref: "v2"},
//	}, cache.Policy{PreferOffline: true})
func (s *Store) EnsureFresh(ctx context.Context, req Request, policy Policy) (*Entry, error) {
	if err := req.Key.validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With().Str("key", req.Key.String()).Logger()

	if policy.Offline || policy.PreferOffline {
		entry, err := s.cached(ctx, req)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			logger.Debug().Str("revision", entry.Revision).Msg("using cached entry without network")
			s.record(ctx, req, entry)
			return entry, nil
		}
		if policy.Offline {
			return nil, platformerrors.WrapWithContext(
				platformerrors.New(platformerrors.CodeNotFound, "no valid cache entry"),
				platformerrors.CodeOfflineUnavailable,
				"offline mode requested but the repository is not cached",
				map[string]interface{}{"key": req.Key.String(), "path": s.Path(req.Key)})
		}
	}

	var entry *Entry
	err := s.withEntryLock(ctx, req.Key, func() error {
		var err error
		entry, err = s.sync(ctx, req, logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, req, entry)
	return entry, nil
}

// cached returns the entry for req if it is a valid checkout of req.URL,
// or nil.
func (s *Store) cached(ctx context.Context, req Request) (*Entry, error) {
	key := req.Key
	path := s.Path(key)
	var entry *Entry
	err := s.withEntryReadLock(ctx, key, func() error {
		repo, err := git.Open(path, git.WithFilesystem(s.fs))
		if err != nil || !sameOrigin(repo, req.URL) {
			return nil
		}
		head, err := repo.Head()
		if err != nil {
			return nil
		}
		entry = &Entry{Key: key, Path: path, Revision: head.String(), Source: SourceCache}
		return nil
	})
	return entry, err
}

// sync brings the entry up to date. The caller holds the entry lock.
func (s *Store) sync(ctx context.Context, req Request, logger zerolog.Logger) (*Entry, error) {
	path := s.Path(req.Key)

	if !git.IsValid(path, git.WithFilesystem(s.fs)) {
		if _, err := s.fs.Stat(path); err == nil {
			logger.Warn().Str("path", path).Msg("removing invalid cache entry")
			if err := util.RemoveAll(s.fs, path); err != nil {
				return nil, s.cloneError(err, req, "failed to remove invalid cache entry")
			}
		}
		return s.clone(ctx, req, logger)
	}

	repo, err := git.Open(path, s.repoOptions(req.Auth)...)
	if err != nil {
		return nil, s.fetchError(err, req, "failed to open cache entry")
	}
	if !sameOrigin(repo, req.URL) {
		origin, _ := repo.RemoteURL(git.DefaultRemoteName)
		logger.Warn().Str("origin", origin).Str("url", req.URL).Msg("cache entry belongs to another remote, recloning")
		if err := util.RemoveAll(s.fs, path); err != nil {
			return nil, s.cloneError(err, req, "failed to remove cache entry")
		}
		return s.clone(ctx, req, logger)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, s.fetchError(err, req, "failed to read cache entry HEAD")
	}

	if git.IsHash(req.Key.Ref) {
		if head.String() == req.Key.Ref {
			return &Entry{Key: req.Key, Path: path, Revision: head.String(), Source: SourceCache}, nil
		}
		// A commit cannot move, so a mismatch means the entry is damaged.
		logger.Warn().Str("head", head.String()).Msg("cache entry does not match pinned commit, recloning")
		if err := util.RemoveAll(s.fs, path); err != nil {
			return nil, s.cloneError(err, req, "failed to remove cache entry")
		}
		return s.clone(ctx, req, logger)
	}

	target, err := s.resolveRemote(ctx, req)
	if err == nil && target.Hash == head {
		logger.Debug().Str("revision", head.String()).Msg("cache entry is current")
		return &Entry{Key: req.Key, Path: path, Revision: head.String(), Source: SourceCache}, nil
	}
	if err != nil {
		logger.Debug().Err(err).Msg("staleness check failed, refreshing")
		target = git.Reference{Name: localReferenceName(repo, req.Key.Ref)}
	}

	return s.refresh(ctx, repo, req, target.Name, logger)
}

// sameOrigin reports whether repo was cloned from url.
func sameOrigin(repo *git.Repository, url string) bool {
	origin, err := repo.RemoteURL(git.DefaultRemoteName)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(origin, "/") == strings.TrimSuffix(url, "/")
}

// resolveRemote finds the branch or tag req.Key.Ref on the remote.
func (s *Store) resolveRemote(ctx context.Context, req Request) (git.Reference, error) {
	refs, err := s.remoteOps.List(ctx, req.URL, req.Auth)
	if err != nil {
		return git.Reference{}, err
	}
	target, ok := git.ResolveReference(refs, req.Key.Ref)
	if !ok {
		return git.Reference{}, platformerrors.Newf(platformerrors.CodeNotFound,
			"ref %q is not a branch or tag on the remote", req.Key.Ref)
	}
	return target, nil
}

// localReferenceName guesses what kind of ref an entry tracks when the
// remote could not tell us. Branch clones keep a symbolic HEAD, tag
// clones are detached.
func localReferenceName(repo *git.Repository, ref string) plumbing.ReferenceName {
	head, err := repo.Underlying().Reference(plumbing.HEAD, false)
	if err == nil && head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return plumbing.NewBranchReferenceName(ref)
	}
	return plumbing.NewTagReferenceName(ref)
}

// clone creates the entry from scratch. The clone is built in a temporary
// sibling directory and renamed into place once complete.
func (s *Store) clone(ctx context.Context, req Request, logger zerolog.Logger) (*Entry, error) {
	path := s.Path(req.Key)
	parent := filepath.Dir(path)

	opts := s.repoOptions(req.Auth)
	pinned := git.IsHash(req.Key.Ref)
	if !pinned {
		target, err := s.resolveRemote(ctx, req)
		if err != nil {
			return nil, s.cloneError(err, req, "failed to resolve ref")
		}
		opts = append(opts,
			git.WithReferenceName(target.Name),
			git.WithSingleBranch(),
			git.WithDepth(s.depth))
	}

	if err := s.fs.MkdirAll(parent, 0o755); err != nil {
		return nil, s.cloneError(err, req, "failed to create cache directory")
	}
	tmp, err := util.TempDir(s.fs, parent, "."+filepath.Base(path)+".clone-")
	if err != nil {
		return nil, s.cloneError(err, req, "failed to create temporary clone directory")
	}
	defer func() {
		if _, err := s.fs.Stat(tmp); err == nil {
			_ = util.RemoveAll(s.fs, tmp)
		}
	}()

	logger.Info().Str("url", req.URL).Str("ref", req.Key.Ref).Msg("cloning repository")
	repo, err := git.Clone(ctx, req.URL, tmp, opts...)
	if err != nil {
		return nil, s.cloneError(err, req, "failed to clone repository")
	}

	if pinned {
		if err := repo.CheckoutDetached(plumbing.NewHash(req.Key.Ref)); err != nil {
			return nil, s.cloneError(err, req, "failed to check out commit")
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, s.cloneError(err, req, "failed to read cloned HEAD")
	}

	if err := s.fs.Rename(tmp, path); err != nil {
		return nil, s.cloneError(err, req, "failed to move clone into cache")
	}

	return &Entry{Key: req.Key, Path: path, Revision: head.String(), Source: SourceClone}, nil
}

// refresh fetches name into repo and hard-resets the working tree to it.
func (s *Store) refresh(ctx context.Context, repo *git.Repository, req Request, name plumbing.ReferenceName, logger zerolog.Logger) (*Entry, error) {
	var spec, local string
	switch {
	case name.IsBranch():
		local = plumbing.NewRemoteReferenceName(git.DefaultRemoteName, name.Short()).String()
		spec = fmt.Sprintf("+%s:%s", name, local)
	default:
		local = name.String()
		spec = fmt.Sprintf("+%s:%s", name, name)
	}

	logger.Info().Str("url", req.URL).Str("ref", req.Key.Ref).Msg("refreshing cache entry")
	err := repo.Fetch(ctx, git.FetchOptions{
		Auth:     req.Auth,
		Depth:    s.depth,
		RefSpecs: []string{spec},
		Progress: s.progress,
	})
	if err != nil {
		return nil, s.fetchError(err, req, "failed to fetch ref")
	}

	hash, err := repo.RevParse(local)
	if err != nil {
		return nil, s.fetchError(err, req, "failed to resolve fetched ref")
	}
	if err := repo.Checkout(hash); err != nil {
		return nil, s.fetchError(err, req, "failed to reset cache entry")
	}

	return &Entry{Key: req.Key, Path: repo.Path(), Revision: hash.String(), Source: SourceFetch}, nil
}

// Read runs fn with the entry path while holding a shared lock, so the
// entry cannot be refreshed or removed underneath it.
//
// Example:
//
//	err := store.Read(ctx, key, func(path string) error {
//	    return extractor.Extract(ctx, path, "packages/web", dest, extract.Options{})
//	})
func (s *Store) Read(ctx context.Context, key Key, fn func(path string) error) error {
	if err := key.validate(); err != nil {
		return err
	}
	return s.withEntryReadLock(ctx, key, func() error {
		path := s.Path(key)
		if _, err := s.fs.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return platformerrors.WithContext(
					platformerrors.New(platformerrors.CodeNotFound, "cache entry does not exist"),
					"key", key.String())
			}
			return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to stat cache entry")
		}
		return fn(path)
	})
}

func (s *Store) cloneError(err error, req Request, message string) error {
	return platformerrors.WrapWithContext(err, platformerrors.CodeCloneFailed, message,
		map[string]interface{}{"url": req.URL, "ref": req.Key.Ref})
}

func (s *Store) fetchError(err error, req Request, message string) error {
	return platformerrors.WrapWithContext(err, platformerrors.CodeFetchFailed, message,
		map[string]interface{}{"url": req.URL, "ref": req.Key.Ref})
}
