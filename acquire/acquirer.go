package acquire

import (
	"context"
	"time"

	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/extract"
	"github.com/jmgilman/seed/git"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/install"
	"github.com/jmgilman/seed/repospec"
	"github.com/jmgilman/seed/stage"
	"github.com/rs/zerolog"
)

// Identity used for the commit created by InitRepository.
const (
	InitAuthor  = "seed"
	InitEmail   = "seed@localhost"
	InitMessage = "Initial commit"
)

// DefaultConcurrency bounds AcquireAll when no limit is configured.
const DefaultConcurrency = 4

// Acquirer turns repository specs into populated project directories.
type Acquirer struct {
	store       *cache.Store
	resolver    *repospec.Resolver
	stager      *stage.Stager
	extractor   *extract.Extractor
	installer   install.Installer
	logger      zerolog.Logger
	hook        StateHook
	concurrency int
	now         func() time.Time
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithResolver sets the provider resolver.
func WithResolver(r *repospec.Resolver) Option {
	return func(a *Acquirer) {
		a.resolver = r
	}
}

// WithStager sets the directory stager.
func WithStager(s *stage.Stager) Option {
	return func(a *Acquirer) {
		a.stager = s
	}
}

// WithExtractor sets the subtree extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(a *Acquirer) {
		a.extractor = e
	}
}

// WithInstaller sets the dependency installer used when Install is set.
func WithInstaller(i install.Installer) Option {
	return func(a *Acquirer) {
		a.installer = i
	}
}

// WithLogger sets the logger. Components created by New inherit it.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

// WithStateHook registers a hook called on every state transition.
func WithStateHook(hook StateHook) Option {
	return func(a *Acquirer) {
		a.hook = hook
	}
}

// WithConcurrency bounds the number of parallel acquisitions in
// AcquireAll.
func WithConcurrency(n int) Option {
	return func(a *Acquirer) {
		a.concurrency = n
	}
}

// WithClock sets the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		a.now = now
	}
}

// New returns an Acquirer backed by store. Collaborators not set through
// options are created with their defaults.
//
// Example:
//
//	store, _ := cache.NewStore(root)
//	a := acquire.New(store, acquire.WithLogger(logger))
//	res, err := a.Acquire(ctx, "github:acme/starter#v2/packages/web", "./web", acquire.FetchOptions{})
func New(store *cache.Store, opts ...Option) *Acquirer {
	a := &Acquirer{
		store:       store,
		logger:      zerolog.Nop(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.resolver == nil {
		a.resolver = repospec.NewResolver(nil)
	}
	if a.stager == nil {
		a.stager = stage.New(stage.WithLogger(a.logger))
	}
	if a.extractor == nil {
		a.extractor = extract.New(extract.WithLogger(a.logger))
	}
	if a.installer == nil {
		a.installer = install.NewPackageManagerInstaller(install.WithLogger(a.logger))
	}
	return a
}

// Store returns the cache store.
func (a *Acquirer) Store() *cache.Store {
	return a.store
}

// Resolver returns the provider resolver.
func (a *Acquirer) Resolver() *repospec.Resolver {
	return a.resolver
}

// Acquire fetches the tree named by input into dest.
//
// The repository is synchronized into the cache, then the requested
// subtree is copied into the staged destination while protected files are
// held aside. On failure the destination is left as it was found, apart
// from conflicts resolved on protected files, and the returned error
// carries the failing state along with the spec and destination.
func (a *Acquirer) Acquire(ctx context.Context, input, dest string, opts FetchOptions) (*DownloadResult, error) {
	r := &run{
		Acquirer: a,
		input:    input,
		dest:     dest,
		logger:   a.logger.With().Str("spec", input).Str("destination", dest).Logger(),
	}

	start := a.now()
	res, err := r.execute(ctx, opts)
	if err != nil {
		return nil, r.fail(err)
	}
	res.Duration = a.now().Sub(start)

	r.logger.Info().
		Str("path", res.LocalPath).
		Str("revision", res.Revision).
		Bool("cache_hit", res.CacheHit).
		Dur("duration", res.Duration).
		Msg("acquired repository")
	return res, nil
}

// run carries the state of a single acquisition.
type run struct {
	*Acquirer

	input  string
	dest   string
	state  State
	logger zerolog.Logger
}

// enter moves to s. Cancellation is observed at every transition.
func (r *run) enter(ctx context.Context, s State) error {
	r.notify(s)
	if err := ctx.Err(); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeCanceled, "acquisition canceled")
	}
	return nil
}

func (r *run) notify(s State) {
	r.state = s
	r.logger.Debug().Str("state", string(s)).Msg("state transition")
	if r.hook != nil {
		r.hook(r.input, s)
	}
}

func (r *run) fail(err error) error {
	failed := r.state
	r.notify(StateFailed)
	return platformerrors.WithContextMap(err, map[string]interface{}{
		"state":       string(failed),
		"spec":        r.input,
		"destination": r.dest,
	})
}

func (r *run) execute(ctx context.Context, opts FetchOptions) (*DownloadResult, error) {
	if err := r.enter(ctx, StateParsing); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, invalidOptions(err)
	}
	spec, err := repospec.Parse(r.input)
	if err != nil {
		return nil, err
	}
	for _, warning := range spec.Warnings {
		r.logger.Warn().Msg(warning)
	}

	if err := r.enter(ctx, StateResolving); err != nil {
		return nil, err
	}
	url, err := r.resolver.Resolve(spec)
	if err != nil {
		return nil, err
	}
	req := cache.Request{
		URL:  url,
		Key:  cache.Key{Provider: spec.CacheProvider(), Repo: spec.Repo, Ref: spec.Ref},
		Auth: git.TokenAuth(opts.Token),
	}

	if err := r.enter(ctx, StateStagingPre); err != nil {
		return nil, err
	}

	var (
		entry     *cache.Entry
		extracted *extract.Result
	)
	final, err := r.stager.Stage(ctx, r.dest, opts.stageOptions(), func(final string) error {
		r.dest = final

		if err := r.enter(ctx, StateCacheSync); err != nil {
			return err
		}
		var err error
		entry, err = r.store.EnsureFresh(ctx, req, cache.Policy{
			Offline:       opts.Offline,
			PreferOffline: opts.PreferOffline,
		})
		if err != nil {
			return err
		}

		if err := r.enter(ctx, StateExtracting); err != nil {
			return err
		}
		err = r.store.Read(ctx, req.Key, func(path string) error {
			var err error
			extracted, err = r.extractor.Extract(ctx, path, spec.Subdir, final,
				extract.Options{PreserveHistory: opts.PreserveHistory})
			return err
		})
		if err != nil {
			return err
		}

		if opts.InitRepository {
			if err := r.initRepository(final, opts.PreserveHistory && spec.Subdir == ""); err != nil {
				return err
			}
		}

		return r.enter(ctx, StateStagingPost)
	})
	if err != nil {
		return nil, err
	}
	r.dest = final

	if opts.Install {
		if err := r.enter(ctx, StateInstalling); err != nil {
			return nil, err
		}
		if err := r.installer.Install(ctx, final); err != nil {
			return nil, err
		}
	}

	r.notify(StateDone)
	return &DownloadResult{
		SourceSpec:    r.input,
		CanonicalSpec: spec.String(),
		LocalPath:     final,
		Revision:      entry.Revision,
		CacheHit:      entry.CacheHit(),
		Size:          extracted.Bytes,
	}, nil
}

// initRepository commits the extracted tree into a new repository.
func (r *run) initRepository(dir string, historyCopied bool) error {
	if historyCopied || git.IsValid(dir) {
		r.logger.Debug().Str("path", dir).Msg("destination already holds a repository, skipping init")
		return nil
	}

	repo, err := git.Init(dir)
	if err != nil {
		return err
	}
	if err := repo.AddAll(); err != nil {
		return err
	}
	hash, err := repo.CreateCommit(git.CommitOptions{
		Author:     InitAuthor,
		Email:      InitEmail,
		Message:    InitMessage,
		AllowEmpty: true,
	})
	if err != nil {
		return err
	}

	r.logger.Debug().Str("path", dir).Str("commit", hash).Msg("initialized repository")
	return nil
}
