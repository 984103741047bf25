package acquire_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/seed/acquire"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/git/testutil"
	"github.com/jmgilman/seed/repospec"
	"github.com/jmgilman/seed/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRemote counts network calls made through it.
type countingRemote struct {
	git.RemoteOperations

	mu    sync.Mutex
	calls int
}

func (c *countingRemote) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingRemote) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingRemote) Clone(ctx context.Context, fs billy.Filesystem, path string, opts git.CloneOptions) (*git.Repository, error) {
	c.inc()
	return c.RemoteOperations.Clone(ctx, fs, path, opts)
}

func (c *countingRemote) Fetch(ctx context.Context, repo *git.Repository, opts git.FetchOptions) error {
	c.inc()
	return c.RemoteOperations.Fetch(ctx, repo, opts)
}

func (c *countingRemote) List(ctx context.Context, url string, auth git.Auth) ([]git.Reference, error) {
	c.inc()
	return c.RemoteOperations.List(ctx, url, auth)
}

// fakeInstaller records the directories it was asked to install.
type fakeInstaller struct {
	dirs []string
	err  error
}

func (f *fakeInstaller) Install(_ context.Context, dir string) error {
	f.dirs = append(f.dirs, dir)
	return f.err
}

type fixture struct {
	src       *testutil.SourceRepo
	remote    *countingRemote
	store     *cache.Store
	installer *fakeInstaller
	acquirer  *acquire.Acquirer
	work      string
	cacheRoot string
	hosted    string
}

// newFixture serves acme/starter from disk as if it were hosted on
// GitHub. Tag v2 and branch main carry the same tree.
func newFixture(t *testing.T, opts ...acquire.Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	hosted := filepath.Join(dir, "hosted")
	src := testutil.NewSourceRepo(t, filepath.Join(hosted, "acme", "starter"), map[string]string{
		"README.md":                "starter",
		"seed.jsonc":               "template config",
		"packages/web/index.js":    "web",
		"packages/web/seed.jsonc":  "web template config",
		"packages/api/main.go":     "package main",
		"packages/web/lib/util.js": "util",
	})
	src.Tag("v2", "")

	remote := &countingRemote{RemoteOperations: git.NewRemoteOperations()}
	root := filepath.Join(dir, "cache")
	store, err := cache.NewStore(root, cache.WithRemoteOperations(remote))
	require.NoError(t, err)

	installer := &fakeInstaller{}
	resolver := repospec.NewResolver(map[string]string{
		repospec.ProviderGitHub: hosted + "/{repo}",
	})

	a := acquire.New(store, append([]acquire.Option{
		acquire.WithResolver(resolver),
		acquire.WithInstaller(installer),
	}, opts...)...)

	work := filepath.Join(dir, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))

	return &fixture{
		src:       src,
		remote:    remote,
		store:     store,
		installer: installer,
		acquirer:  a,
		work:      work,
		cacheRoot: root,
		hosted:    hosted,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func errContext(t *testing.T, err error) map[string]interface{} {
	t.Helper()
	var pe platformerrors.PlatformError
	require.ErrorAs(t, err, &pe)
	return pe.Context()
}

func TestAcquire_SubdirAtTag(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "web")

	res, err := f.acquirer.Acquire(context.Background(), "github:acme/starter#v2/packages/web", dest, acquire.FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, dest, res.LocalPath)
	assert.Equal(t, "github:acme/starter#v2/packages/web", res.SourceSpec)
	assert.Equal(t, f.src.Head(), res.Revision)
	assert.False(t, res.CacheHit)
	assert.Equal(t, int64(len("web")+len("web template config")+len("util")), res.Size)

	assert.Equal(t, map[string]string{
		"index.js":    "web",
		"seed.jsonc":  "web template config",
		"lib/util.js": "util",
	}, testutil.ReadTree(t, dest))
	assert.DirExists(t, filepath.Join(f.cacheRoot, "github", "acme-starter", "v2", ".git"))
}

func TestAcquire_PreferOfflineMakesNoNetworkCalls(t *testing.T) {
	f := newFixture(t)

	first, err := f.acquirer.Acquire(context.Background(), "acme/starter", filepath.Join(f.work, "one"), acquire.FetchOptions{})
	require.NoError(t, err)
	calls := f.remote.count()
	require.NotZero(t, calls)

	second, err := f.acquirer.Acquire(context.Background(), "acme/starter", filepath.Join(f.work, "two"),
		acquire.FetchOptions{PreferOffline: true})
	require.NoError(t, err)

	assert.Equal(t, calls, f.remote.count())
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Revision, second.Revision)
	assert.Equal(t, testutil.ReadTree(t, first.LocalPath), testutil.ReadTree(t, second.LocalPath))
}

func TestAcquire_UnchangedRefIsNotDownloadedAgain(t *testing.T) {
	f := newFixture(t)

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", filepath.Join(f.work, "one"), acquire.FetchOptions{})
	require.NoError(t, err)

	res, err := f.acquirer.Acquire(context.Background(), "acme/starter", filepath.Join(f.work, "two"), acquire.FetchOptions{})
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, "acme/starter", res.SourceSpec)
	assert.Equal(t, "acme/starter#main", res.CanonicalSpec)
}

func TestAcquire_SimilarRepositoryNamesKeepSeparateEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.NewSourceRepo(t, filepath.Join(f.hosted, "acme", "foo-bar"), map[string]string{"who.txt": "A"})
	testutil.NewSourceRepo(t, filepath.Join(f.hosted, "acme-foo", "bar"), map[string]string{"who.txt": "B"})

	first, err := f.acquirer.Acquire(ctx, "acme/foo-bar", filepath.Join(f.work, "a"), acquire.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"who.txt": "A"}, testutil.ReadTree(t, first.LocalPath))

	second, err := f.acquirer.Acquire(ctx, "acme-foo/bar", filepath.Join(f.work, "b"),
		acquire.FetchOptions{PreferOffline: true})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, map[string]string{"who.txt": "B"}, testutil.ReadTree(t, second.LocalPath))
}

func TestAcquire_OfflineWithoutCache(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "app")

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{Offline: true})
	require.Error(t, err)

	assert.Equal(t, platformerrors.CodeOfflineUnavailable, platformerrors.GetCode(err))
	assert.Equal(t, "cache_sync", errContext(t, err)["state"])
	assert.Equal(t, "acme/starter", errContext(t, err)["spec"])
	assert.Zero(t, f.remote.count())
	assert.NoDirExists(t, dest)
}

func TestAcquire_SentinelOnlyDestination(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "app")
	testutil.WriteFiles(t, dest, map[string]string{"seed.jsonc": "user config"})

	res, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, dest, res.LocalPath)
	assert.Equal(t, "user config", readFile(t, filepath.Join(dest, "seed.jsonc")))
	assert.Equal(t, "starter", readFile(t, filepath.Join(dest, "README.md")))
	assert.NoFileExists(t, filepath.Join(f.work, "seed.jsonc"))
}

func TestAcquire_FailureLeavesDestinationUntouched(t *testing.T) {
	t.Run("missing destination stays missing", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")

		_, err := f.acquirer.Acquire(context.Background(), "acme/starter/packages/missing", dest, acquire.FetchOptions{})
		require.Error(t, err)

		assert.Equal(t, platformerrors.CodeSubdirNotFound, platformerrors.GetCode(err))
		assert.Equal(t, "extracting", errContext(t, err)["state"])
		assert.NoDirExists(t, dest)
	})

	t.Run("sentinel survives", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")
		testutil.WriteFiles(t, dest, map[string]string{"seed.jsonc": "user config"})

		_, err := f.acquirer.Acquire(context.Background(), "acme/starter/packages/missing", dest, acquire.FetchOptions{})
		require.Error(t, err)

		assert.Equal(t, map[string]string{"seed.jsonc": "user config"}, testutil.ReadTree(t, dest))
		assert.NoFileExists(t, filepath.Join(f.work, "seed.jsonc"))
	})

	t.Run("forced destination keeps its files", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")
		testutil.WriteFiles(t, dest, map[string]string{"notes.txt": "mine"})

		_, err := f.acquirer.Acquire(context.Background(), "acme/starter/packages/missing", dest, acquire.FetchOptions{Force: true})
		require.Error(t, err)

		assert.Equal(t, map[string]string{"notes.txt": "mine"}, testutil.ReadTree(t, dest))
	})
}

func TestAcquire_NonEmptyDestination(t *testing.T) {
	t.Run("fail policy", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")
		testutil.WriteFiles(t, dest, map[string]string{"notes.txt": "mine"})

		_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{})
		require.Error(t, err)

		assert.Equal(t, platformerrors.CodeTargetNotEmpty, platformerrors.GetCode(err))
		assert.Equal(t, "staging_pre", errContext(t, err)["state"])
		assert.Zero(t, f.remote.count())
		assert.Equal(t, map[string]string{"notes.txt": "mine"}, testutil.ReadTree(t, dest))
	})

	t.Run("suffix policy", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")
		testutil.WriteFiles(t, dest, map[string]string{"notes.txt": "mine"})

		res, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest,
			acquire.FetchOptions{OnConflict: stage.ConflictUniqueSuffix})
		require.NoError(t, err)

		assert.Equal(t, dest+"-1", res.LocalPath)
		assert.Equal(t, "starter", readFile(t, filepath.Join(dest+"-1", "README.md")))
		assert.Equal(t, map[string]string{"notes.txt": "mine"}, testutil.ReadTree(t, dest))
	})

	t.Run("force clean", func(t *testing.T) {
		f := newFixture(t)
		dest := filepath.Join(f.work, "app")
		testutil.WriteFiles(t, dest, map[string]string{"notes.txt": "mine", "seed.jsonc": "user config"})

		_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{ForceClean: true})
		require.NoError(t, err)

		assert.NoFileExists(t, filepath.Join(dest, "notes.txt"))
		assert.Equal(t, "user config", readFile(t, filepath.Join(dest, "seed.jsonc")))
	})
}

func TestAcquire_InitRepository(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "app")

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{InitRepository: true})
	require.NoError(t, err)

	repo, err := git.Open(dest)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.NotEqual(t, f.src.Head(), head.String())

	commit, err := repo.Underlying().CommitObject(head)
	require.NoError(t, err)
	assert.Equal(t, acquire.InitMessage, commit.Message)
	assert.Equal(t, acquire.InitAuthor, commit.Author.Name)
}

func TestAcquire_PreserveHistory(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "app")

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest,
		acquire.FetchOptions{PreserveHistory: true, InitRepository: true})
	require.NoError(t, err)

	repo, err := git.Open(dest)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, f.src.Head(), head.String())
}

func TestAcquire_Install(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.work, "app")

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, f.installer.dirs)

	other := filepath.Join(f.work, "other")
	_, err = f.acquirer.Acquire(context.Background(), "acme/starter", other, acquire.FetchOptions{Install: true})
	require.NoError(t, err)
	assert.Equal(t, []string{other}, f.installer.dirs)
}

func TestAcquire_InstallFailure(t *testing.T) {
	f := newFixture(t)
	f.installer.err = platformerrors.New(platformerrors.CodeExecutionFailed, "npm install failed")
	dest := filepath.Join(f.work, "app")

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", dest, acquire.FetchOptions{Install: true})
	require.Error(t, err)

	assert.Equal(t, platformerrors.CodeExecutionFailed, platformerrors.GetCode(err))
	assert.Equal(t, "installing", errContext(t, err)["state"])
	assert.FileExists(t, filepath.Join(dest, "README.md"))
}

func TestAcquire_Errors(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		opts  acquire.FetchOptions
		code  platformerrors.ErrorCode
		state string
	}{
		{"blank spec", "   ", acquire.FetchOptions{}, platformerrors.CodeInvalidSpec, "parsing"},
		{"bad conflict policy", "acme/starter", acquire.FetchOptions{OnConflict: "merge"}, platformerrors.CodeInvalidInput, "parsing"},
		{"unknown provider", "codeberg:acme/starter", acquire.FetchOptions{}, platformerrors.CodeUnsupportedProvider, "resolving"},
		{"unknown ref", "acme/starter#nope", acquire.FetchOptions{}, platformerrors.CodeCloneFailed, "cache_sync"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			dest := filepath.Join(f.work, "app")

			_, err := f.acquirer.Acquire(context.Background(), tt.spec, dest, tt.opts)
			require.Error(t, err)

			assert.Equal(t, tt.code, platformerrors.GetCode(err))
			ctx := errContext(t, err)
			assert.Equal(t, tt.state, ctx["state"])
			assert.Equal(t, tt.spec, ctx["spec"])
			assert.NoDirExists(t, dest)
		})
	}
}

func TestAcquire_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.acquirer.Acquire(ctx, "acme/starter", filepath.Join(f.work, "app"), acquire.FetchOptions{})
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeCanceled, platformerrors.GetCode(err))
	assert.Zero(t, f.remote.count())
}

func TestAcquire_StateTransitions(t *testing.T) {
	var states []acquire.State
	f := newFixture(t, acquire.WithStateHook(func(_ string, s acquire.State) {
		states = append(states, s)
	}))

	_, err := f.acquirer.Acquire(context.Background(), "acme/starter", filepath.Join(f.work, "app"),
		acquire.FetchOptions{Install: true})
	require.NoError(t, err)

	assert.Equal(t, []acquire.State{
		acquire.StateParsing,
		acquire.StateResolving,
		acquire.StateStagingPre,
		acquire.StateCacheSync,
		acquire.StateExtracting,
		acquire.StateStagingPost,
		acquire.StateInstalling,
		acquire.StateDone,
	}, states)
	assert.True(t, states[len(states)-1].Terminal())

	states = nil
	_, err = f.acquirer.Acquire(context.Background(), "", filepath.Join(f.work, "other"), acquire.FetchOptions{})
	require.Error(t, err)
	assert.Equal(t, []acquire.State{acquire.StateParsing, acquire.StateFailed}, states)
}
