package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmgilman/seed/git/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.src.Tag("v1", "")

	_, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
	require.NoError(t, err)
	_, err = f.store.EnsureFresh(ctx, f.request("v1"), cache.Policy{})
	require.NoError(t, err)

	entries, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "main", entries[0].Ref)
	assert.Equal(t, "v1", entries[1].Ref)
	assert.Equal(t, f.src.Head(), entries[0].Revision)
	assert.Equal(t, f.src.URL(), entries[0].URL)
	assert.False(t, entries[0].CreatedAt.IsZero())

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSize)
	require.NotNil(t, stats.OldestAccess)
	require.NotNil(t, stats.NewestAccess)
}

func TestListSkipsVanishedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(entry.Path))

	entries, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndexPersistsAcrossStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
	require.NoError(t, err)

	reopened, err := cache.NewStore(f.root)
	require.NoError(t, err)
	entries, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "acme/starter", entries[0].Repo)
	assert.FileExists(t, filepath.Join(f.root, "index.json"))
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.request("main").Key

	entry, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
	require.NoError(t, err)

	require.NoError(t, f.store.Remove(ctx, key))
	assert.NoDirExists(t, entry.Path)

	entries, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, f.store.Remove(ctx, key), "removing an absent entry is a no-op")
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
	require.NoError(t, err)
	stray := filepath.Join(f.root, "gitlab", "orphan", "main")
	require.NoError(t, os.MkdirAll(stray, 0o755))

	require.NoError(t, f.store.Clear(ctx))

	assert.NoDirExists(t, filepath.Join(f.root, "github"))
	assert.NoDirExists(t, filepath.Join(f.root, "gitlab"))
	entries, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClear_WaitsForEntryLock(t *testing.T) {
	f := newFixture(t)

	locker := cache.NewFileLocker()
	store, err := cache.NewStore(f.root, cache.WithRemoteOperations(f.remote), cache.WithLocker(locker))
	require.NoError(t, err)

	inflight := filepath.Join(f.root, "gitlab", "orphan", ".main.clone-123")
	require.NoError(t, os.MkdirAll(inflight, 0o755))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	lockPath := filepath.Join(f.root, ".locks", "gitlab", "orphan", "main.lock")
	go func() {
		defer close(done)
		_ = locker.WithExclusive(context.Background(), lockPath, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.Error(t, store.Clear(ctx))
	assert.DirExists(t, inflight, "a locked clone must survive Clear")

	close(release)
	<-done

	require.NoError(t, store.Clear(context.Background()))
	assert.NoDirExists(t, filepath.Join(f.root, "gitlab"))
}

func TestPrune(t *testing.T) {
	t.Run("no strategies removes nothing", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
		require.NoError(t, err)

		removed, err := f.store.Prune(ctx)
		require.NoError(t, err)
		assert.Empty(t, removed)
	})

	t.Run("unused for", func(t *testing.T) {
		c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		f := newFixture(t, cache.WithClock(c.Now))
		ctx := context.Background()
		f.src.Tag("v1", "")

		_, err := f.store.EnsureFresh(ctx, f.request("v1"), cache.Policy{})
		require.NoError(t, err)
		c.Advance(48 * time.Hour)
		_, err = f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
		require.NoError(t, err)

		removed, err := f.store.Prune(ctx, cache.PruneUnusedFor(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, "v1", removed[0].Ref)

		entries, err := f.store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "main", entries[0].Ref)
	})

	t.Run("older than uses creation time", func(t *testing.T) {
		c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		f := newFixture(t, cache.WithClock(c.Now))
		ctx := context.Background()

		_, err := f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
		require.NoError(t, err)
		c.Advance(10 * 24 * time.Hour)
		_, err = f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{PreferOffline: true})
		require.NoError(t, err)

		removed, err := f.store.Prune(ctx, cache.PruneOlderThan(7*24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, removed, 1)
	})

	t.Run("to size evicts least recently used", func(t *testing.T) {
		c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		f := newFixture(t, cache.WithClock(c.Now))
		ctx := context.Background()
		f.src.Tag("v1", "")

		_, err := f.store.EnsureFresh(ctx, f.request("v1"), cache.Policy{})
		require.NoError(t, err)
		c.Advance(time.Hour)
		_, err = f.store.EnsureFresh(ctx, f.request("main"), cache.Policy{})
		require.NoError(t, err)

		stats, err := f.store.Stats(ctx)
		require.NoError(t, err)

		removed, err := f.store.Prune(ctx, cache.PruneToSize(stats.TotalSize-1))
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, "v1", removed[0].Ref)
	})
}
