package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/seed/acquire"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/git/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir    string
	config string
	cache  string
	src    *testutil.SourceRepo
}

// newEnv writes a config serving local:<owner>/<name> from disk.
func newEnv(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "xdg-cache"))

	hosted := filepath.Join(dir, "hosted")
	src := testutil.NewSourceRepo(t, filepath.Join(hosted, "acme", "starter"), map[string]string{
		"README.md":             "starter",
		"packages/web/index.js": "web",
	})

	cacheDir := filepath.Join(dir, "cache")
	cfg := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"cache:\n  directory: "+cacheDir+"\n"+
			"providers:\n  local: "+hosted+"/{repo}\n"), 0o644))

	return &env{dir: dir, config: cfg, cache: cacheDir, src: src}
}

func (e *env) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	c := newCLI(&out, &errOut)
	c.interactive = func() bool { return false }

	cmd := c.root()
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err = cmd.ExecuteContext(context.Background())
	if err != nil {
		c.printError(err)
	}
	return out.String(), errOut.String(), err
}

func TestFetch(t *testing.T) {
	e := newEnv(t)
	dest := filepath.Join(e.dir, "web")

	out, _, err := e.run(t, "fetch", "local:acme/starter/packages/web", dest, "--json")
	require.NoError(t, err)

	var res acquire.DownloadResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, dest, res.LocalPath)
	assert.Equal(t, e.src.Head(), res.Revision)
	assert.False(t, res.CacheHit)
	assert.Equal(t, map[string]string{"index.js": "web"}, testutil.ReadTree(t, dest))

	out, _, err = e.run(t, "fetch", "local:acme/starter", filepath.Join(e.dir, "again"), "--prefer-offline", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.CacheHit)
}

func TestFetch_ErrorAsJSON(t *testing.T) {
	e := newEnv(t)

	_, stderr, err := e.run(t, "fetch", "local:acme/starter", filepath.Join(e.dir, "app"), "--offline", "--json", "--log-level", "error")
	require.Error(t, err)

	var resp platformerrors.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(stderr), &resp))
	assert.Equal(t, string(platformerrors.CodeOfflineUnavailable), resp.Code)
	assert.Equal(t, "cache_sync", resp.Context["state"])
}

func TestFetch_InvalidConflictPolicy(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run(t, "fetch", "local:acme/starter", filepath.Join(e.dir, "app"), "--on-conflict", "merge")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
}

func TestBatch(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run(t, "batch", "--json",
		"local:acme/starter="+filepath.Join(e.dir, "one"),
		"local:acme/starter/packages/missing="+filepath.Join(e.dir, "two"),
	)
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeExecutionFailed, platformerrors.GetCode(err))

	var items []batchItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Result)
	assert.Nil(t, items[0].Error)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, string(platformerrors.CodeSubdirNotFound), items[1].Error.Code)
}

func TestBatch_BadArgument(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run(t, "batch", "local:acme/starter")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
}

func TestCacheCommands(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run(t, "fetch", "local:acme/starter", filepath.Join(e.dir, "app"))
	require.NoError(t, err)

	out, _, err := e.run(t, "cache", "list", "--json")
	require.NoError(t, err)
	var entries []cache.EntryMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "acme/starter", entries[0].Repo)
	assert.Equal(t, e.src.Head(), entries[0].Revision)

	out, _, err = e.run(t, "cache", "path", "local:acme/starter")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.cache, "local", "acme-starter", "main")+"\n", out)

	out, _, err = e.run(t, "cache", "stats", "--json")
	require.NoError(t, err)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Entries)
	assert.Positive(t, stats.TotalSize)

	_, _, err = e.run(t, "cache", "prune")
	require.Error(t, err)

	_, _, err = e.run(t, "cache", "remove", "local:acme/starter")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(e.cache, "local", "acme-starter", "main"))

	_, _, err = e.run(t, "fetch", "local:acme/starter", filepath.Join(e.dir, "other"))
	require.NoError(t, err)
	_, _, err = e.run(t, "cache", "clear")
	require.NoError(t, err)

	out, _, err = e.run(t, "cache", "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestDefaultDestination(t *testing.T) {
	tests := map[string]string{
		"acme/starter":                              "starter",
		"github:acme/starter#v2/packages/web":       "web",
		"https://gitlab.com/acme/starter.git":       "starter",
		"https://github.com/acme/starter/tree/v2/x": "x",
	}
	for in, want := range tests {
		assert.Equal(t, want, defaultDestination(in), in)
	}
}

func TestPrintError(t *testing.T) {
	var stderr bytes.Buffer
	c := newCLI(&bytes.Buffer{}, &stderr)

	c.printError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", stderr.String())

	stderr.Reset()
	c.jsonOut = true
	c.printError(platformerrors.New(platformerrors.CodeTargetNotEmpty, "destination is not empty"))

	var resp platformerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(stderr.Bytes(), &resp))
	assert.Equal(t, string(platformerrors.CodeTargetNotEmpty), resp.Code)
}

func TestConfigShow(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "directory: "+e.cache)
	assert.Contains(t, out, "on_conflict: fail")

	out, _, err = e.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, e.config+"\n", out)
}
