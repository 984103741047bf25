package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/extract"
	"github.com/jmgilman/seed/git/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceTree(t *testing.T) string {
	t.Helper()

	src := filepath.Join(t.TempDir(), "src")
	testutil.WriteFiles(t, src, map[string]string{
		"README.md":                "root",
		"packages/web/index.js":    "web",
		"packages/web/lib/util.js": "util",
		"packages/api/main.go":     "api",
		".git/HEAD":                "ref: refs/heads/main",
	})
	return src
}

func TestExtract_WholeTree(t *testing.T) {
	src := sourceTree(t)
	dest := filepath.Join(t.TempDir(), "out")

	res, err := extract.New().Extract(context.Background(), src, "", dest, extract.Options{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"README.md":                "root",
		"packages/web/index.js":    "web",
		"packages/web/lib/util.js": "util",
		"packages/api/main.go":     "api",
	}, testutil.ReadTree(t, dest))
	assert.NoDirExists(t, filepath.Join(dest, ".git"))
	assert.Equal(t, 4, res.Files)
	assert.Equal(t, int64(len("root")+len("web")+len("util")+len("api")), res.Bytes)
}

func TestExtract_PreserveHistory(t *testing.T) {
	src := sourceTree(t)
	dest := filepath.Join(t.TempDir(), "out")

	_, err := extract.New().Extract(context.Background(), src, "", dest, extract.Options{PreserveHistory: true})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, ".git", "HEAD"))
}

func TestExtract_Subdir(t *testing.T) {
	for _, subdir := range []string{"packages/web", "/packages/web/", "packages//web"} {
		t.Run(subdir, func(t *testing.T) {
			src := sourceTree(t)
			dest := filepath.Join(t.TempDir(), "out")

			_, err := extract.New().Extract(context.Background(), src, subdir, dest, extract.Options{})
			require.NoError(t, err)

			assert.Equal(t, map[string]string{
				"index.js":    "web",
				"lib/util.js": "util",
			}, testutil.ReadTree(t, dest))
		})
	}
}

func TestExtract_SubdirNotFound(t *testing.T) {
	src := sourceTree(t)
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(src, "outside")))

	for _, subdir := range []string{"packages/missing", "README.md", "../src", "packages/../../etc", "outside"} {
		t.Run(subdir, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "out")

			_, err := extract.New().Extract(context.Background(), src, subdir, dest, extract.Options{})
			require.Error(t, err)
			assert.Equal(t, platformerrors.CodeSubdirNotFound, platformerrors.GetCode(err))
			assert.NoDirExists(t, dest)
		})
	}
}

func TestExtract_PreservesModesAndSymlinks(t *testing.T) {
	src := sourceTree(t)
	script := filepath.Join(src, "bin", "run.sh")
	testutil.WriteFiles(t, src, map[string]string{"bin/run.sh": "#!/bin/sh\necho hi\n"})
	require.NoError(t, os.Chmod(script, 0o755))
	require.NoError(t, os.Symlink("../README.md", filepath.Join(src, "bin", "readme")))

	dest := filepath.Join(t.TempDir(), "out")
	_, err := extract.New().Extract(context.Background(), src, "", dest, extract.Options{})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dest, "bin", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dest, "bin", "readme"))
	require.NoError(t, err)
	assert.Equal(t, "../README.md", link)
}

func TestExtract_Canceled(t *testing.T) {
	src := sourceTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extract.New().Extract(ctx, src, "", filepath.Join(t.TempDir(), "out"), extract.Options{})
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeCanceled, platformerrors.GetCode(err))
}
