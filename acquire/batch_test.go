package acquire_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmgilman/seed/acquire"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAll(t *testing.T) {
	f := newFixture(t, acquire.WithConcurrency(2))

	reqs := []acquire.Request{
		{Spec: "acme/starter", Destination: filepath.Join(f.work, "one")},
		{Spec: "acme/starter/packages/web", Destination: filepath.Join(f.work, "two")},
		{Spec: "acme/starter/packages/missing", Destination: filepath.Join(f.work, "three")},
		{Spec: "github:acme/starter#v2/packages/api", Destination: filepath.Join(f.work, "four")},
	}

	results := f.acquirer.AcquireAll(context.Background(), reqs)
	require.Len(t, results, len(reqs))

	for i, r := range results {
		assert.Equal(t, reqs[i], r.Request)
	}

	require.NoError(t, results[0].Err)
	assert.FileExists(t, filepath.Join(f.work, "one", "README.md"))
	require.NoError(t, results[1].Err)
	assert.FileExists(t, filepath.Join(f.work, "two", "index.js"))
	require.NoError(t, results[3].Err)
	assert.FileExists(t, filepath.Join(f.work, "four", "main.go"))

	failed := acquire.Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, reqs[2], failed[0].Request)
	assert.Equal(t, platformerrors.CodeSubdirNotFound, platformerrors.GetCode(failed[0].Err))
	assert.NoDirExists(t, filepath.Join(f.work, "three"))
}

func TestAcquireAll_Empty(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.acquirer.AcquireAll(context.Background(), nil))
}
