package git_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	repo, err := git.Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, repo.AddAll())

	hash, err := repo.CreateCommit(git.CommitOptions{
		Author:  "seed",
		Email:   "seed@localhost",
		Message: "Initial commit",
	})
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, hash, head.String())
	assert.True(t, git.IsValid(dir))
}

func TestCreateCommit_CleanTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	repo, err := git.Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, repo.AddAll())
	_, err = repo.CreateCommit(git.CommitOptions{Author: "a", Email: "a@b", Message: "first"})
	require.NoError(t, err)

	_, err = repo.CreateCommit(git.CommitOptions{Author: "a", Email: "a@b", Message: "empty"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConflict, errors.GetCode(err))

	_, err = repo.CreateCommit(git.CommitOptions{Author: "a", Email: "a@b", Message: "empty", AllowEmpty: true})
	require.NoError(t, err)
}

func TestCreateCommit_Validation(t *testing.T) {
	repo, err := git.Init(filepath.Join(t.TempDir(), "project"))
	require.NoError(t, err)

	tests := []struct {
		name string
		opts git.CommitOptions
	}{
		{"missing author", git.CommitOptions{Email: "a@b", Message: "m"}},
		{"missing email", git.CommitOptions{Author: "a", Message: "m"}},
		{"missing message", git.CommitOptions{Author: "a", Email: "a@b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateCommit(tt.opts)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestTokenAuth(t *testing.T) {
	assert.Nil(t, git.TokenAuth(""))
	assert.NotNil(t, git.TokenAuth("ghp_example"))
}
