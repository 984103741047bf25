// Package testutil builds on-disk repositories that tests clone from
// through go-git's file transport.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/jmgilman/seed/git"
	"github.com/stretchr/testify/require"
)

// Commit identity used by fixtures.
const (
	TestAuthor = "Test User"
	TestEmail  = "test@example.com"
)

// SourceRepo is a repository on disk standing in for a remote.
type SourceRepo struct {
	t    testing.TB
	Path string
	Repo *git.Repository
}

// NewSourceRepo creates a repository at path with files committed on main.
func NewSourceRepo(t testing.TB, path string, files map[string]string) *SourceRepo {
	t.Helper()

	repo, err := git.Init(path)
	require.NoError(t, err)

	s := &SourceRepo{t: t, Path: repo.Path(), Repo: repo}
	s.Commit(files, "Initial commit")
	return s
}

// URL returns the value to clone the repository from.
func (s *SourceRepo) URL() string {
	return s.Path
}

// Commit writes files and commits every change in the working tree.
// Returns the new commit hash.
func (s *SourceRepo) Commit(files map[string]string, message string) string {
	s.t.Helper()

	WriteFiles(s.t, s.Path, files)
	require.NoError(s.t, s.Repo.AddAll())

	hash, err := s.Repo.CreateCommit(git.CommitOptions{
		Author:     TestAuthor,
		Email:      TestEmail,
		Message:    message,
		AllowEmpty: true,
	})
	require.NoError(s.t, err)
	return hash
}

// Remove deletes paths from the working tree and commits the removal.
func (s *SourceRepo) Remove(message string, paths ...string) string {
	s.t.Helper()

	for _, p := range paths {
		require.NoError(s.t, os.RemoveAll(filepath.Join(s.Path, filepath.FromSlash(p))))
	}
	return s.Commit(nil, message)
}

// Tag creates a tag at HEAD. A non-empty message makes it annotated.
func (s *SourceRepo) Tag(name, message string) {
	s.t.Helper()

	head := s.Head()
	var opts *gogit.CreateTagOptions
	if message != "" {
		opts = &gogit.CreateTagOptions{
			Tagger:  &object.Signature{Name: TestAuthor, Email: TestEmail, When: time.Now()},
			Message: message,
		}
	}
	_, err := s.Repo.Underlying().CreateTag(name, plumbing.NewHash(head), opts)
	require.NoError(s.t, err)
}

// Branch creates a branch at HEAD without switching to it.
func (s *SourceRepo) Branch(name string) {
	s.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(s.Head()))
	require.NoError(s.t, s.Repo.Underlying().Storer.SetReference(ref))
}

// Head returns the commit hash HEAD points to.
func (s *SourceRepo) Head() string {
	s.t.Helper()

	hash, err := s.Repo.Head()
	require.NoError(s.t, err)
	return hash.String()
}

// WriteFiles creates files under dir, making parent directories as needed.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// ReadTree returns every regular file under dir keyed by slash path,
// skipping .git.
func ReadTree(t testing.TB, dir string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}
