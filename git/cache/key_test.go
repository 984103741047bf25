package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"main", "main"},
		{"v1.2.3", "v1.2.3"},
		{"feature/login", "feature-login"},
		{"~user", "-user"},
		{"a b:c", "a-b-c"},
		{"", "_"},
		{".", "_"},
		{"..", "__"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestKeyLayout(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	plain := Key{Provider: "github", Repo: "acme/starter", Ref: "v1.2.3"}
	assert.Equal(t, "acme-starter", plain.RepoName())
	assert.Equal(t, "github/acme-starter/v1.2.3", plain.String())
	assert.Equal(t, filepath.Join(s.Root(), "github", "acme-starter", "v1.2.3"), s.Path(plain))
	assert.Equal(t, filepath.Join(s.Root(), ".locks", "github", "acme-starter", "v1.2.3.lock"), s.lockPath(plain))

	key := Key{Provider: "sourcehut", Repo: "~sir/hut", Ref: "release/1.0"}
	repoName := "-sir-hut@" + shortHash("~sir/hut")
	ref := "release-1.0@" + shortHash("release/1.0")
	assert.Equal(t, repoName, key.RepoName())
	assert.Equal(t, "sourcehut/"+repoName+"/"+ref, key.String())
	assert.Equal(t, filepath.Join(s.Root(), "sourcehut", repoName, ref), s.Path(key))
	assert.Equal(t, filepath.Join(s.Root(), ".locks", "sourcehut", repoName, ref+".lock"), s.lockPath(key))
}

func TestKeyPathsAreDistinct(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		a, b Key
	}{
		{
			"dash in owner vs repo",
			Key{Provider: "github", Repo: "acme/foo-bar", Ref: "main"},
			Key{Provider: "github", Repo: "acme-foo/bar", Ref: "main"},
		},
		{
			"dash vs slash in repo",
			Key{Provider: "github", Repo: "acme/foo-bar", Ref: "main"},
			Key{Provider: "github", Repo: "acme/foo/bar", Ref: "main"},
		},
		{
			"slash vs dash in ref",
			Key{Provider: "url", Repo: "acme/src", Ref: "release/1.0"},
			Key{Provider: "url", Repo: "acme/src", Ref: "release-1.0"},
		},
		{
			"unsafe characters",
			Key{Provider: "github", Repo: "acme/app", Ref: "a:b"},
			Key{Provider: "github", Repo: "acme/app", Ref: "a b"},
		},
		{
			"dot names",
			Key{Provider: "github", Repo: "acme/app", Ref: "."},
			Key{Provider: "github", Repo: "acme/app", Ref: "_"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, s.Path(tt.a), s.Path(tt.b))
			assert.NotEqual(t, s.lockPath(tt.a), s.lockPath(tt.b))
		})
	}
}

func TestKeyValidate(t *testing.T) {
	assert.NoError(t, Key{Provider: "github", Repo: "a/b", Ref: "main"}.validate())
	assert.Error(t, Key{Provider: "github", Repo: "a/b"}.validate())
	assert.Error(t, Key{Repo: "a/b", Ref: "main"}.validate())
}

func TestIndexRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	idx, err := loadIndex(s.fs, s.indexPath)
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)

	idx.Entries["github/a-b/main"] = &EntryMetadata{Provider: "github", Repo: "a/b", Ref: "main", Revision: "abc"}
	require.NoError(t, idx.save(s.fs, s.indexPath))

	loaded, err := loadIndex(s.fs, s.indexPath)
	require.NoError(t, err)
	require.Contains(t, loaded.Entries, "github/a-b/main")
	assert.Equal(t, "abc", loaded.Entries["github/a-b/main"].Revision)
}
