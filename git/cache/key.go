package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
	"strings"

	platformerrors "github.com/jmgilman/seed/errors"
)

// hashSep separates a lossy segment from the hash of its raw value. It is
// never produced by sanitize, so hashed segments cannot equal plain ones.
const hashSep = "@"

// String returns the key in "provider/repoName/ref" form, which is also
// the entry's path relative to the cache root.
func (k Key) String() string {
	return path.Join(k.segments()...)
}

// RepoName returns the repository path flattened into one path segment.
// A path that cannot be recovered from the flattened form gets a short
// hash of the original appended.
//
// Example:
//
//	cache.Key{Repo: "acme/starter"}.RepoName() // "acme-starter"
//	cache.Key{Repo: "acme/foo-bar"}.RepoName() // "acme-foo-bar@<hash>"
func (k Key) RepoName() string {
	flat := strings.ReplaceAll(k.Repo, "/", "-")
	if strings.Contains(k.Repo, "-") {
		return sanitize(flat) + hashSep + shortHash(k.Repo)
	}
	return segment(flat, k.Repo)
}

func (k Key) segments() []string {
	return []string{segment(k.Provider, k.Provider), k.RepoName(), segment(k.Ref, k.Ref)}
}

func (k Key) validate() error {
	if k.Provider == "" || k.Repo == "" || k.Ref == "" {
		return platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "cache key requires provider, repository and ref"),
			"key", k.String())
	}
	return nil
}

// segment returns s unchanged when it is already a safe path segment and
// otherwise its sanitized form tagged with a hash of raw. Distinct raw
// values therefore never share a directory.
func segment(s, raw string) string {
	if clean := sanitize(s); clean == s {
		return clean
	}
	return sanitize(s) + hashSep + shortHash(raw)
}

func shortHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:4])
}

// sanitize maps s onto a single safe path segment. Anything outside
// [A-Za-z0-9._-] becomes '-'; the special names "." and ".." are escaped.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	out := b.String()
	switch out {
	case "":
		return "_"
	case ".", "..":
		return strings.Repeat("_", len(out))
	}
	return out
}

// Path returns the directory of the entry for key.
func (s *Store) Path(key Key) string {
	return filepath.Join(append([]string{s.root}, key.segments()...)...)
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) lockPath(key Key) string {
	seg := key.segments()
	return s.lockPathFor(seg[0], seg[1], seg[2])
}

// lockPathFor returns the lock file guarding the entry directory
// <provider>/<repoName>/<ref>, given as on-disk segments.
func (s *Store) lockPathFor(provider, repoName, ref string) string {
	return filepath.Join(s.root, lockDirName, provider, repoName, ref+".lock")
}
