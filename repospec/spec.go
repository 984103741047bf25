package repospec

import (
	"fmt"
	"regexp"
	"strings"

	platformerrors "github.com/jmgilman/seed/errors"
)

// DefaultRef is the ref used when a spec names none.
const DefaultRef = "main"

// RepoSpec identifies a repository, a ref within it and an optional
// subdirectory to extract.
type RepoSpec struct {
	// Provider is the hosting provider token, or "" when none was given.
	Provider string

	// Repo is the repository path, normally "owner/name".
	Repo string

	// Ref is a branch, tag or commit hash. Never empty after Parse.
	Ref string

	// Subdir is a slash-separated path inside the repository without a
	// leading slash, or "" for the whole tree.
	Subdir string

	// Warnings explains any guesswork Parse had to do.
	Warnings []string
}

// shorthand matches [provider:]owner/repo[#ref][/subdir]. The repository is
// the first two path segments, so owner/repo/sub is a subdirectory.
var shorthand = regexp.MustCompile(`^(?:(?P<provider>[A-Za-z0-9_-]+):)?(?P<repo>[^/#:]+/[^/#]+)(?:#(?P<ref>[^/]+))?(?P<subdir>/.*)?$`)

// scheme matches a URL scheme such as "https://" or "git+ssh://".
var scheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// hosts maps hosting domains to provider tokens.
var hosts = []struct {
	prefix   string
	provider string
}{
	{"github.com/", ProviderGitHub},
	{"www.github.com/", ProviderGitHub},
	{"gitlab.com/", ProviderGitLab},
	{"www.gitlab.com/", ProviderGitLab},
	{"bitbucket.org/", ProviderBitbucket},
	{"www.bitbucket.org/", ProviderBitbucket},
	{"git.sr.ht/~", ProviderSourcehut},
}

// Parse reduces input to a RepoSpec. It accepts shorthand
// ("owner/repo", "owner/repo#ref", "provider:owner/repo#ref/subdir",
// "owner/repo/subdir") and hosting URLs, including GitHub and GitLab
// browse URLs ("https://github.com/o/r/tree/v2/docs").
//
// Input that fits none of these forms is taken literally as the
// repository path with the default ref, and a warning is recorded.
// Only empty input is an error.
//
// Example:
//
//	spec, err := repospec.Parse("github:acme/starter#v2/packages/web")
//	// spec.Repo == "acme/starter", spec.Ref == "v2", spec.Subdir == "packages/web"
func Parse(input string) (RepoSpec, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return RepoSpec{}, platformerrors.New(platformerrors.CodeInvalidSpec, "repository spec is empty")
	}

	if spec, ok := parseURL(s); ok {
		return spec, nil
	}
	if spec, ok := parseShorthand(s); ok {
		return spec, nil
	}

	return RepoSpec{
		Repo: s,
		Ref:  DefaultRef,
		Warnings: []string{
			fmt.Sprintf("%q is not in owner/repo form; using it as the repository path", s),
		},
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) RepoSpec {
	spec, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return spec
}

func parseShorthand(s string) (RepoSpec, bool) {
	m := shorthand.FindStringSubmatch(s)
	if m == nil {
		return RepoSpec{}, false
	}

	spec := RepoSpec{
		Provider: strings.ToLower(m[shorthand.SubexpIndex("provider")]),
		Repo:     strings.TrimSuffix(m[shorthand.SubexpIndex("repo")], ".git"),
		Ref:      m[shorthand.SubexpIndex("ref")],
		Subdir:   cleanSubdir(m[shorthand.SubexpIndex("subdir")]),
	}
	if spec.Ref == "" {
		spec.Ref = DefaultRef
	}
	return spec, true
}

// parseURL handles URLs on known hosts, with or without a scheme.
func parseURL(s string) (RepoSpec, bool) {
	rest := scheme.ReplaceAllString(s, "")
	if i := strings.Index(rest, "@"); i >= 0 && i < strings.IndexAny(rest+"/", "/:") {
		rest = rest[i+1:] // user info, e.g. git@github.com:o/r
	}
	// scp-like SSH form
	rest = strings.Replace(rest, ":", "/", 1)

	var provider string
	for _, h := range hosts {
		if strings.HasPrefix(strings.ToLower(rest), h.prefix) {
			provider = h.provider
			rest = rest[len(h.prefix):]
			break
		}
	}
	if provider == "" {
		return RepoSpec{}, false
	}

	// A fragment reads like shorthand: #ref, then an optional /subdir.
	ref, fragSubdir := "", ""
	if i := strings.Index(rest, "#"); i >= 0 {
		ref = rest[i+1:]
		rest = rest[:i]
		if j := strings.Index(ref, "/"); j >= 0 {
			ref, fragSubdir = ref[:j], ref[j+1:]
		}
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		rest = rest[:i]
	}

	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return RepoSpec{}, false
	}

	spec := RepoSpec{
		Provider: provider,
		Repo:     parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"),
		Ref:      ref,
	}

	tail := parts[2:]
	switch {
	case len(tail) >= 2 && tail[0] == "tree":
		spec.Ref, tail = tail[1], tail[2:]
	case len(tail) >= 3 && tail[0] == "-" && tail[1] == "tree":
		spec.Ref, tail = tail[2], tail[3:]
	case len(tail) >= 2 && tail[0] == "src" && provider == ProviderBitbucket:
		spec.Ref, tail = tail[1], tail[2:]
	}
	if fragSubdir != "" {
		tail = append(tail, fragSubdir)
	}
	spec.Subdir = cleanSubdir(strings.Join(tail, "/"))

	if spec.Ref == "" {
		spec.Ref = DefaultRef
	}
	return spec, true
}

func cleanSubdir(s string) string {
	return strings.TrimRight(strings.TrimLeft(strings.TrimSpace(s), "/"), "/")
}

// String returns the canonical form [provider:]repo#ref[/subdir], which
// Parse maps back to an equal spec.
func (s RepoSpec) String() string {
	var b strings.Builder
	if s.Provider != "" {
		b.WriteString(s.Provider)
		b.WriteByte(':')
	}
	b.WriteString(s.Repo)
	b.WriteByte('#')
	if s.Ref == "" {
		b.WriteString(DefaultRef)
	} else {
		b.WriteString(s.Ref)
	}
	if s.Subdir != "" {
		b.WriteByte('/')
		b.WriteString(s.Subdir)
	}
	return b.String()
}

// ProviderName returns the provider used for resolution and cache keys,
// defaulting to GitHub.
func (s RepoSpec) ProviderName() string {
	if s.Provider == "" {
		return ProviderGitHub
	}
	return s.Provider
}

// Equal reports whether two specs name the same tree, ignoring warnings.
func (s RepoSpec) Equal(o RepoSpec) bool {
	return s.Provider == o.Provider && s.Repo == o.Repo && s.Ref == o.Ref && s.Subdir == o.Subdir
}
