package repospec

import (
	"path/filepath"
	"sort"
	"strings"

	platformerrors "github.com/jmgilman/seed/errors"
)

// Provider tokens.
const (
	ProviderGitHub    = "github"
	ProviderGitLab    = "gitlab"
	ProviderBitbucket = "bitbucket"
	ProviderSourcehut = "sourcehut"

	// ProviderURL is reported for specs whose repository is already a
	// clone URL or a local path.
	ProviderURL = "url"
)

// repoPlaceholder is replaced by the repository path in templates.
const repoPlaceholder = "{repo}"

var defaultTemplates = map[string]string{
	ProviderGitHub:    "https://github.com/{repo}.git",
	ProviderGitLab:    "https://gitlab.com/{repo}.git",
	ProviderBitbucket: "https://bitbucket.org/{repo}.git",
	ProviderSourcehut: "https://git.sr.ht/~{repo}",
}

// Resolver maps specs to clone URLs through per-provider templates.
// The zero value is not usable; call NewResolver.
type Resolver struct {
	templates map[string]string
}

// NewResolver returns a Resolver with the built-in templates plus
// overrides. Overrides replace built-in providers or add new ones, e.g.
// a self-hosted forge.
//
// Example:
//
//	r := repospec.NewResolver(map[string]string{
//	    "forge": "https://git.example.com/{repo}.git",
//	})
func NewResolver(overrides map[string]string) *Resolver {
	templates := make(map[string]string, len(defaultTemplates)+len(overrides))
	for k, v := range defaultTemplates {
		templates[k] = v
	}
	for k, v := range overrides {
		templates[strings.ToLower(k)] = v
	}
	return &Resolver{templates: templates}
}

// Providers returns the known provider tokens, sorted.
func (r *Resolver) Providers() []string {
	out := make([]string, 0, len(r.templates))
	for k := range r.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the clone URL for spec.
func (r *Resolver) Resolve(spec RepoSpec) (string, error) {
	if spec.Provider == "" && isDirect(spec.Repo) {
		return spec.Repo, nil
	}
	return r.ResolveCloneURL(spec.Repo, spec.Provider)
}

// ResolveCloneURL expands the template for provider with repoPath. An
// empty provider means GitHub; an unknown one is UNSUPPORTED_PROVIDER.
func (r *Resolver) ResolveCloneURL(repoPath, provider string) (string, error) {
	if provider == "" {
		provider = ProviderGitHub
	}
	tmpl, ok := r.templates[strings.ToLower(provider)]
	if !ok {
		return "", platformerrors.WithContextMap(
			platformerrors.Newf(platformerrors.CodeUnsupportedProvider, "unsupported provider %q", provider),
			map[string]interface{}{"provider": provider, "supported": r.Providers()})
	}
	return strings.ReplaceAll(tmpl, repoPlaceholder, repoPath), nil
}

var defaultResolver = NewResolver(nil)

// ResolveCloneURL resolves with the built-in templates.
//
// Example:
//
//	url, err := repospec.ResolveCloneURL("acme/starter", "gitlab")
//	// url == "https://gitlab.com/acme/starter.git"
func ResolveCloneURL(repoPath, provider string) (string, error) {
	return defaultResolver.ResolveCloneURL(repoPath, provider)
}

// isDirect reports whether repo is usable as a clone URL as is.
func isDirect(repo string) bool {
	return scheme.MatchString(repo) || filepath.IsAbs(repo)
}

// CacheProvider returns the provider segment used for cache keys.
func (s RepoSpec) CacheProvider() string {
	if s.Provider == "" && isDirect(s.Repo) {
		return ProviderURL
	}
	return s.ProviderName()
}
