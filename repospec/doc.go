// Package repospec parses repository identifiers and resolves them to
// clone URLs.
//
// A spec names a repository, a ref and optionally a subdirectory:
//
//	acme/starter                       github, ref main
//	acme/starter#v2                    ref v2
//	gitlab:acme/starter#dev/templates  provider gitlab, subdir templates
//	acme/starter/packages/web          subdir packages/web
//	https://github.com/acme/starter/tree/v2/docs
//
// Parse never rejects non-empty input. Anything it cannot interpret is
// used literally as the repository path and reported in
// RepoSpec.Warnings.
//
// Resolution uses per-provider URL templates:
//
//	r := repospec.NewResolver(nil)
//	url, err := r.Resolve(spec)
package repospec
