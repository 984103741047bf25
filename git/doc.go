// Package git is the version control capability used by the acquisition
// engine: a thin wrapper over go-git that only does what a template fetcher
// needs (clone a pinned ref, list remote refs, fetch and fast-forward,
// resolve revisions, and commit a fresh tree).
//
// Network access goes through the RemoteOperations interface. The default
// implementation is backed by go-git and talks to real remotes, including
// local paths through go-git's file transport. Tests inject fakes with
// WithRemoteOperations to count or fail network calls.
//
// All filesystem access goes through go-billy. By default paths resolve on
// the OS filesystem rooted at "/"; WithFilesystem swaps in memfs for tests.
//
// # Usage
//
//	refs, err := git.LsRemote(ctx, url, git.WithAuth(git.TokenAuth(token)))
//	target, ok := git.ResolveReference(refs, "v2")
//
//	repo, err := git.Clone(ctx, url, dir,
//	    git.WithReferenceName(target.Name),
//	    git.WithSingleBranch(),
//	    git.WithDepth(1))
//
//	// later, to refresh
//	err = repo.Fetch(ctx, git.FetchOptions{RefSpecs: []string{"+refs/tags/v2:refs/tags/v2"}})
//	hash, err := repo.RevParse("refs/tags/v2")
//	err = repo.Checkout(hash)
//
// # Errors
//
// Errors are platform errors from the errors package. go-git sentinel
// errors are classified: missing repositories and refs become NOT_FOUND,
// credential failures UNAUTHORIZED, network failures NETWORK_ERROR or
// TIMEOUT, and context cancellation CANCELED.
package git
