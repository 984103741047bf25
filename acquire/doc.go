// Package acquire orchestrates the acquisition of a template repository
// into a local project directory.
//
// An acquisition moves through fixed states:
//
//	parsing -> resolving -> staging_pre -> cache_sync -> extracting ->
//	staging_post -> installing -> done
//
// with failed as the terminal state for any error. Parsing turns the
// input into a repospec.RepoSpec, resolving maps it to a clone URL, and
// the cache store (git/cache) synchronizes a shared checkout which the
// extractor copies into the destination prepared by the stager (stage).
// Protected files such as seed.jsonc are held aside for the whole
// population step and restored afterwards, on success or failure.
//
// Basic usage:
//
//	store, err := cache.NewStore(root)
//	if err != nil {
//	    return err
//	}
//	a := acquire.New(store)
//	res, err := a.Acquire(ctx, "gitlab:acme/starter#v2", "./my-app", acquire.FetchOptions{
//	    PreferOffline: true,
//	})
//
// Errors are platform errors (github.com/jmgilman/seed/errors) whose
// context holds "state", "spec" and "destination".
package acquire
