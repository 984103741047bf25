// Package cache keeps one working checkout per (provider, repository, ref)
// on local disk and keeps it in step with the remote.
//
// # Layout
//
//	<root>/
//	├── index.json                  # metadata: revision and timestamps
//	├── .locks/                     # advisory lock files
//	│   └── github/acme-starter/main.lock
//	└── github/                     # provider
//	    └── acme-starter/           # repository, '/' flattened to '-'
//	        ├── main/               # ref
//	        └── v2/
//
// A name that cannot be mapped back to its key unchanged, such as the
// repository "acme/foo-bar" or the ref "release/1.0", is stored as its
// sanitized form plus "@" and a short hash of the original
// ("acme-foo-bar@1a2b3c4d"), so distinct keys never share a directory.
// An entry cloned from a different URL than the one requested is
// treated as invalid and cloned again.
//
// # Freshness
//
// EnsureFresh clones missing entries, compares existing ones against the
// remote with a ref listing, and fetches only when the ref moved. Policy
// controls network use: PreferOffline reuses any valid entry, Offline
// additionally fails when no entry exists.
//
//	store, err := cache.NewStore(root, cache.WithDepth(1))
//	if err != nil {
//	    return err
//	}
//
//	entry, err := store.EnsureFresh(ctx, cache.Request{
//	    URL: "https://github.com/acme/starter.git",
//	    Key: cache.Key{Provider: "github", Repo: "acme/starter", Ref: "main"},
//	}, cache.Policy{})
//
// # Concurrency
//
// Writers for a key are serialized by an in-process mutex plus a file
// lock under .locks, so concurrent processes sharing a root cooperate.
// Read holds a shared lock while the caller copies out of an entry.
// Lock waits end when the context is canceled.
//
// # Maintenance
//
// Entries are never removed implicitly. List, Stats, Remove, Clear and
// Prune (PruneOlderThan, PruneUnusedFor, PruneToSize) manage the cache
// explicitly.
package cache
