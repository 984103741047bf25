package cache

import (
	"io"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/seed/git"
	"github.com/rs/zerolog"
)

// Store is a local cache of repository checkouts, one per
// (provider, repository, ref). Entries live at
// <root>/<provider>/<repoName>/<ref> and are refreshed in place.
//
// A Store is safe for concurrent use. Writers for the same key are
// serialized inside the process and, through advisory file locks, across
// processes sharing the same root.
type Store struct {
	root      string
	indexPath string
	fs        billy.Filesystem
	remoteOps git.RemoteOperations
	locker    Locker
	depth     int
	progress  io.Writer
	logger    zerolog.Logger
	now       func() time.Time
}

// Key identifies a cache entry.
type Key struct {
	Provider string // resolved provider name, e.g. "github"
	Repo     string // "owner/name"
	Ref      string // branch, tag or full commit hash
}

// Request describes the repository an entry is synchronized from.
type Request struct {
	URL  string
	Key  Key
	Auth git.Auth
}

// Policy controls network use during EnsureFresh.
type Policy struct {
	// Offline forbids network access. A missing entry is an error.
	Offline bool

	// PreferOffline reuses any valid entry without contacting the remote.
	PreferOffline bool
}

// Source reports how EnsureFresh produced an entry.
type Source string

const (
	SourceCache Source = "cache" // reused without changes
	SourceClone Source = "clone" // freshly cloned
	SourceFetch Source = "fetch" // updated in place
)

// Entry is a synchronized cache entry.
type Entry struct {
	Key      Key
	Path     string
	Revision string
	Source   Source
}

// CacheHit reports whether the entry was served without downloading.
func (e *Entry) CacheHit() bool {
	return e.Source == SourceCache
}

// EntryMetadata is the index record for an entry.
type EntryMetadata struct {
	Provider    string    `json:"provider"`
	Repo        string    `json:"repo"`
	Ref         string    `json:"ref"`
	URL         string    `json:"url"`
	Path        string    `json:"path"`
	Revision    string    `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	LastFetched time.Time `json:"last_fetched"`
	LastAccess  time.Time `json:"last_access"`
}

// Key returns the key the metadata was recorded under.
func (m *EntryMetadata) Key() Key {
	return Key{Provider: m.Provider, Repo: m.Repo, Ref: m.Ref}
}

// Stats summarizes the cache.
type Stats struct {
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size"`

	// Access times of the least and most recently used entries.
	OldestAccess *time.Time `json:"oldest_access,omitempty"`
	NewestAccess *time.Time `json:"newest_access,omitempty"`
}

// PruneStrategy decides whether an entry should be removed.
type PruneStrategy interface {
	ShouldPrune(metadata *EntryMetadata, now time.Time) bool
}
