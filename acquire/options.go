package acquire

import (
	"time"

	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/stage"
)

// FetchOptions controls a single acquisition.
type FetchOptions struct {
	// Token authenticates clone and fetch over HTTPS.
	Token string

	// Install runs the dependency installer in the destination.
	Install bool

	// Force populates a non-empty destination in place.
	Force bool

	// ForceClean empties a non-empty destination first.
	ForceClean bool

	// Offline never touches the network.
	Offline bool

	// PreferOffline reuses any valid cache entry without checking the
	// remote.
	PreferOffline bool

	// OnConflict handles a non-empty destination. Defaults to
	// stage.ConflictFail.
	OnConflict stage.ConflictPolicy

	// SkipPrompts answers protected-file conflicts with a backup.
	SkipPrompts bool

	// PreserveHistory copies the .git directory when the whole tree is
	// acquired.
	PreserveHistory bool

	// InitRepository creates a fresh repository with an initial commit in
	// the destination. Ignored when history was preserved.
	InitRepository bool
}

// Validate checks the options and fills in defaults.
func (o *FetchOptions) Validate() error {
	policy, err := stage.ParseConflictPolicy(string(o.OnConflict))
	if err != nil {
		return err
	}
	o.OnConflict = policy
	return nil
}

func (o FetchOptions) stageOptions() stage.Options {
	return stage.Options{
		Force:       o.Force,
		ForceClean:  o.ForceClean,
		Policy:      o.OnConflict,
		SkipPrompts: o.SkipPrompts,
	}
}

// DownloadResult describes a completed acquisition. SourceSpec is the
// spec exactly as the caller passed it; CanonicalSpec is its normalized
// form.
type DownloadResult struct {
	SourceSpec    string        `json:"source_spec"`
	CanonicalSpec string        `json:"canonical_spec"`
	LocalPath     string        `json:"local_path"`
	Revision      string        `json:"revision"`
	CacheHit      bool          `json:"cache_hit"`
	Duration      time.Duration `json:"duration"`
	Size          int64         `json:"size"`
}

// Request is one item of a batch.
type Request struct {
	Spec        string
	Destination string
	Options     FetchOptions
}

// BatchResult pairs a batch request with its outcome.
type BatchResult struct {
	Request Request
	Result  *DownloadResult
	Err     error
}

// invalidOptions tags an options error for the caller.
func invalidOptions(err error) error {
	return platformerrors.WithContext(err, "field", "on_conflict")
}
