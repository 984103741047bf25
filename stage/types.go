package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/rs/zerolog"
)

// DefaultProtectedFile is the project configuration file kept safe across
// staging by default.
const DefaultProtectedFile = "seed.jsonc"

// ConflictPolicy decides what happens when the destination is not empty.
type ConflictPolicy string

const (
	// ConflictFail refuses to touch a non-empty destination.
	ConflictFail ConflictPolicy = "fail"

	// ConflictUniqueSuffix stages into the first free dest-1, dest-2, ...
	ConflictUniqueSuffix ConflictPolicy = "suffix"
)

// ParseConflictPolicy maps a name to a policy. "" is ConflictFail.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictFail, nil
	case ConflictFail, ConflictUniqueSuffix:
		return p, nil
	default:
		return "", platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, fmt.Sprintf("unknown conflict policy %q", s)),
			"allowed", []string{string(ConflictFail), string(ConflictUniqueSuffix)})
	}
}

// Options controls a single Stage call.
type Options struct {
	// Force stages into a non-empty destination, overwriting entries.
	Force bool

	// ForceClean empties the destination first.
	ForceClean bool

	// Policy applies to a non-empty destination without Force or ForceClean.
	Policy ConflictPolicy

	// SkipPrompts resolves protected-file conflicts without asking.
	SkipPrompts bool
}

// Resolution is the answer to a protected-file conflict.
type Resolution string

const (
	// ResolutionDelete removes the file occupying the holding slot.
	ResolutionDelete Resolution = "delete"

	// ResolutionBackup renames the occupying file to a free backup name.
	ResolutionBackup Resolution = "backup"
)

// Conflict describes a holding slot that is already taken.
type Conflict struct {
	// File is the protected file name, e.g. "seed.jsonc".
	File string

	// Path is the occupied slot in the destination's parent directory.
	Path string
}

// ConflictResolver chooses how to free an occupied holding slot.
type ConflictResolver interface {
	Resolve(ctx context.Context, conflict Conflict) (Resolution, error)
}

// Stager prepares destination directories.
type Stager struct {
	fs        billy.Filesystem
	protected []string
	resolver  ConflictResolver
	logger    zerolog.Logger

	// slots serializes holders of the same slot within the process;
	// lockDir holds the file locks that extend this to other processes.
	mu      sync.Mutex
	slots   map[string]*sync.Mutex
	lockDir string
}

// Option configures a Stager.
type Option func(*Stager)

// New returns a Stager protecting DefaultProtectedFile unless told otherwise.
//
// Example:
//
//	s := stage.New(
//	    stage.WithProtected("seed.jsonc", ".env"),
//	    stage.WithConflictResolver(prompt.NewConflictResolver()))
func New(opts ...Option) *Stager {
	s := &Stager{
		fs:        osfs.New("/"),
		protected: []string{DefaultProtectedFile},
		logger:    zerolog.Nop(),
		slots:     make(map[string]*sync.Mutex),
		lockDir:   filepath.Join(os.TempDir(), "seed", "slot-locks"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithFilesystem sets the filesystem destinations live on. Unique suffix
// claims always go to the OS, so it must be rooted at "/".
func WithFilesystem(fs billy.Filesystem) Option {
	return func(s *Stager) {
		s.fs = fs
	}
}

// WithProtected replaces the protected file names.
func WithProtected(names ...string) Option {
	return func(s *Stager) {
		s.protected = append([]string(nil), names...)
	}
}

// WithConflictResolver sets who decides protected-file conflicts. Without
// one, conflicts are resolved with ResolutionBackup.
func WithConflictResolver(r ConflictResolver) Option {
	return func(s *Stager) {
		s.resolver = r
	}
}

// WithLockDir sets where holding-slot lock files are kept. Stagers that
// may share a parent directory must use the same lock directory.
func WithLockDir(dir string) Option {
	return func(s *Stager) {
		s.lockDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Stager) {
		s.logger = logger
	}
}

// Protected returns the protected file names.
func (s *Stager) Protected() []string {
	return append([]string(nil), s.protected...)
}

func (s *Stager) isProtected(name string) bool {
	for _, p := range s.protected {
		if p == name {
			return true
		}
	}
	return false
}
