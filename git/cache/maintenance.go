package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	platformerrors "github.com/jmgilman/seed/errors"
)

// List returns the metadata of every indexed entry, ordered by key.
// Entries whose directory has disappeared are skipped.
func (s *Store) List(ctx context.Context) ([]*EntryMetadata, error) {
	idx, err := s.readIndex(ctx)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache index")
	}

	var out []*EntryMetadata
	for _, meta := range idx.sorted() {
		if _, err := s.fs.Stat(s.Path(meta.Key())); err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

// Stats returns entry counts and disk usage.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Entries: len(entries)}
	for _, meta := range entries {
		if size, err := s.dirSize(s.Path(meta.Key())); err == nil {
			stats.TotalSize += size
		}

		if stats.OldestAccess == nil || meta.LastAccess.Before(*stats.OldestAccess) {
			t := meta.LastAccess
			stats.OldestAccess = &t
		}
		if stats.NewestAccess == nil || meta.LastAccess.After(*stats.NewestAccess) {
			t := meta.LastAccess
			stats.NewestAccess = &t
		}
	}
	return stats, nil
}

// Remove deletes the entry for key and its index record. Removing an
// absent entry is not an error.
//
// Example:
//
//	err := store.Remove(ctx, cache.Key{Provider: "github", Repo: "acme/starter", Ref: "main"})
func (s *Store) Remove(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}

	err := s.withEntryLock(ctx, key, func() error {
		if err := util.RemoveAll(s.fs, s.Path(key)); err != nil && !os.IsNotExist(err) {
			return platformerrors.WrapWithContext(err, platformerrors.CodeInternal,
				"failed to remove cache entry", map[string]interface{}{"key": key.String()})
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.updateIndex(ctx, func(idx *entryIndex) error {
		delete(idx.Entries, key.String())
		return nil
	})
}

// Clear removes every entry, indexed or not, leaving an empty cache root.
func (s *Store) Clear(ctx context.Context) error {
	idx, err := s.readIndex(ctx)
	if err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache index")
	}
	for _, meta := range idx.sorted() {
		if err := s.Remove(ctx, meta.Key()); err != nil {
			return err
		}
	}

	// Directories the index never learned about, e.g. from a crashed process.
	if err := s.clearUnindexed(ctx); err != nil {
		return err
	}

	return s.updateIndex(ctx, func(idx *entryIndex) error {
		idx.Entries = make(map[string]*EntryMetadata)
		return nil
	})
}

// clearUnindexed removes everything left under the provider directories.
// Each <provider>/<repoName>/<ref> directory, and any temporary clone
// beside it, is removed under that entry's lock, so in-flight clones and
// reads in other processes finish first.
func (s *Store) clearUnindexed(ctx context.Context) error {
	providers, err := s.fs.ReadDir(s.root)
	if err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache root")
	}

	for _, provider := range providers {
		if !provider.IsDir() || provider.Name() == lockDirName {
			continue
		}
		providerDir := filepath.Join(s.root, provider.Name())

		repos, err := s.fs.ReadDir(providerDir)
		if err != nil {
			return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache directory")
		}
		for _, repo := range repos {
			repoDir := filepath.Join(providerDir, repo.Name())
			if !repo.IsDir() {
				if err := s.fs.Remove(repoDir); err != nil && !os.IsNotExist(err) {
					return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to clear cache")
				}
				continue
			}

			refs, err := s.fs.ReadDir(repoDir)
			if err != nil {
				return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache directory")
			}
			for _, ref := range refs {
				target := filepath.Join(repoDir, ref.Name())
				lock := s.lockPathFor(provider.Name(), repo.Name(), entryName(ref.Name()))
				err := s.locker.WithExclusive(ctx, lock, func() error {
					return util.RemoveAll(s.fs, target)
				})
				if err != nil && !os.IsNotExist(err) {
					return platformerrors.WrapWithContext(err, platformerrors.CodeInternal,
						"failed to clear cache", map[string]interface{}{"path": target})
				}
			}
			s.removeIfEmpty(repoDir)
		}
		s.removeIfEmpty(providerDir)
	}
	return nil
}

// entryName maps a temporary clone directory ".<ref>.clone-XXXX" back to
// the ref segment whose lock guards it.
func entryName(name string) string {
	if strings.HasPrefix(name, ".") {
		if i := strings.LastIndex(name, ".clone-"); i > 0 {
			return name[1:i]
		}
	}
	return name
}

// removeIfEmpty drops dir when nothing is left in it. A concurrent writer
// may have repopulated it, in which case it stays.
func (s *Store) removeIfEmpty(dir string) {
	if children, err := s.fs.ReadDir(dir); err == nil && len(children) == 0 {
		_ = s.fs.Remove(dir)
	}
}
