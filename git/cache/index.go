package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const (
	indexVersion  = "1"
	indexFileName = "index.json"
)

// entryIndex is the on-disk record of cache entries, keyed by Key.String().
// Callers hold the index lock while loading, mutating and saving it.
type entryIndex struct {
	Version string                    `json:"version"`
	Entries map[string]*EntryMetadata `json:"entries"`
}

// loadIndex reads the index at path, returning an empty index when the
// file does not exist yet.
func loadIndex(fs billy.Filesystem, path string) (*entryIndex, error) {
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		return &entryIndex{
			Version: indexVersion,
			Entries: make(map[string]*EntryMetadata),
		}, nil
	}

	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var idx entryIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	if idx.Version != indexVersion {
		return nil, fmt.Errorf("unsupported index version: %s (expected %s)", idx.Version, indexVersion)
	}

	if idx.Entries == nil {
		idx.Entries = make(map[string]*EntryMetadata)
	}

	return &idx, nil
}

// save writes the index to path atomically (write to temp + rename).
func (idx *entryIndex) save(fs billy.Filesystem, path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmpPath := path + ".tmp"
	tmpFile, err := fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary index file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary index file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	return nil
}

// sorted returns the entries ordered by key.
func (idx *entryIndex) sorted() []*EntryMetadata {
	keys := make([]string, 0, len(idx.Entries))
	for k := range idx.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*EntryMetadata, 0, len(keys))
	for _, k := range keys {
		m := *idx.Entries[k]
		out = append(out, &m)
	}
	return out
}

// updateIndex loads the index, applies fn and saves the result, all under
// the index lock.
func (s *Store) updateIndex(ctx context.Context, fn func(idx *entryIndex) error) error {
	return s.withIndexLock(ctx, func() error {
		idx, err := loadIndex(s.fs, s.indexPath)
		if err != nil {
			return err
		}
		if err := fn(idx); err != nil {
			return err
		}
		return idx.save(s.fs, s.indexPath)
	})
}

// readIndex returns a snapshot of the index.
func (s *Store) readIndex(ctx context.Context) (*entryIndex, error) {
	var idx *entryIndex
	err := s.withIndexLock(ctx, func() error {
		var err error
		idx, err = loadIndex(s.fs, s.indexPath)
		return err
	})
	return idx, err
}

// record stores what EnsureFresh learned about an entry. The index is
// bookkeeping only, so failures are logged rather than returned.
func (s *Store) record(ctx context.Context, req Request, entry *Entry) {
	now := s.now()
	err := s.updateIndex(ctx, func(idx *entryIndex) error {
		key := req.Key.String()
		meta, ok := idx.Entries[key]
		if !ok || entry.Source == SourceClone {
			meta = &EntryMetadata{
				Provider:  req.Key.Provider,
				Repo:      req.Key.Repo,
				Ref:       req.Key.Ref,
				CreatedAt: now,
			}
			idx.Entries[key] = meta
		}

		meta.URL = req.URL
		meta.Path = entry.Path
		meta.Revision = entry.Revision
		meta.LastAccess = now
		if entry.Source != SourceCache || meta.LastFetched.IsZero() {
			meta.LastFetched = now
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", req.Key.String()).Msg("failed to update cache index")
	}
}
