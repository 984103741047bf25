package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Prune removes entries selected by any of the strategies and returns what
// was removed. Without strategies nothing is removed; entries are never
// deleted implicitly.
//
// Examples:
//
//	// Remove entries unused for a week
//	removed, err := store.Prune(ctx, cache.PruneUnusedFor(7*24*time.Hour))
//
//	// Multiple strategies (OR logic)
//	removed, err := store.Prune(ctx,
//	    cache.PruneOlderThan(90*24*time.Hour),
//	    cache.PruneToSize(5<<30))
func (s *Store) Prune(ctx context.Context, strategies ...PruneStrategy) ([]*EntryMetadata, error) {
	if len(strategies) == 0 {
		return nil, nil
	}

	var sizeStrategy *pruneToSize
	var otherStrategies []PruneStrategy
	for _, strategy := range strategies {
		if ps, ok := strategy.(*pruneToSize); ok {
			sizeStrategy = ps
		} else {
			otherStrategies = append(otherStrategies, strategy)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	marked := make(map[string]bool)
	var toRemove []*EntryMetadata
	for _, meta := range entries {
		for _, strategy := range otherStrategies {
			if strategy.ShouldPrune(meta, now) {
				marked[meta.Key().String()] = true
				toRemove = append(toRemove, meta)
				break
			}
		}
	}

	if sizeStrategy != nil {
		toRemove = append(toRemove, s.applySizeStrategy(sizeStrategy, entries, marked)...)
	}

	removed := make([]*EntryMetadata, 0, len(toRemove))
	for _, meta := range toRemove {
		if err := s.Remove(ctx, meta.Key()); err != nil {
			return removed, err
		}
		s.logger.Debug().Str("key", meta.Key().String()).Msg("pruned cache entry")
		removed = append(removed, meta)
	}
	return removed, nil
}

// applySizeStrategy picks the least recently accessed entries not already
// marked until the remaining total fits within the limit.
func (s *Store) applySizeStrategy(strategy *pruneToSize, entries []*EntryMetadata, marked map[string]bool) []*EntryMetadata {
	type candidate struct {
		meta *EntryMetadata
		size int64
	}

	var total int64
	var candidates []candidate
	for _, meta := range entries {
		size, err := s.dirSize(s.Path(meta.Key()))
		if err != nil {
			continue
		}
		if marked[meta.Key().String()] {
			continue
		}
		total += size
		candidates = append(candidates, candidate{meta: meta, size: size})
	}

	if total <= strategy.maxBytes {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].meta.LastAccess.Before(candidates[j].meta.LastAccess)
	})

	var out []*EntryMetadata
	for _, c := range candidates {
		if total <= strategy.maxBytes {
			break
		}
		out = append(out, c.meta)
		total -= c.size
	}
	return out
}

// dirSize returns the apparent size of the files under path.
func (s *Store) dirSize(path string) (int64, error) {
	info, err := s.fs.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var size int64
	err = s.walkDir(path, func(_ string, info os.FileInfo) error {
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// walkDir calls fn for every entry below root without following symlinks.
func (s *Store) walkDir(root string, fn func(path string, info os.FileInfo) error) error {
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		info, err := s.fs.Lstat(path)
		if err != nil {
			continue
		}

		if err := fn(path, info); err != nil {
			return err
		}

		if info.IsDir() {
			if err := s.walkDir(path, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

type pruneOlderThan struct {
	maxAge time.Duration
}

func (p *pruneOlderThan) ShouldPrune(metadata *EntryMetadata, now time.Time) bool {
	return now.Sub(metadata.CreatedAt) > p.maxAge
}

type pruneUnusedFor struct {
	maxIdle time.Duration
}

func (p *pruneUnusedFor) ShouldPrune(metadata *EntryMetadata, now time.Time) bool {
	return now.Sub(metadata.LastAccess) > p.maxIdle
}

// pruneToSize is applied by Prune as a whole-cache pass; on its own it
// never selects a single entry.
type pruneToSize struct {
	maxBytes int64
}

func (p *pruneToSize) ShouldPrune(*EntryMetadata, time.Time) bool {
	return false
}
