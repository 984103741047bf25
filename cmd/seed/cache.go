package main

import (
	"fmt"
	"time"

	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/internal/config"
	"github.com/jmgilman/seed/internal/prompt"
	"github.com/jmgilman/seed/repospec"
	"github.com/spf13/cobra"
)

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the repository cache",
	}
	cmd.AddCommand(
		c.cacheListCmd(),
		c.cacheStatsCmd(),
		c.cachePathCmd(),
		c.cacheRemoveCmd(),
		c.cacheClearCmd(),
		c.cachePruneCmd(),
	)
	return cmd
}

func (c *cli) cacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printEntries(entries)
		},
	}
}

func (c *cli) cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return c.printStats(store.Root(), stats)
		},
	}
}

func (c *cli) cachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path [spec]",
		Short: "Print the cache root, or the entry directory for spec",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = fmt.Fprintln(c.stdout, store.Root())
				return err
			}

			key, err := c.cacheKey(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.stdout, store.Path(key))
			return err
		},
	}
}

func (c *cli) cacheRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <spec>...",
		Aliases: []string{"rm"},
		Short:   "Remove cached repositories",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			for _, arg := range args {
				key, err := c.cacheKey(arg)
				if err != nil {
					return err
				}
				if err := store.Remove(cmd.Context(), key); err != nil {
					return err
				}
				c.logger.Info().Str("key", key.String()).Msg("removed cache entry")
			}
			return nil
		},
	}
}

func (c *cli) cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			if c.prompts() {
				ok, err := prompt.Confirm(cmd.Context(), "Remove every repository in "+store.Root()+"?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			return store.Clear(cmd.Context())
		},
	}
}

func (c *cli) cachePruneCmd() *cobra.Command {
	var (
		olderThan time.Duration
		unusedFor time.Duration
		maxSize   string
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached repositories by age, use or total size",
		Example: `  seed cache prune --unused-for 720h
  seed cache prune --older-than 2160h --max-size 2GB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var strategies []cache.PruneStrategy
			if olderThan > 0 {
				strategies = append(strategies, cache.PruneOlderThan(olderThan))
			}
			if unusedFor > 0 {
				strategies = append(strategies, cache.PruneUnusedFor(unusedFor))
			}
			if maxSize != "" {
				size, err := config.ParseSize(maxSize)
				if err != nil {
					return err
				}
				strategies = append(strategies, cache.PruneToSize(size))
			}
			if len(strategies) == 0 {
				return platformerrors.New(platformerrors.CodeInvalidInput,
					"prune needs at least one of --older-than, --unused-for or --max-size")
			}

			store, err := c.store()
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), strategies...)
			if err != nil {
				return err
			}
			return c.printEntries(removed)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove entries first cloned longer ago than this")
	cmd.Flags().DurationVar(&unusedFor, "unused-for", 0, "remove entries not used for this long")
	cmd.Flags().StringVar(&maxSize, "max-size", "", "remove least recently used entries until the cache fits, e.g. 2GB")
	return cmd
}

// cacheKey maps spec to the key acquisitions of it use.
func (c *cli) cacheKey(input string) (cache.Key, error) {
	spec, err := repospec.Parse(input)
	if err != nil {
		return cache.Key{}, err
	}
	if _, err := c.resolver().Resolve(spec); err != nil {
		return cache.Key{}, err
	}
	return cache.Key{Provider: spec.CacheProvider(), Repo: spec.Repo, Ref: spec.Ref}, nil
}
