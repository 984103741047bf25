package main

import (
	"path"
	"strings"

	"github.com/jmgilman/seed/acquire"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/repospec"
	"github.com/jmgilman/seed/stage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func (c *cli) fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <spec> [destination]",
		Short: "Fetch a repository into a project directory",
		Long: `Fetch copies the tree named by spec into destination, which defaults to
the last path element of the repository or subdirectory.

Protected files already in the destination (seed.jsonc by default) are
kept aside while the tree is copied and put back afterwards.`,
		Example: `  seed fetch acme/starter my-app
  seed fetch github:acme/starter#v2/packages/web web --prefer-offline
  seed fetch https://gitlab.com/acme/starter --on-conflict suffix --install`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.fetchOptions(cmd)
			if err != nil {
				return err
			}

			dest := ""
			if len(args) > 1 {
				dest = args[1]
			} else {
				dest = defaultDestination(args[0])
			}

			var storeOpts []cache.StoreOption
			var acquireOpts []acquire.Option
			if c.showProgress() {
				bar := progressbar.NewOptions(-1,
					progressbar.OptionSetWriter(c.stderr),
					progressbar.OptionSetDescription(args[0]),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionClearOnFinish(),
				)
				defer func() { _ = bar.Finish() }()

				storeOpts = append(storeOpts, cache.WithProgress(bar))
				acquireOpts = append(acquireOpts, acquire.WithStateHook(func(spec string, s acquire.State) {
					bar.Describe(spec + " " + string(s))
				}))
			}

			store, err := c.store(storeOpts...)
			if err != nil {
				return err
			}

			res, err := c.acquirer(store, acquireOpts...).Acquire(cmd.Context(), args[0], dest, opts)
			if err != nil {
				return err
			}
			return c.printResult(res)
		},
	}

	addFetchFlags(cmd)
	return cmd
}

func addFetchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("force", false, "populate a non-empty destination in place")
	flags.Bool("force-clean", false, "empty a non-empty destination first")
	flags.Bool("offline", false, "never use the network; fail if not cached")
	flags.Bool("prefer-offline", false, "use a cached copy without checking for updates")
	flags.Bool("install", false, "install dependencies after fetching")
	flags.String("token", "", "access token for private repositories")
	flags.String("on-conflict", "", "non-empty destination handling: fail or suffix")
	flags.Bool("preserve-history", false, "keep the .git directory when fetching a whole repository")
	flags.Bool("init", false, "initialize a new git repository with an initial commit")
}

// fetchOptions merges fetch flags over the configured defaults.
func (c *cli) fetchOptions(cmd *cobra.Command) (acquire.FetchOptions, error) {
	flags := cmd.Flags()
	opts := acquire.FetchOptions{
		Token:         c.cfg.Fetch.Token,
		PreferOffline: c.cfg.Fetch.PreferOffline,
		OnConflict:    stage.ConflictPolicy(c.cfg.Fetch.OnConflict),
		SkipPrompts:   !c.prompts(),
	}

	opts.Force, _ = flags.GetBool("force")
	opts.ForceClean, _ = flags.GetBool("force-clean")
	opts.Offline, _ = flags.GetBool("offline")
	opts.Install, _ = flags.GetBool("install")
	opts.PreserveHistory, _ = flags.GetBool("preserve-history")
	opts.InitRepository, _ = flags.GetBool("init")
	if flags.Changed("prefer-offline") {
		opts.PreferOffline, _ = flags.GetBool("prefer-offline")
	}
	if flags.Changed("token") {
		opts.Token, _ = flags.GetString("token")
	}
	if flags.Changed("on-conflict") {
		policy, _ := flags.GetString("on-conflict")
		opts.OnConflict = stage.ConflictPolicy(policy)
	}

	return opts, opts.Validate()
}

// defaultDestination names the project after the last element of the
// subdirectory or repository.
func defaultDestination(input string) string {
	spec, err := repospec.Parse(input)
	if err != nil {
		return ""
	}
	name := spec.Repo
	if spec.Subdir != "" {
		name = spec.Subdir
	}
	name = strings.TrimSuffix(path.Base(strings.TrimRight(name, "/")), ".git")
	if name == "" || name == "." || name == "/" {
		return "project"
	}
	return name
}
