package main

import (
	"io"
	"os"

	"github.com/jmgilman/seed/acquire"
	"github.com/jmgilman/seed/git/cache"
	"github.com/jmgilman/seed/install"
	"github.com/jmgilman/seed/internal/config"
	"github.com/jmgilman/seed/internal/logging"
	"github.com/jmgilman/seed/internal/prompt"
	"github.com/jmgilman/seed/repospec"
	"github.com/jmgilman/seed/stage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// cli holds the state shared by all commands of one invocation.
type cli struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer

	cfgFile string
	verbose bool
	jsonOut bool
	yes     bool

	cfg    *config.Config
	logger zerolog.Logger

	// interactive reports whether prompts can be shown. Replaced in tests.
	interactive func() bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		v:           viper.New(),
		stdout:      stdout,
		stderr:      stderr,
		logger:      zerolog.Nop(),
		interactive: prompt.Interactive,
	}
}

func (c *cli) root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fetch template repositories into new projects",
		Long: `seed scaffolds projects from template repositories.

Repositories are named with specs such as owner/repo, gitlab:owner/repo#v2,
github:owner/repo#main/packages/web or a hosting URL. Every repository is
kept in a local cache so repeated fetches need little or no network.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is "+config.ConfigFilePath()+")")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&c.jsonOut, "json", false, "print results and errors as JSON")
	flags.BoolVarP(&c.yes, "yes", "y", false, "never prompt; back up conflicting files")
	flags.String("cache-dir", "", "repository cache directory")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (pretty, json)")

	_ = c.v.BindPFlag("cache.directory", flags.Lookup("cache-dir"))
	_ = c.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	cmd.AddCommand(c.fetchCmd(), c.batchCmd(), c.cacheCmd(), c.configCmd())
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  c.stderr,
		Verbose: c.verbose,
	})
	c.logger.Debug().Str("cache", cfg.Cache.Directory).Str("config", c.v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

func (c *cli) store(opts ...cache.StoreOption) (*cache.Store, error) {
	return cache.NewStore(c.cfg.Cache.Directory, append([]cache.StoreOption{
		cache.WithDepth(c.cfg.Cache.Depth),
		cache.WithLogger(logging.WithComponent(c.logger, "cache")),
	}, opts...)...)
}

func (c *cli) resolver() *repospec.Resolver {
	return repospec.NewResolver(c.cfg.Providers)
}

// prompts reports whether conflict prompts are shown.
func (c *cli) prompts() bool {
	return !c.yes && !c.jsonOut && c.interactive()
}

func (c *cli) acquirer(store *cache.Store, opts ...acquire.Option) *acquire.Acquirer {
	stagerOpts := []stage.Option{
		stage.WithProtected(c.cfg.Protected...),
		stage.WithLogger(logging.WithComponent(c.logger, "stage")),
	}
	if c.prompts() {
		stagerOpts = append(stagerOpts, stage.WithConflictResolver(prompt.NewResolver()))
	}

	return acquire.New(store, append([]acquire.Option{
		acquire.WithLogger(logging.WithComponent(c.logger, "acquire")),
		acquire.WithResolver(c.resolver()),
		acquire.WithStager(stage.New(stagerOpts...)),
		acquire.WithInstaller(install.NewPackageManagerInstaller(
			install.WithTimeout(c.cfg.Install.Timeout),
			install.WithLogger(logging.WithComponent(c.logger, "install")),
		)),
		acquire.WithConcurrency(c.cfg.Fetch.Concurrency),
	}, opts...)...)
}

// showProgress reports whether a progress bar is drawn on stderr.
func (c *cli) showProgress() bool {
	if c.jsonOut {
		return false
	}
	f, ok := c.stderr.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
