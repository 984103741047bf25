// Package install runs dependency installation for a freshly acquired
// project, choosing the package manager from the files present.
package install

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/exec"
	"github.com/rs/zerolog"
)

// Installer installs the dependencies of the project in dir.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// PackageManager is a detected installation step.
type PackageManager struct {
	Name     string   // e.g. "pnpm"
	Manifest string   // file that selected it
	Args     []string // arguments after the program name
}

// Command returns the full command line.
func (p PackageManager) Command() string {
	return strings.Join(append([]string{p.Name}, p.Args...), " ")
}

// jsManagers is ordered by precedence; the first lockfile found wins.
var jsManagers = []PackageManager{
	{Name: "bun", Manifest: "bun.lockb", Args: []string{"install"}},
	{Name: "bun", Manifest: "bun.lock", Args: []string{"install"}},
	{Name: "pnpm", Manifest: "pnpm-lock.yaml", Args: []string{"install"}},
	{Name: "yarn", Manifest: "yarn.lock", Args: []string{"install"}},
	{Name: "npm", Manifest: "package.json", Args: []string{"install"}},
}

var goModules = PackageManager{Name: "go", Manifest: "go.mod", Args: []string{"mod", "download"}}

// PackageManagerInstaller implements Installer by running package managers
// through an exec.Executor.
type PackageManagerInstaller struct {
	executor exec.Executor
	fs       billy.Filesystem
	timeout  time.Duration
	logger   zerolog.Logger
}

// Option configures a PackageManagerInstaller.
type Option func(*PackageManagerInstaller)

// WithExecutor sets the executor commands run through.
func WithExecutor(e exec.Executor) Option {
	return func(i *PackageManagerInstaller) {
		i.executor = e
	}
}

// WithFilesystem sets the filesystem manifests are detected on.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(i *PackageManagerInstaller) {
		i.fs = fs
	}
}

// WithTimeout bounds each package manager run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(i *PackageManagerInstaller) {
		i.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *PackageManagerInstaller) {
		i.logger = logger
	}
}

// NewPackageManagerInstaller returns an installer running commands on the
// host with output passed through to the terminal.
//
// Example:
//
//	installer := install.NewPackageManagerInstaller(install.WithTimeout(10 * time.Minute))
//	err := installer.Install(ctx, "./my-app")
func NewPackageManagerInstaller(opts ...Option) *PackageManagerInstaller {
	i := &PackageManagerInstaller{
		executor: exec.New(exec.WithInheritEnv(), exec.WithPassthrough()),
		fs:       osfs.New("/"),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Detect returns the steps needed for dir: at most one JavaScript package
// manager, then Go modules.
func (i *PackageManagerInstaller) Detect(dir string) []PackageManager {
	var found []PackageManager
	for _, pm := range jsManagers {
		if i.exists(filepath.Join(dir, pm.Manifest)) {
			found = append(found, pm)
			break
		}
	}
	if i.exists(filepath.Join(dir, goModules.Manifest)) {
		found = append(found, goModules)
	}
	return found
}

func (i *PackageManagerInstaller) exists(path string) bool {
	info, err := i.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Install runs every detected step in dir. A directory without a known
// manifest is left alone.
func (i *PackageManagerInstaller) Install(ctx context.Context, dir string) error {
	steps := i.Detect(dir)
	if len(steps) == 0 {
		i.logger.Debug().Str("dir", dir).Msg("no package manifest found, skipping install")
		return nil
	}

	for _, pm := range steps {
		if err := ctx.Err(); err != nil {
			return platformerrors.Wrap(err, platformerrors.CodeCanceled, "install canceled")
		}

		i.logger.Info().Str("dir", dir).Str("command", pm.Command()).Msg("installing dependencies")

		// Executors carry per-run state, so each run gets its own copy.
		runner := exec.NewWrapper(i.executor.Clone(), pm.Name)
		runner.WithContext(ctx).WithDir(dir).WithDisableColors()
		if i.timeout > 0 {
			runner.WithTimeout(i.timeout)
		}

		if _, err := runner.Run(pm.Args...); err != nil {
			fields := map[string]interface{}{
				"command": pm.Command(),
				"dir":     dir,
			}
			var execErr *exec.ExecError
			if platformerrors.As(err, &execErr) {
				fields["exit_code"] = execErr.ExitCode
				if stderr := strings.TrimSpace(execErr.Stderr); stderr != "" {
					fields["stderr"] = stderr
				}
			}
			return platformerrors.WrapWithContext(err, platformerrors.CodeExecutionFailed,
				"dependency installation failed", fields)
		}
	}
	return nil
}

var _ Installer = (*PackageManagerInstaller)(nil)
