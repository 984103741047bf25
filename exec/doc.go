// Package exec runs external commands behind a small, mockable interface.
//
// Command wraps os/exec with captured and optionally streamed output,
// global settings supplied to New and per-run settings supplied through the
// fluent With* methods. Per-run settings are cleared after every Run.
//
//	cmd := exec.New(exec.WithInheritEnv(), exec.WithDisableColors())
//	res, err := cmd.WithDir(projectDir).WithTimeout(10 * time.Minute).Run("npm", "install")
//
// CommandWrapper binds a program name so callers only pass arguments:
//
//	npm := exec.NewWrapper(exec.New(), "npm")
//	_, err := npm.WithDir(projectDir).Run("install")
//
// A failed or non-zero exit returns an *ExecError that carries the captured
// output alongside the Result.
package exec
