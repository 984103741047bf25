package exec

import (
	"context"
	"io"
	"time"
)

// Executor runs external commands through a fluent configuration API.
// Settings made with the With* methods apply to the next Run only; settings
// passed to New as Options apply to every Run.
type Executor interface {
	// WithEnv adds environment variables for the next run.
	WithEnv(env map[string]string) Executor

	// WithDir sets the working directory for the next run.
	WithDir(dir string) Executor

	// WithContext sets the context that cancels the command.
	WithContext(ctx context.Context) Executor

	// WithDisableColors sets NO_COLOR, TERM=dumb and friends.
	WithDisableColors() Executor

	// WithTimeout bounds the next run.
	WithTimeout(timeout time.Duration) Executor

	// WithInheritEnv starts from the parent process environment.
	WithInheritEnv() Executor

	// WithStdout sets the writer used when passthrough is enabled.
	WithStdout(w io.Writer) Executor

	// WithStderr sets the writer used when passthrough is enabled.
	WithStderr(w io.Writer) Executor

	// WithPassthrough streams output while still capturing it.
	WithPassthrough() Executor

	// Run executes args[0] with the remaining arguments.
	Run(args ...string) (*Result, error)

	// Clone returns an executor with the same global configuration.
	Clone() Executor
}

// Result holds the captured output of a finished command.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// Combined interleaves both streams in the order they were written.
	Combined string

	// ExitCode is the process exit code.
	ExitCode int
}

// Option configures global settings on a Command.
type Option func(*Command)

// WithEnv sets environment variables for every run.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		for k, v := range env {
			c.global.env[k] = v
		}
	}
}

// WithDir sets the working directory for every run.
func WithDir(dir string) Option {
	return func(c *Command) {
		c.global.dir = dir
	}
}

// WithContext sets the default context.
func WithContext(ctx context.Context) Option {
	return func(c *Command) {
		c.ctx = ctx
	}
}

// WithDisableColors disables color output for every run.
func WithDisableColors() Option {
	return func(c *Command) {
		c.global.disableColors = true
	}
}

// WithInheritEnv inherits the parent environment for every run.
func WithInheritEnv() Option {
	return func(c *Command) {
		c.global.inheritEnv = true
	}
}

// WithPassthrough streams output for every run.
func WithPassthrough() Option {
	return func(c *Command) {
		c.global.passthrough = true
	}
}

// WithOutput sets the passthrough writers for every run.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Command) {
		c.stdout = stdout
		c.stderr = stderr
	}
}
