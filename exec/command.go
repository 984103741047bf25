package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	osexec "os/exec"
	"sync"
	"time"
)

type settings struct {
	env           map[string]string
	dir           string
	inheritEnv    bool
	disableColors bool
	passthrough   bool
}

func newSettings() settings {
	return settings{env: make(map[string]string)}
}

func (s settings) clone() settings {
	out := s
	out.env = make(map[string]string, len(s.env))
	for k, v := range s.env {
		out.env[k] = v
	}
	return out
}

// merge overlays local on top of s. Boolean switches can only be enabled locally.
func (s settings) merge(local settings) settings {
	out := s.clone()
	for k, v := range local.env {
		out.env[k] = v
	}
	if local.dir != "" {
		out.dir = local.dir
	}
	out.inheritEnv = out.inheritEnv || local.inheritEnv
	out.disableColors = out.disableColors || local.disableColors
	out.passthrough = out.passthrough || local.passthrough
	return out
}

func (s settings) environ() []string {
	var env []string
	if s.inheritEnv {
		env = os.Environ()
	}
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	if s.disableColors {
		env = append(env, "NO_COLOR=1", "TERM=dumb", "CLICOLOR=0", "CLICOLOR_FORCE=0", "FORCE_COLOR=0")
	}
	return env
}

// Command is the os/exec backed Executor. It is not safe for concurrent
// use; Clone it per goroutine.
type Command struct {
	global  settings
	local   settings
	ctx     context.Context
	timeout time.Duration
	stdout  io.Writer
	stderr  io.Writer
}

// New creates a Command with the given global options.
func New(opts ...Option) *Command {
	c := &Command{
		global: newSettings(),
		local:  newSettings(),
		ctx:    context.Background(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithEnv adds environment variables for the next run.
func (c *Command) WithEnv(env map[string]string) Executor {
	for k, v := range env {
		c.local.env[k] = v
	}
	return c
}

// WithDir sets the working directory for the next run.
func (c *Command) WithDir(dir string) Executor {
	c.local.dir = dir
	return c
}

// WithContext sets the context for the next run.
func (c *Command) WithContext(ctx context.Context) Executor {
	c.ctx = ctx
	return c
}

// WithDisableColors disables color output for the next run.
func (c *Command) WithDisableColors() Executor {
	c.local.disableColors = true
	return c
}

// WithTimeout bounds the next run. Zero means no limit.
func (c *Command) WithTimeout(timeout time.Duration) Executor {
	c.timeout = timeout
	return c
}

// WithInheritEnv inherits the parent environment for the next run.
func (c *Command) WithInheritEnv() Executor {
	c.local.inheritEnv = true
	return c
}

// WithStdout sets the passthrough stdout writer.
func (c *Command) WithStdout(w io.Writer) Executor {
	c.stdout = w
	return c
}

// WithStderr sets the passthrough stderr writer.
func (c *Command) WithStderr(w io.Writer) Executor {
	c.stderr = w
	return c
}

// WithPassthrough streams output for the next run.
func (c *Command) WithPassthrough() Executor {
	c.local.passthrough = true
	return c
}

// Run executes the command. Local settings are reset afterwards whatever
// the outcome.
func (c *Command) Run(args ...string) (*Result, error) {
	effective := c.global.merge(c.local)
	timeout := c.timeout
	c.local = newSettings()
	c.timeout = 0

	if len(args) == 0 {
		return nil, &ExecError{Command: args, ExitCode: -1, Err: osexec.ErrNotFound}
	}

	ctx := c.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = effective.dir
	cmd.Env = effective.environ()

	var stdout, stderr bytes.Buffer
	combined := &lockedBuffer{}
	outWriters := []io.Writer{&stdout, combined}
	errWriters := []io.Writer{&stderr, combined}
	if effective.passthrough {
		outWriters = append(outWriters, c.stdout)
		errWriters = append(errWriters, c.stderr)
	}
	cmd.Stdout = io.MultiWriter(outWriters...)
	cmd.Stderr = io.MultiWriter(errWriters...)

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return result, &ExecError{
			Command:  args,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}
	return result, nil
}

// Clone returns a Command with the same global settings and no pending
// per-run settings.
func (c *Command) Clone() Executor {
	return &Command{
		global: c.global.clone(),
		local:  newSettings(),
		ctx:    c.ctx,
		stdout: c.stdout,
		stderr: c.stderr,
	}
}

// LookPath reports the absolute path of an executable on PATH.
func LookPath(name string) (string, error) {
	return osexec.LookPath(name)
}

// lockedBuffer lets the stdout and stderr copiers share one buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
