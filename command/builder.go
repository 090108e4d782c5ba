package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default command execution timeout. Hooks run
	// during host teardown, so a hung git process must not block for long.
	DefaultTimeout = 10 * time.Second

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 2 * time.Minute
)

// SafeBuilder provides secure command execution with validation
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// WithDefaultTimeout returns the builder with a new per-command timeout.
// Values <= 0 keep the current timeout; values above MaxTimeout are capped.
func (sb *SafeBuilder) WithDefaultTimeout(timeout time.Duration) *SafeBuilder {
	if timeout <= 0 {
		return sb
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	sb.defaultTimeout = timeout
	return sb
}

// DefaultTimeout reports the timeout applied to each built command.
func (sb *SafeBuilder) DefaultTimeout() time.Duration {
	return sb.defaultTimeout
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"pathspec":      validatePathspec,
		"commitMessage": validateCommitMessage,
	}
}

// validatePathspec ensures a repository-relative path stays inside the work
// tree. Paths are always passed after "--", so a leading dash is allowed.
func validatePathspec(path string) error {
	if path == "" {
		return fmt.Errorf("pathspec cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("pathspec contains a NUL byte")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("pathspec must be relative to the repository root: %s", path)
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("pathspec escapes the repository root: %s", path)
	}
	return nil
}

// validateCommitMessage ensures commit messages are non-empty and NUL free
func validateCommitMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("commit message cannot be empty")
	}
	if strings.ContainsRune(msg, 0) {
		return fmt.Errorf("commit message contains a NUL byte")
	}
	return nil
}

// Command is a validated command bound to a deadline.
type Command struct {
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	dir      string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command with validation. The returned command carries
// its own deadline derived from ctx; run it through Run, Output or
// CombinedOutput so the deadline is released afterwards.
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	// Validate command name
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)

	return &Command{
		parent:   ctx,
		ctx:      timeoutCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		timeout:  sb.defaultTimeout,
		executor: sb.executor,
	}, nil
}

// WithTimeout replaces the deadline of the command. The new deadline is
// still bounded by the context passed to Build.
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithTimeout(c.parent, timeout)

	c.ctx = ctx
	c.cancel = cancel
	c.timeout = timeout
	return c
}

// InDir sets the working directory of the command
func (c *Command) InDir(dir string) *Command {
	c.dir = dir
	return c
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd. Callers using Exec directly own the
// command lifecycle and should call Release when done.
func (c *Command) Exec() *exec.Cmd {
	cmd := c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	return cmd
}

// Release frees the deadline attached to the command
func (c *Command) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Run executes the command and waits for it to finish
func (c *Command) Run() error {
	defer c.Release()
	return c.wrap(c.Exec().Run())
}

// Output executes the command and returns its standard output
func (c *Command) Output() ([]byte, error) {
	defer c.Release()
	out, err := c.Exec().Output()
	return out, c.wrap(err)
}

// CombinedOutput executes the command and returns stdout and stderr together
func (c *Command) CombinedOutput() ([]byte, error) {
	defer c.Release()
	out, err := c.Exec().CombinedOutput()
	return out, c.wrap(err)
}

// Capture executes the command and returns stdout and stderr separately
func (c *Command) Capture() (stdout, stderr []byte, err error) {
	defer c.Release()
	cmd := c.Exec()
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), c.wrap(err)
}

// String renders the command line for diagnostics
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

func (c *Command) wrap(err error) error {
	if err == nil {
		return nil
	}
	if c.ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Command: c.String(), Timeout: c.timeout, Err: err}
	}
	return err
}

// TimeoutError reports a command killed because its deadline expired
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
