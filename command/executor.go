package command

import (
	"context"
	"os"
	"os/exec"
)

// Executor creates exec.Cmd instances. This abstraction allows for dependency
// injection, enabling test-specific command creation logic (e.g., setting up
// a PATH with mock binaries) without modifying production code.
type Executor interface {
	// Command creates a new exec.Cmd instance for the given command and arguments.
	Command(name string, args ...string) *exec.Cmd

	// CommandContext creates a new context-aware exec.Cmd instance.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor is the production implementation of the Executor interface,
// which uses the standard os/exec package to create commands.
type RealExecutor struct {
	// Env is appended to the inherited process environment.
	Env []string
}

// NonInteractiveEnv pins git output to the C locale, prevents git from
// prompting and makes every pathspec a literal path, so a file named
// "*.md" or "[a].go" only ever matches itself.
var NonInteractiveEnv = []string{
	"LC_ALL=C",
	"GIT_TERMINAL_PROMPT=0",
	"GIT_OPTIONAL_LOCKS=0",
	"GIT_LITERAL_PATHSPECS=1",
}

// Command creates a standard exec.Cmd.
func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	e.applyEnv(cmd)
	return cmd
}

// CommandContext creates a standard context-aware exec.Cmd.
func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	e.applyEnv(cmd)
	return cmd
}

func (e *RealExecutor) applyEnv(cmd *exec.Cmd) {
	if len(e.Env) == 0 {
		return
	}
	cmd.Env = append(os.Environ(), e.Env...)
}
