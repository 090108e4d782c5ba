package errors

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/grovetools/hooks/command"
)

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *GroveError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidInput creates an error for a hook payload that could not be decoded
func InvalidInput(err error) *GroveError {
	return Wrap(err, ErrCodeInvalidInput, "invalid hook input")
}

// TranscriptInvalid creates an error for a transcript whose start time
// cannot be determined
func TranscriptInvalid(path string, err error) *GroveError {
	return Wrap(err, ErrCodeTranscriptInvalid, fmt.Sprintf("cannot determine session start from transcript: %s", path)).
		WithDetail("transcript", path)
}

// SessionIDMissing creates an error for a transcript path that yields no
// session identifier
func SessionIDMissing(path string) *GroveError {
	return New(ErrCodeSessionIDMissing, fmt.Sprintf("no session id in transcript path: %q", path)).
		WithDetail("transcript", path)
}

// NotGitRepo creates an error for a directory outside any git work tree
func NotGitRepo(dir string) *GroveError {
	return New(ErrCodeGitNotRepo, fmt.Sprintf("not inside a git work tree: %s", dir)).
		WithDetail("dir", dir)
}

// NothingToCommit marks a commit attempt with no staged changes. Callers
// treat it as success.
func NothingToCommit() *GroveError {
	return New(ErrCodeNothingToCommit, "nothing to commit")
}

// StateInvalid creates an error for a feature state record that cannot be used
func StateInvalid(path string, err error) *GroveError {
	return Wrap(err, ErrCodeStateInvalid, fmt.Sprintf("invalid feature state record: %s", path)).
		WithDetail("path", path)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error, output []byte) *GroveError {
	var timeoutErr *command.TimeoutError
	if te, ok := err.(*command.TimeoutError); ok {
		timeoutErr = te
	}
	if timeoutErr != nil {
		return Wrap(err, ErrCodeCommandTimeout, fmt.Sprintf("command timed out: %s", cmd)).
			WithDetail("command", cmd).
			WithDetail("timeout", timeoutErr.Timeout.String())
	}

	if execErr, ok := err.(*exec.Error); ok {
		return Wrap(execErr, ErrCodeCommandNotFound, fmt.Sprintf("command not found: %s", cmd)).
			WithDetail("command", cmd)
	}

	groveErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		groveErr = groveErr.WithDetail("exitCode", exitErr.ExitCode())
	}
	if out := strings.TrimSpace(string(output)); out != "" {
		groveErr = groveErr.WithDetail("output", out)
	}

	return groveErr
}
