package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/hooks/command"
	"github.com/grovetools/hooks/errors"
)

// CLIRepository implements Index using the git CLI
type CLIRepository struct {
	cmdBuilder *command.SafeBuilder
}

// Ensure it implements the interface
var _ Index = (*CLIRepository)(nil)

// NewCLIRepository creates a git CLI index that never prompts and parses
// output in the C locale.
func NewCLIRepository() *CLIRepository {
	return NewCLIRepositoryWithBuilder(
		command.NewSafeBuilderWithExecutor(&command.RealExecutor{Env: command.NonInteractiveEnv}),
	)
}

// NewCLIRepositoryWithBuilder creates a git CLI index running commands
// through cmdBuilder.
func NewCLIRepositoryWithBuilder(cmdBuilder *command.SafeBuilder) *CLIRepository {
	return &CLIRepository{cmdBuilder: cmdBuilder}
}

// WithTimeout bounds every git call made through the repository.
func (r *CLIRepository) WithTimeout(timeout time.Duration) *CLIRepository {
	r.cmdBuilder.WithDefaultTimeout(timeout)
	return r
}

// IsRepo reports whether dir lies inside a git work tree
func (r *CLIRepository) IsRepo(ctx context.Context, dir string) bool {
	out, err := r.output(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// Root returns the top-level directory of the work tree containing dir
func (r *CLIRepository) Root(ctx context.Context, dir string) (string, error) {
	out, err := r.output(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, errors.ErrCodeCommandFailed) {
			return "", errors.Wrap(err, errors.ErrCodeGitNotRepo, fmt.Sprintf("not inside a git work tree: %s", dir)).
				WithDetail("dir", dir)
		}
		return "", err
	}
	return filepath.FromSlash(strings.TrimSpace(string(out))), nil
}

// Add stages paths
func (r *CLIRepository) Add(ctx context.Context, root string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := r.validatePaths(paths); err != nil {
		return err
	}

	args := append([]string{"add", "--"}, paths...)
	_, err := r.output(ctx, root, args...)
	return err
}

// Commit records the staged state of paths
func (r *CLIRepository) Commit(ctx context.Context, root, message string, paths ...string) error {
	if err := r.cmdBuilder.Validate("commitMessage", message); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid commit message")
	}
	if err := r.validatePaths(paths); err != nil {
		return err
	}

	staged, err := r.hasStagedChanges(ctx, root, paths)
	if err != nil {
		return err
	}
	if !staged {
		return errors.NothingToCommit()
	}

	args := []string{"commit", "-m", message}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := r.output(ctx, root, args...)
	if err != nil && strings.Contains(string(out), "nothing to commit") {
		return errors.NothingToCommit()
	}
	return err
}

// DiffNames lists tracked files with unstaged changes
func (r *CLIRepository) DiffNames(ctx context.Context, root string, pathspecs ...string) ([]string, error) {
	return r.names(ctx, root, []string{"diff", "--name-only", "-z"}, pathspecs)
}

// StagedDiffNames lists files whose staged content differs from HEAD
func (r *CLIRepository) StagedDiffNames(ctx context.Context, root string, pathspecs ...string) ([]string, error) {
	return r.names(ctx, root, []string{"diff", "--cached", "--name-only", "-z"}, pathspecs)
}

// UntrackedNames lists untracked files not excluded by ignore rules
func (r *CLIRepository) UntrackedNames(ctx context.Context, root string, pathspecs ...string) ([]string, error) {
	return r.names(ctx, root, []string{"ls-files", "--others", "--exclude-standard", "-z"}, pathspecs)
}

func (r *CLIRepository) names(ctx context.Context, root string, args, pathspecs []string) ([]string, error) {
	if err := r.validatePaths(pathspecs); err != nil {
		return nil, err
	}
	if len(pathspecs) > 0 {
		args = append(append(args, "--"), pathspecs...)
	}

	out, err := r.output(ctx, root, args...)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

// hasStagedChanges relies on `git diff --quiet` exiting 1 when differences exist.
func (r *CLIRepository) hasStagedChanges(ctx context.Context, root string, paths []string) (bool, error) {
	args := []string{"diff", "--cached", "--quiet"}
	if len(paths) > 0 {
		args = append(append(args, "--"), paths...)
	}

	cmd, err := r.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return false, fmt.Errorf("failed to build command: %w", err)
	}
	out, err := cmd.InDir(root).CombinedOutput()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, errors.CommandFailed(cmd.String(), err, out)
}

func (r *CLIRepository) validatePaths(paths []string) error {
	for _, p := range paths {
		if err := r.cmdBuilder.Validate("pathspec", p); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid pathspec").WithDetail("path", p)
		}
	}
	return nil
}

// output runs git in dir. Stdout is returned on success; on failure the
// combined output is attached to the returned error and also returned.
func (r *CLIRepository) output(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd, err := r.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}

	stdout, stderr, err := cmd.InDir(dir).Capture()
	if err != nil {
		combined := append(stdout, stderr...)
		return combined, errors.CommandFailed(cmd.String(), err, combined)
	}
	return stdout, nil
}

func splitNUL(out []byte) []string {
	var names []string
	for _, part := range bytes.Split(out, []byte{0}) {
		if len(part) == 0 {
			continue
		}
		names = append(names, string(part))
	}
	return names
}
