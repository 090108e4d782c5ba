package git

import (
	"context"
	"path/filepath"
	"strings"
)

// GetRepoInfo returns the repository name and current branch
func (r *CLIRepository) GetRepoInfo(ctx context.Context, dir string) (repo string, branch string, err error) {
	// Find git root first to ensure context is correct for worktrees
	gitRoot, err := r.Root(ctx, dir)
	if err != nil {
		return "", "", err
	}

	out, err := r.output(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		// Unborn branch: fall back to the symbolic ref
		out, err = r.output(ctx, dir, "symbolic-ref", "--short", "HEAD")
		if err != nil {
			return "", "", err
		}
	}
	branch = strings.TrimSpace(string(out))

	out, err = r.output(ctx, gitRoot, "config", "--get", "remote.origin.url")
	if err != nil {
		// Fallback to the basename of the git root directory
		return filepath.Base(gitRoot), branch, nil
	}

	return extractRepoName(strings.TrimSpace(string(out))), branch, nil
}

// extractRepoName extracts repository name from git URL
func extractRepoName(url string) string {
	url = strings.TrimSuffix(url, ".git")

	// git@github.com:user/repo
	if strings.HasPrefix(url, "git@") {
		if _, path, ok := strings.Cut(url, ":"); ok {
			url = path
		}
	}

	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if name := parts[len(parts)-1]; name != "" {
		return name
	}
	return "unknown"
}
