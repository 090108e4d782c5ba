package git

import "context"

// Index is the narrow view of a git work tree the hooks depend on. Paths
// passed in and returned are slash-separated and relative to the work tree
// root given as root.
type Index interface {
	// IsRepo reports whether dir lies inside a git work tree.
	IsRepo(ctx context.Context, dir string) bool
	// Root returns the top-level directory of the work tree containing dir.
	Root(ctx context.Context, dir string) (string, error)

	// Add stages paths.
	Add(ctx context.Context, root string, paths ...string) error
	// Commit records the staged state of paths (all staged paths when none
	// are given). It returns a NOTHING_TO_COMMIT error when there is nothing
	// staged for them.
	Commit(ctx context.Context, root, message string, paths ...string) error

	// DiffNames lists tracked files with unstaged changes.
	DiffNames(ctx context.Context, root string, pathspecs ...string) ([]string, error)
	// StagedDiffNames lists files whose staged content differs from HEAD.
	StagedDiffNames(ctx context.Context, root string, pathspecs ...string) ([]string, error)
	// UntrackedNames lists untracked files not excluded by ignore rules.
	UntrackedNames(ctx context.Context, root string, pathspecs ...string) ([]string, error)
}
