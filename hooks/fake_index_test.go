package hooks

import (
	"context"
	"sync"

	"github.com/grovetools/hooks/errors"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/util/pathutil"
)

type fakeCommit struct {
	message string
	paths   []string
}

// fakeIndex is an in-memory git.Index.
type fakeIndex struct {
	mu sync.Mutex

	repo bool
	root string

	diff      []string
	staged    []string
	untracked []string

	// batchErr fails any Add with more than one path.
	batchErr error
	addErr   map[string]error

	commitErr error

	calls   int
	added   [][]string
	commits []fakeCommit
}

var _ git.Index = (*fakeIndex)(nil)

func (f *fakeIndex) touch() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeIndex) IsRepo(context.Context, string) bool {
	f.touch()
	return f.repo
}

func (f *fakeIndex) Root(_ context.Context, dir string) (string, error) {
	f.touch()
	if !f.repo {
		return "", errors.NotGitRepo(dir)
	}
	return f.root, nil
}

func (f *fakeIndex) Add(_ context.Context, _ string, paths ...string) error {
	f.touch()
	if len(paths) > 1 && f.batchErr != nil {
		return f.batchErr
	}
	for _, p := range paths {
		if err := f.addErr[p]; err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.added = append(f.added, paths)
	f.mu.Unlock()
	return nil
}

func (f *fakeIndex) Commit(_ context.Context, _ string, message string, paths ...string) error {
	f.touch()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.mu.Lock()
	f.commits = append(f.commits, fakeCommit{message: message, paths: paths})
	f.mu.Unlock()
	return nil
}

func (f *fakeIndex) DiffNames(_ context.Context, _ string, pathspecs ...string) ([]string, error) {
	f.touch()
	return filterSpecs(f.diff, pathspecs), nil
}

func (f *fakeIndex) StagedDiffNames(_ context.Context, _ string, pathspecs ...string) ([]string, error) {
	f.touch()
	return filterSpecs(f.staged, pathspecs), nil
}

func (f *fakeIndex) UntrackedNames(_ context.Context, _ string, pathspecs ...string) ([]string, error) {
	f.touch()
	return filterSpecs(f.untracked, pathspecs), nil
}

func (f *fakeIndex) addedPaths() []string {
	var out []string
	for _, batch := range f.added {
		out = append(out, batch...)
	}
	return out
}

func filterSpecs(names, pathspecs []string) []string {
	if len(pathspecs) == 0 {
		return names
	}
	var out []string
	for _, n := range names {
		for _, spec := range pathspecs {
			if pathutil.HasPathPrefix(n, spec) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
