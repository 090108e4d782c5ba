package hooks

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/logging"
	"github.com/grovetools/hooks/session"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// ChangeStagerOptions configures a ChangeStager.
type ChangeStagerOptions struct {
	Config config.ChangeStagerConfig
	Index  git.Index
	// FS is used for the upward project marker search; nil means the OS.
	FS pathutil.Stater
	// Lookup reads the remote indicators; nil means os.LookupEnv.
	Lookup config.LookupFunc
	Logger *logrus.Entry
	// DryRun lists what would be staged without touching the index.
	DryRun bool
}

// ChangeStager stages the working tree changes of the current project at
// session end. It never commits.
type ChangeStager struct {
	cfg    config.ChangeStagerConfig
	index  git.Index
	fsys   pathutil.Stater
	lookup config.LookupFunc
	logger *logrus.Entry
	dryRun bool
}

// StageReport describes one staging pass.
type StageReport struct {
	Skipped      string
	GitRoot      string
	ProjectRoot  string
	ProjectRel   string
	Remote       bool
	RemoteSource string
	Planned      []string
	Staged       []string
	Failed       []string
	Excluded     []string
	Message      string
}

// NewChangeStager creates a ChangeStager.
func NewChangeStager(opts ChangeStagerOptions) *ChangeStager {
	if opts.Index == nil {
		opts.Index = git.NewCLIRepository()
	}
	if opts.FS == nil {
		opts.FS = pathutil.OSStater{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("change-stager")
	}
	return &ChangeStager{
		cfg:    opts.Config,
		index:  opts.Index,
		fsys:   opts.FS,
		lookup: opts.Lookup,
		logger: opts.Logger,
		dryRun: opts.DryRun,
	}
}

func (s *ChangeStager) Name() string { return "change-stager" }

func (s *ChangeStager) Fallback() any { return Continue }

// Handle stages project changes and always returns the continue result.
func (s *ChangeStager) Handle(ctx context.Context, event *session.Event) any {
	report, err := s.Stage(ctx, event)
	if err != nil {
		s.logger.WithFields(groveFields(err)).Warn("Staging failed")
		return Continue
	}
	if report.Skipped != "" {
		s.logger.WithField("reason", report.Skipped).Debug("Staging skipped")
		return Continue
	}
	s.logger.WithFields(logrus.Fields{
		"project": report.ProjectRoot,
		"staged":  len(report.Staged),
		"failed":  len(report.Failed),
		"remote":  report.Remote,
	}).Info(report.Message)
	return Continue
}

// Stage performs one staging pass.
func (s *ChangeStager) Stage(ctx context.Context, event *session.Event) (*StageReport, error) {
	report := &StageReport{}

	if s.cfg.Disabled {
		report.Skipped = SkipDisabled
		return report, nil
	}

	cwd := event.WorkingDir()
	projectRoot, found := pathutil.FindMarkerDirectory(s.fsys, cwd, s.cfg.ProjectMarker)

	if !s.index.IsRepo(ctx, cwd) {
		report.Skipped = SkipNoGit
		return report, nil
	}
	gitRoot, err := s.index.Root(ctx, cwd)
	if err != nil {
		report.Skipped = SkipNoGit
		return report, nil
	}
	if gitRoot, err = pathutil.CanonicalPath(gitRoot); err != nil {
		return report, err
	}
	report.GitRoot = gitRoot

	// A marker above the repository (such as ~/.claude) does not bound a
	// project inside it.
	report.ProjectRoot = gitRoot
	report.ProjectRel = "."
	if found {
		if canonical, err := pathutil.CanonicalPath(projectRoot); err == nil {
			if rel, ok := pathutil.RelativeWithin(gitRoot, canonical); ok {
				report.ProjectRoot = canonical
				report.ProjectRel = rel
			}
		}
	}

	report.Remote, report.RemoteSource = config.DetectRemote(s.lookup)

	logger := s.logger.WithFields(logrus.Fields{"git_root": gitRoot, "project": report.ProjectRel})

	matcher, err := patternmatcher.New(s.cfg.Exclude)
	if err != nil {
		return report, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	memories := s.memoryFiles(report.ProjectRel)
	planned := map[string]bool{}
	for _, memory := range memories {
		if s.memoryChanged(ctx, logger, gitRoot, memory) {
			s.plan(report, matcher, memory)
			planned[memory] = true
		}
	}

	for _, file := range s.projectChanges(ctx, logger, gitRoot, report.ProjectRel) {
		if planned[file] {
			continue
		}
		s.plan(report, matcher, file)
	}

	if s.dryRun {
		for _, file := range report.Planned {
			logger.WithField("file", file).Info("Would stage")
		}
		report.Message = fmt.Sprintf("Dry run: %d file(s) would be staged.", len(report.Planned))
		return report, nil
	}

	s.stagePlanned(ctx, logger, report)
	report.Message = stageMessage(len(report.Staged), report.Remote)
	return report, nil
}

// memoryFiles returns the memory files checked before everything else,
// relative to the git root: the one at the git root, then the project's own
// when the project is a subdirectory.
func (s *ChangeStager) memoryFiles(projectRel string) []string {
	if s.cfg.MemoryFile == "" {
		return nil
	}
	name := filepath.ToSlash(s.cfg.MemoryFile)
	files := []string{path.Clean(name)}
	if projectRel != "." {
		files = append(files, path.Clean(path.Join(projectRel, name)))
	}
	return files
}

// memoryChanged runs three independent queries so that an unstaged edit, a
// staged edit and an untracked file are each detected on their own.
func (s *ChangeStager) memoryChanged(ctx context.Context, logger *logrus.Entry, gitRoot, memory string) bool {
	queries := []struct {
		name string
		run  func(context.Context, string, ...string) ([]string, error)
	}{
		{"unstaged", s.index.DiffNames},
		{"staged", s.index.StagedDiffNames},
		{"untracked", s.index.UntrackedNames},
	}

	changed := false
	for _, q := range queries {
		names, err := q.run(ctx, gitRoot, memory)
		if err != nil {
			logger.WithFields(groveFields(err)).WithField("query", q.name).Debug("Memory file query failed")
			continue
		}
		for _, name := range names {
			if name == memory {
				logger.WithField("query", q.name).Debug("Memory file has changes")
				changed = true
			}
		}
	}
	return changed
}

// projectChanges lists modified and untracked files under the project,
// relative to the git root.
func (s *ChangeStager) projectChanges(ctx context.Context, logger *logrus.Entry, gitRoot, projectRel string) []string {
	var pathspecs []string
	if projectRel != "." {
		pathspecs = []string{projectRel}
	}

	seen := map[string]bool{}
	for name, query := range map[string]func(context.Context, string, ...string) ([]string, error){
		"unstaged":  s.index.DiffNames,
		"untracked": s.index.UntrackedNames,
	} {
		names, err := query(ctx, gitRoot, pathspecs...)
		if err != nil {
			logger.WithFields(groveFields(err)).WithField("query", name).Warn("Failed to list changes")
			continue
		}
		for _, n := range names {
			if pathutil.HasPathPrefix(n, projectRel) {
				seen[n] = true
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func (s *ChangeStager) plan(report *StageReport, matcher *patternmatcher.PatternMatcher, file string) {
	if excluded(matcher, report.ProjectRel, file) {
		report.Excluded = append(report.Excluded, file)
		return
	}
	report.Planned = append(report.Planned, file)
}

// stagePlanned adds all planned files in one call and falls back to one
// call per file when the batch fails, so a single bad path does not block
// the rest.
func (s *ChangeStager) stagePlanned(ctx context.Context, logger *logrus.Entry, report *StageReport) {
	if len(report.Planned) == 0 {
		return
	}
	err := s.index.Add(ctx, report.GitRoot, report.Planned...)
	if err == nil {
		report.Staged = append(report.Staged, report.Planned...)
		return
	}
	logger.WithFields(groveFields(err)).Debug("Batch add failed, staging files one by one")

	for _, file := range report.Planned {
		if err := s.index.Add(ctx, report.GitRoot, file); err != nil {
			logger.WithFields(groveFields(err)).WithField("file", file).Warn("Failed to stage file")
			report.Failed = append(report.Failed, file)
			continue
		}
		report.Staged = append(report.Staged, file)
	}
}

// excluded matches file against the exclude patterns, relative to the
// project root.
func excluded(matcher *patternmatcher.PatternMatcher, projectRel, file string) bool {
	if len(matcher.Patterns()) == 0 {
		return false
	}
	rel := file
	if projectRel != "." && pathutil.HasPathPrefix(file, projectRel) {
		rel = file[len(projectRel)+1:]
	}
	match, err := matcher.MatchesOrParentMatches(filepath.FromSlash(rel))
	return err == nil && match
}

func stageMessage(count int, remote bool) string {
	switch {
	case count == 0:
		return "No project changes to stage."
	case remote:
		return fmt.Sprintf("Staged %d file(s); they will be included in auto-push.", count)
	default:
		return fmt.Sprintf("Staged %d file(s); review and commit when ready.", count)
	}
}
