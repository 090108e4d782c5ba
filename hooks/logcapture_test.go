package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/conventional"
	"github.com/grovetools/hooks/errors"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/session"
	"github.com/grovetools/hooks/testutil"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type captureFixture struct {
	logDir     string
	transcript string
	cwd        string
	times      map[string]session.FileTimes
}

// newCaptureFixture lays out a log directory holding the abc123 transcript
// plus a subagent log written after the session started and an old log.
func newCaptureFixture(t *testing.T) *captureFixture {
	t.Helper()
	f := &captureFixture{
		logDir: t.TempDir(),
		cwd:    t.TempDir(),
		times:  map[string]session.FileTimes{},
	}
	f.transcript = f.writeLog(t, "abc123.jsonl", `{"timestamp":"2026-01-01T00:00:00Z"}`+"\n", sessionStart.Add(-time.Second))
	f.writeLog(t, "sub1.jsonl", `{"timestamp":"2026-01-01T00:00:04Z"}`+"\n", sessionStart.Add(5*time.Second))
	f.writeLog(t, "old.jsonl", `{"timestamp":"2025-12-31T23:58:20Z"}`+"\n", sessionStart.Add(-100*time.Second))
	return f
}

func (f *captureFixture) writeLog(t *testing.T, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.logDir, name)
	testutil.WriteFile(t, path, content)
	f.times[name] = session.FileTimes{ModTime: mtime}
	return path
}

func (f *captureFixture) fileTimes(path string) (session.FileTimes, error) {
	ft, ok := f.times[filepath.Base(path)]
	if !ok {
		return session.FileTimes{}, os.ErrNotExist
	}
	return ft, nil
}

func (f *captureFixture) event() *session.Event {
	return &session.Event{Kind: session.KindSessionEnd, CWD: f.cwd, TranscriptPath: f.transcript}
}

func enabledCapture() config.LogCaptureConfig {
	cfg := config.Default().LogCapture
	cfg.Enabled = true
	return cfg
}

func canonical(t *testing.T, path string) string {
	t.Helper()
	c, err := pathutil.CanonicalPath(path)
	require.NoError(t, err)
	return c
}

func TestLogCapture_SelectsSessionFiles(t *testing.T) {
	f := newCaptureFixture(t)
	index := &fakeIndex{repo: true, root: canonical(t, f.cwd)}

	capture := NewLogCapture(LogCaptureOptions{
		Config:    enabledCapture(),
		Index:     index,
		FileTimes: f.fileTimes,
		Logger:    quietLogger(t),
	})

	report, err := capture.Capture(context.Background(), f.event())
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, "abc123", report.SessionID)

	dest := filepath.Join(f.cwd, config.DefaultDestination)
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	var copied []string
	for _, e := range entries {
		copied = append(copied, e.Name())
	}
	assert.Equal(t, []string{"abc123.jsonl", "sub1.jsonl"}, copied)

	data, err := os.ReadFile(filepath.Join(dest, "sub1.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "00:00:04Z")

	// Sources are copied, never moved.
	assert.FileExists(t, filepath.Join(f.logDir, "sub1.jsonl"))

	wantRel := []string{".claude/session-logs/abc123.jsonl", ".claude/session-logs/sub1.jsonl"}
	assert.Equal(t, wantRel, index.addedPaths())
	for _, batch := range index.added {
		assert.Len(t, batch, 1, "logs are staged one at a time")
	}

	require.Len(t, index.commits, 1)
	assert.Equal(t, wantRel, index.commits[0].paths)
	assert.True(t, report.Committed)
}

func TestLogCapture_NoOpConditions(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func() config.LogCaptureConfig
		event  func(f *captureFixture) *session.Event
		reason string
	}{
		{
			name:   "disabled",
			cfg:    func() config.LogCaptureConfig { return config.Default().LogCapture },
			event:  func(f *captureFixture) *session.Event { return f.event() },
			reason: SkipDisabled,
		},
		{
			name: "no transcript",
			cfg:  enabledCapture,
			event: func(f *captureFixture) *session.Event {
				return &session.Event{CWD: f.cwd}
			},
			reason: SkipNoTranscript,
		},
		{
			name: "no session id",
			cfg:  enabledCapture,
			event: func(f *captureFixture) *session.Event {
				return &session.Event{CWD: f.cwd, TranscriptPath: filepath.Join(f.logDir, ".jsonl")}
			},
			reason: SkipNoSessionID,
		},
		{
			name: "no start time",
			cfg:  enabledCapture,
			event: func(f *captureFixture) *session.Event {
				return &session.Event{CWD: f.cwd, TranscriptPath: filepath.Join(f.logDir, "missing.jsonl")}
			},
			reason: SkipNoStartTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCaptureFixture(t)
			index := &fakeIndex{repo: true, root: f.cwd}
			capture := NewLogCapture(LogCaptureOptions{
				Config:    tt.cfg(),
				Index:     index,
				FileTimes: f.fileTimes,
				Logger:    quietLogger(t),
			})

			report, err := capture.Capture(context.Background(), tt.event(f))
			require.NoError(t, err)
			assert.Equal(t, tt.reason, report.Skipped)
			assert.Zero(t, index.calls)
			assert.NoDirExists(t, filepath.Join(f.cwd, config.DefaultDestination))

			assert.Equal(t, Continue, capture.Handle(context.Background(), tt.event(f)))
		})
	}
}

func TestLogCapture_DisabledForNonSentinelValues(t *testing.T) {
	for _, value := range []string{"", "0", "true", "yes", "on", "2"} {
		t.Run("value="+value, func(t *testing.T) {
			cfg := config.Default()
			config.ApplyEnv(cfg, config.MapLookup(map[string]string{config.EnvLogCapture: value}))

			f := newCaptureFixture(t)
			index := &fakeIndex{repo: true, root: f.cwd}
			capture := NewLogCapture(LogCaptureOptions{Config: cfg.LogCapture, Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})

			assert.Equal(t, Continue, capture.Handle(context.Background(), f.event()))
			assert.Zero(t, index.calls)
			assert.NoDirExists(t, filepath.Join(f.cwd, config.DefaultDestination))
		})
	}
}

func TestLogCapture_DryRun(t *testing.T) {
	f := newCaptureFixture(t)
	index := &fakeIndex{repo: true, root: f.cwd}
	capture := NewLogCapture(LogCaptureOptions{
		Config:    enabledCapture(),
		Index:     index,
		FileTimes: f.fileTimes,
		Logger:    quietLogger(t),
		DryRun:    true,
	})

	report, err := capture.Capture(context.Background(), f.event())
	require.NoError(t, err)
	assert.Len(t, report.Selected, 2)
	assert.Empty(t, report.Copied)
	assert.Zero(t, index.calls)
	assert.NoDirExists(t, filepath.Join(f.cwd, config.DefaultDestination))
}

func TestLogCapture_DestinationOverride(t *testing.T) {
	f := newCaptureFixture(t)
	index := &fakeIndex{repo: true, root: canonical(t, f.cwd)}
	cfg := config.Default()
	config.ApplyEnv(cfg, config.MapLookup(map[string]string{
		config.EnvLogCapture:    "1",
		config.EnvLogCaptureDir: "archive/claude",
	}))

	capture := NewLogCapture(LogCaptureOptions{Config: cfg.LogCapture, Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})
	_, err := capture.Capture(context.Background(), f.event())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.cwd, "archive", "claude", "abc123.jsonl"))
	assert.Equal(t, []string{"archive/claude/abc123.jsonl", "archive/claude/sub1.jsonl"}, index.addedPaths())
}

func TestLogCapture_GitFailuresAreNotFatal(t *testing.T) {
	t.Run("stage failure skips the file", func(t *testing.T) {
		f := newCaptureFixture(t)
		index := &fakeIndex{
			repo:   true,
			root:   canonical(t, f.cwd),
			addErr: map[string]error{".claude/session-logs/abc123.jsonl": fmt.Errorf("index.lock exists")},
		}
		capture := NewLogCapture(LogCaptureOptions{Config: enabledCapture(), Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})

		report, err := capture.Capture(context.Background(), f.event())
		require.NoError(t, err)
		assert.Equal(t, []string{".claude/session-logs/sub1.jsonl"}, report.Staged)
		require.Len(t, index.commits, 1)
		assert.Contains(t, index.commits[0].message, "(1 file)")
	})

	t.Run("nothing to commit is success", func(t *testing.T) {
		f := newCaptureFixture(t)
		index := &fakeIndex{repo: true, root: canonical(t, f.cwd), commitErr: errors.NothingToCommit()}
		capture := NewLogCapture(LogCaptureOptions{Config: enabledCapture(), Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})

		report, err := capture.Capture(context.Background(), f.event())
		require.NoError(t, err)
		assert.False(t, report.Committed)
	})

	t.Run("commit failure still continues", func(t *testing.T) {
		f := newCaptureFixture(t)
		index := &fakeIndex{repo: true, root: canonical(t, f.cwd), commitErr: fmt.Errorf("hook rejected")}
		capture := NewLogCapture(LogCaptureOptions{Config: enabledCapture(), Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})

		_, err := capture.Capture(context.Background(), f.event())
		assert.Error(t, err)
		assert.Equal(t, Continue, capture.Handle(context.Background(), f.event()))
	})

	t.Run("outside a repository the copies stay", func(t *testing.T) {
		f := newCaptureFixture(t)
		index := &fakeIndex{repo: false}
		capture := NewLogCapture(LogCaptureOptions{Config: enabledCapture(), Index: index, FileTimes: f.fileTimes, Logger: quietLogger(t)})

		report, err := capture.Capture(context.Background(), f.event())
		require.NoError(t, err)
		assert.Equal(t, SkipNoGit, report.Skipped)
		assert.Len(t, report.Copied, 2)
		assert.Empty(t, index.commits)
	})
}

func TestLogCapture_IdempotentCommit(t *testing.T) {
	f := newCaptureFixture(t)
	testutil.InitGitRepo(t, f.cwd)
	before := testutil.CommitCount(t, f.cwd)

	capture := NewLogCapture(LogCaptureOptions{
		Config:    enabledCapture(),
		Index:     git.NewCLIRepository(),
		FileTimes: f.fileTimes,
		Logger:    quietLogger(t),
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, Continue, capture.Handle(context.Background(), f.event()))
	}
	assert.Equal(t, before+1, testutil.CommitCount(t, f.cwd))
	assert.Empty(t, testutil.StagedFiles(t, f.cwd))
}

func TestLogCapture_EndToEnd(t *testing.T) {
	logDir := t.TempDir()
	repo := t.TempDir()
	testutil.InitGitRepo(t, repo)

	transcript := filepath.Join(logDir, "sess42.jsonl")
	testutil.WriteFile(t, transcript, `{"timestamp":"2026-01-01T00:00:00Z"}`+"\n")
	child := filepath.Join(logDir, "child1.jsonl")
	testutil.WriteFile(t, child, `{"timestamp":"2026-01-01T00:00:05Z"}`+"\n")
	testutil.SetModTime(t, child, time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC))

	cfg := config.Default()
	config.ApplyEnv(cfg, config.MapLookup(map[string]string{config.EnvLogCapture: "1"}))
	capture := NewLogCapture(LogCaptureOptions{Config: cfg.LogCapture, Index: git.NewCLIRepository(), Logger: quietLogger(t)})

	before := testutil.CommitCount(t, repo)
	result := capture.Handle(context.Background(), &session.Event{
		Kind:           session.KindSessionEnd,
		CWD:            repo,
		TranscriptPath: transcript,
	})
	assert.Equal(t, Continue, result)

	dest := filepath.Join(repo, ".claude", "session-logs")
	assert.FileExists(t, filepath.Join(dest, "sess42.jsonl"))
	assert.FileExists(t, filepath.Join(dest, "child1.jsonl"))

	assert.Equal(t, before+1, testutil.CommitCount(t, repo))
	message := testutil.GitOutput(t, repo, "log", "-1", "--format=%B")
	assert.Contains(t, message, "sess42")
	assert.Contains(t, message, "(2 files)")

	files := testutil.GitOutput(t, repo, "show", "--name-only", "--format=", "HEAD")
	assert.ElementsMatch(t, []string{".claude/session-logs/child1.jsonl", ".claude/session-logs/sess42.jsonl"}, strings.Split(files, "\n"))
}

func TestCaptureCommitMessage(t *testing.T) {
	msg := CaptureCommitMessage("3f2a9c1e-77aa-4d1b-9f00-0123456789ab", 3)

	parsed, err := conventional.Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "chore", parsed.Type)
	assert.Equal(t, "session-logs", parsed.Scope)
	assert.Equal(t, "capture session 3f2a9c1e (3 files)", parsed.Subject)
	assert.Equal(t, "3f2a9c1e-77aa-4d1b-9f00-0123456789ab", parsed.Footer["Session"])

	assert.Equal(t, "chore(session-logs): capture session s1 (1 file)\n\nSession: s1", CaptureCommitMessage("s1", 1))
}
