package hooks

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/schema"
	"github.com/grovetools/hooks/session"
	"github.com/grovetools/hooks/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackerNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// writeRecord writes .features/<feature>/implement.json under root with the
// given modification time.
func writeRecord(t *testing.T, root, feature, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, config.DefaultStateDir, feature, config.DefaultRecordFile)
	testutil.WriteFile(t, path, content)
	testutil.SetModTime(t, path, mtime)
	return path
}

func newTracker(t *testing.T, cfg config.StateTrackerConfig) *StateTracker {
	t.Helper()
	return NewStateTracker(StateTrackerOptions{
		Config: cfg,
		Now:    func() time.Time { return trackerNow },
		Logger: quietLogger(t),
	})
}

func subagentStop(cwd string) *session.Event {
	return &session.Event{Kind: session.KindSubagentStop, CWD: cwd}
}

func TestStateTracker_ClearsActiveSession(t *testing.T) {
	root := t.TempDir()
	path := writeRecord(t, root, "auth", `{"session_id":"s1"}`, trackerNow.Add(-time.Hour))

	tracker := newTracker(t, config.Default().StateTracker)
	report := tracker.Track(context.Background(), subagentStop(root))

	assert.Equal(t, StatusSessionCleared, report.Status)
	assert.Equal(t, []string{path}, report.Cleared)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"session_id\": null,\n  \"last_session_completed\": \"2026-01-02T03:04:05Z\"\n}\n", string(data))
}

func TestStateTracker_Statuses(t *testing.T) {
	idle := `{"phase":"review","session_id":null}`

	tests := []struct {
		name    string
		setup   func(t *testing.T, root string)
		cfg     func() config.StateTrackerConfig
		want    Status
		records int
	}{
		{
			name:  "disabled",
			setup: func(t *testing.T, root string) { writeRecord(t, root, "a", `{"session_id":"s1"}`, trackerNow) },
			cfg: func() config.StateTrackerConfig {
				cfg := config.Default().StateTracker
				cfg.Disabled = true
				return cfg
			},
			want: StatusDisabled,
		},
		{
			name:  "no state root",
			setup: func(t *testing.T, root string) {},
			want:  StatusNoState,
		},
		{
			name: "state root without records",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.MkdirAll(filepath.Join(root, config.DefaultStateDir, "empty"), 0o755))
				testutil.WriteFile(t, filepath.Join(root, config.DefaultStateDir, "stray.json"), "{}")
			},
			want: StatusNoFiles,
		},
		{
			name:    "recently modified idle record",
			setup:   func(t *testing.T, root string) { writeRecord(t, root, "a", idle, trackerNow.Add(-5*time.Minute)) },
			want:    StatusVerified,
			records: 1,
		},
		{
			name:    "future modification time counts as recent",
			setup:   func(t *testing.T, root string) { writeRecord(t, root, "a", idle, trackerNow.Add(time.Minute)) },
			want:    StatusVerified,
			records: 1,
		},
		{
			name:    "old idle record",
			setup:   func(t *testing.T, root string) { writeRecord(t, root, "a", idle, trackerNow.Add(-2*time.Hour)) },
			want:    StatusUnchanged,
			records: 1,
		},
		{
			name: "cleared outranks recent",
			setup: func(t *testing.T, root string) {
				writeRecord(t, root, "a", idle, trackerNow)
				writeRecord(t, root, "b", `{"session_id":"s9"}`, trackerNow.Add(-2*time.Hour))
			},
			want:    StatusSessionCleared,
			records: 2,
		},
		{
			name: "narrow window",
			setup: func(t *testing.T, root string) {
				writeRecord(t, root, "a", idle, trackerNow.Add(-10*time.Minute))
			},
			cfg: func() config.StateTrackerConfig {
				cfg := config.Default()
				config.ApplyEnv(cfg, config.MapLookup(map[string]string{config.EnvStateTrackerWindow: "5"}))
				return cfg.StateTracker
			},
			want:    StatusUnchanged,
			records: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			cfg := config.Default().StateTracker
			if tt.cfg != nil {
				cfg = tt.cfg()
			}

			report := newTracker(t, cfg).Track(context.Background(), subagentStop(root))
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, tt.records, report.Records)
		})
	}
}

func TestStateTracker_IdleRecordByteIdentical(t *testing.T) {
	root := t.TempDir()
	original := "{\"phase\": \"plan\",   \"cycle\": 3, \"session_id\": null}"
	path := writeRecord(t, root, "a", original, trackerNow.Add(-time.Minute))

	report := newTracker(t, config.Default().StateTracker).Track(context.Background(), subagentStop(root))
	assert.Equal(t, StatusVerified, report.Status)
	assert.Empty(t, report.Cleared)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func newValidatingTracker(t *testing.T) *StateTracker {
	t.Helper()
	validator, err := schema.NewFeatureStateValidator()
	require.NoError(t, err)

	return NewStateTracker(StateTrackerOptions{
		Config:    config.Default().StateTracker,
		Now:       func() time.Time { return trackerNow },
		Validator: validator,
		Logger:    quietLogger(t),
	})
}

func TestStateTracker_SkipsInvalidRecords(t *testing.T) {
	root := t.TempDir()
	broken := writeRecord(t, root, "a", "not json", trackerNow)
	notObject := writeRecord(t, root, "b", `[{"session_id":"s1"}]`, trackerNow)
	writeRecord(t, root, "c", `{"session_id":null}`, trackerNow.Add(-2*time.Hour))

	report := newValidatingTracker(t).Track(context.Background(), subagentStop(root))

	assert.Equal(t, StatusUnchanged, report.Status)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, []string{broken, notObject}, report.Skipped)

	data, err := os.ReadFile(broken)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}

func TestStateTracker_ClearsNonStringFields(t *testing.T) {
	root := t.TempDir()
	login := writeRecord(t, root, "login", `{"phase":2,"cycle":1,"session_id":"s1"}`, trackerNow.Add(-2*time.Hour))
	numeric := writeRecord(t, root, "numeric", `{"phase":3,"session_id":42}`, trackerNow.Add(-2*time.Hour))

	report := newValidatingTracker(t).Track(context.Background(), subagentStop(root))

	assert.Equal(t, StatusSessionCleared, report.Status)
	assert.Equal(t, 2, report.Records)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{login, numeric}, report.Cleared)

	data, err := os.ReadFile(login)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"phase\": 2,\n  \"cycle\": 1,\n  \"session_id\": null,\n  \"last_session_completed\": \"2026-01-02T03:04:05Z\"\n}\n", string(data))

	data, err = os.ReadFile(numeric)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id": null`)
	assert.Contains(t, string(data), `"phase": 3`)
}

func TestStateTracker_NonStringRecordCountsAsRecent(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "login", `{"phase":2,"cycle":1,"session_id":null}`, trackerNow.Add(-time.Minute))

	report := newValidatingTracker(t).Track(context.Background(), subagentStop(root))
	assert.Equal(t, StatusVerified, report.Status)
	assert.Equal(t, 1, report.Records)
}

func TestStateTracker_FindsRootAboveCwd(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "a", `{"session_id":"s1"}`, trackerNow)
	deep := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	report := newTracker(t, config.Default().StateTracker).Track(context.Background(), subagentStop(deep))
	assert.Equal(t, StatusSessionCleared, report.Status)
	assert.Equal(t, filepath.Join(root, config.DefaultStateDir), report.Root)
}

// phantomFS reports a directory that does not exist on disk.
type phantomFS struct{ dir string }

func (p phantomFS) Stat(name string) (os.FileInfo, error) {
	if filepath.Clean(name) == p.dir {
		return os.Stat(os.TempDir())
	}
	return nil, fs.ErrNotExist
}

func TestStateTracker_UnreadableRootIsError(t *testing.T) {
	root := t.TempDir()
	tracker := NewStateTracker(StateTrackerOptions{
		Config: config.Default().StateTracker,
		FS:     phantomFS{dir: filepath.Join(root, config.DefaultStateDir)},
		Now:    func() time.Time { return trackerNow },
		Logger: quietLogger(t),
	})

	report := tracker.Track(context.Background(), subagentStop(root))
	assert.Equal(t, StatusError, report.Status)
}

func TestStateTracker_CancelledContext(t *testing.T) {
	root := t.TempDir()
	path := writeRecord(t, root, "a", `{"session_id":"s1"}`, trackerNow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTracker(t, config.Default().StateTracker).Track(ctx, subagentStop(root))
	assert.Equal(t, StatusError, report.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"session_id":"s1"}`, string(data))
}

func TestStateTracker_HandleResult(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "a", `{"session_id":"s1"}`, trackerNow)
	tracker := newTracker(t, config.Default().StateTracker)

	result := tracker.Handle(context.Background(), subagentStop(root))
	assert.Equal(t, StateResult{HookSpecificOutput: StateOutput{
		HookEventName: "SubagentStop",
		Status:        StatusSessionCleared,
		Timestamp:     "2026-01-02T03:04:05Z",
	}}, result)

	// An event without a name still reports SubagentStop.
	result = tracker.Handle(context.Background(), &session.Event{CWD: t.TempDir()})
	assert.Equal(t, "SubagentStop", result.(StateResult).HookSpecificOutput.HookEventName)

	fallback := tracker.Fallback().(StateResult)
	assert.Equal(t, StatusError, fallback.HookSpecificOutput.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", fallback.HookSpecificOutput.Timestamp)
}
