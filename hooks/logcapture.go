package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/conventional"
	"github.com/grovetools/hooks/errors"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/logging"
	"github.com/grovetools/hooks/session"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/sirupsen/logrus"
)

// Reasons LogCapture did nothing.
const (
	SkipDisabled     = "disabled"
	SkipNoTranscript = "no_transcript"
	SkipNoSessionID  = "no_session_id"
	SkipNoStartTime  = "no_start_time"
	SkipNoLogs       = "no_logs"
	SkipNoGit        = "no_git"
)

// commitScope tags LogCapture commits.
const commitScope = "session-logs"

// LogCaptureOptions configures a LogCapture.
type LogCaptureOptions struct {
	Config    config.LogCaptureConfig
	Index     git.Index
	FileTimes session.FileTimesFunc
	Logger    *logrus.Entry
	// DryRun computes the manifest without copying, staging or committing.
	DryRun bool
}

// LogCapture archives the logs written during a session into the
// repository and commits them.
type LogCapture struct {
	cfg    config.LogCaptureConfig
	index  git.Index
	times  session.FileTimesFunc
	logger *logrus.Entry
	dryRun bool
}

// CaptureReport describes what a capture did.
type CaptureReport struct {
	Skipped     string
	SessionID   string
	Destination string
	Selected    []session.Candidate
	Copied      []string
	Staged      []string
	Committed   bool
}

// NewLogCapture creates a LogCapture.
func NewLogCapture(opts LogCaptureOptions) *LogCapture {
	if opts.Index == nil {
		opts.Index = git.NewCLIRepository()
	}
	if opts.FileTimes == nil {
		opts.FileTimes = session.StatTimes
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("log-capture")
	}
	return &LogCapture{
		cfg:    opts.Config,
		index:  opts.Index,
		times:  opts.FileTimes,
		logger: opts.Logger,
		dryRun: opts.DryRun,
	}
}

func (c *LogCapture) Name() string { return "log-capture" }

func (c *LogCapture) Fallback() any { return Continue }

// Handle runs the capture and always returns the continue result.
func (c *LogCapture) Handle(ctx context.Context, event *session.Event) any {
	report, err := c.Capture(ctx, event)
	if err != nil {
		c.logger.WithError(err).Warn("Log capture failed")
		return Continue
	}
	if report.Skipped != "" {
		c.logger.WithField("reason", report.Skipped).Debug("Log capture skipped")
		return Continue
	}
	c.logger.WithFields(logrus.Fields{
		"session":   report.SessionID,
		"selected":  len(report.Selected),
		"copied":    len(report.Copied),
		"staged":    len(report.Staged),
		"committed": report.Committed,
	}).Info("Session logs captured")
	return Continue
}

// Capture performs the capture. Expected no-op conditions are reported via
// CaptureReport.Skipped, not as errors.
func (c *LogCapture) Capture(ctx context.Context, event *session.Event) (*CaptureReport, error) {
	report := &CaptureReport{}

	if !c.cfg.Enabled {
		report.Skipped = SkipDisabled
		return report, nil
	}
	if event.TranscriptPath == "" {
		report.Skipped = SkipNoTranscript
		return report, nil
	}

	sessionID, err := session.IDFromTranscript(event.TranscriptPath)
	if err != nil {
		c.logger.WithFields(groveFields(err)).Debug("No session id")
		report.Skipped = SkipNoSessionID
		return report, nil
	}
	report.SessionID = sessionID
	logger := c.logger.WithField("session", sessionID)

	start, err := session.StartTime(event.TranscriptPath, c.times)
	if err != nil {
		logger.WithFields(groveFields(err)).Debug("Session start time unavailable")
		report.Skipped = SkipNoStartTime
		return report, nil
	}

	selected, err := session.DiscoverLogs(filepath.Dir(event.TranscriptPath), sessionID, start, c.times)
	if err != nil {
		return report, fmt.Errorf("list session logs: %w", err)
	}
	report.Selected = selected
	for _, cand := range selected {
		logger.WithFields(logrus.Fields{"file": cand.Name, "reason": cand.Reason}).Debug("Selected log")
	}
	if len(selected) == 0 {
		report.Skipped = SkipNoLogs
		return report, nil
	}

	cwd := event.WorkingDir()
	dest, err := pathutil.Expand(c.cfg.Destination, cwd)
	if err != nil {
		return report, fmt.Errorf("resolve destination: %w", err)
	}
	report.Destination = dest

	if c.dryRun {
		for _, cand := range selected {
			logger.WithField("file", cand.Name).Info("Would copy")
		}
		logger.WithField("destination", dest).Info("Dry run: no files copied")
		return report, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return report, fmt.Errorf("create destination: %w", err)
	}
	for _, cand := range selected {
		target := filepath.Join(dest, cand.Name)
		if err := copyFile(cand.Path, target); err != nil {
			logger.WithError(err).WithField("file", cand.Name).Warn("Failed to copy log")
			continue
		}
		report.Copied = append(report.Copied, target)
	}
	if len(report.Copied) == 0 {
		return report, nil
	}

	return report, c.commit(ctx, logger, report)
}

func (c *LogCapture) commit(ctx context.Context, logger *logrus.Entry, report *CaptureReport) error {
	if !c.index.IsRepo(ctx, report.Destination) {
		report.Skipped = SkipNoGit
		return nil
	}
	root, err := c.index.Root(ctx, report.Destination)
	if err != nil {
		return err
	}
	root, err = pathutil.CanonicalPath(root)
	if err != nil {
		return err
	}

	for _, copied := range report.Copied {
		abs, err := pathutil.CanonicalPath(copied)
		if err != nil {
			logger.WithError(err).WithField("file", copied).Warn("Failed to resolve copied log")
			continue
		}
		rel, ok := pathutil.RelativeWithin(root, abs)
		if !ok {
			logger.WithField("file", copied).Warn("Copied log is outside the repository")
			continue
		}
		if err := c.index.Add(ctx, root, rel); err != nil {
			logger.WithFields(groveFields(err)).WithField("file", rel).Warn("Failed to stage log")
			continue
		}
		report.Staged = append(report.Staged, rel)
	}
	if len(report.Staged) == 0 {
		return nil
	}

	message := CaptureCommitMessage(report.SessionID, len(report.Staged))
	err = c.index.Commit(ctx, root, message, report.Staged...)
	switch {
	case err == nil:
		report.Committed = true
		return nil
	case errors.Is(err, errors.ErrCodeNothingToCommit):
		logger.Debug("Logs already committed")
		return nil
	default:
		return err
	}
}

// CaptureCommitMessage builds the LogCapture commit message: the first 8
// characters of the session id and the file count in the subject, the full
// id in a trailer.
func CaptureCommitMessage(sessionID string, files int) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	noun := "files"
	if files == 1 {
		noun = "file"
	}
	commit := conventional.Commit{
		Type:    "chore",
		Scope:   commitScope,
		Subject: fmt.Sprintf("capture session %s (%d %s)", short, files, noun),
		Footer:  map[string]string{"Session": sessionID},
	}
	return commit.String()
}

// copyFile copies src over dst through a temporary file so a failed copy
// never leaves a truncated log behind.
func copyFile(src, dst string) error {
	if same, err := sameFile(src, dst); err == nil && same {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// groveFields returns structured log fields for err.
func groveFields(err error) logrus.Fields {
	if ge, ok := err.(*errors.GroveError); ok {
		fields := logrus.Fields{}
		for k, v := range ge.Fields() {
			fields[k] = v
		}
		fields[logrus.ErrorKey] = ge.Error()
		return fields
	}
	return logrus.Fields{logrus.ErrorKey: err}
}
