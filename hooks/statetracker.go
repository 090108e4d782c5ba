package hooks

import (
	"context"
	"time"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/logging"
	"github.com/grovetools/hooks/schema"
	"github.com/grovetools/hooks/session"
	"github.com/grovetools/hooks/state"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/sirupsen/logrus"
)

// StateTrackerOptions configures a StateTracker.
type StateTrackerOptions struct {
	Config config.StateTrackerConfig
	// FS is used for the upward state root search; nil means the OS.
	FS pathutil.Stater
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// Validator checks records before they are touched; nil skips validation.
	Validator *schema.Validator
	Logger    *logrus.Entry
}

// StateTracker reconciles per-feature state records after a subagent stops.
//
// A record modified within the recent window counts as touched by the
// current session. The window is a heuristic: clock skew and concurrent
// sessions sharing one state root can misclassify records.
type StateTracker struct {
	cfg       config.StateTrackerConfig
	fsys      pathutil.Stater
	now       func() time.Time
	validator *schema.Validator
	logger    *logrus.Entry
}

// TrackReport describes one reconciliation pass.
type TrackReport struct {
	Status  Status
	Root    string
	Records int
	Recent  int
	Cleared []string
	Skipped []string
}

// NewStateTracker creates a StateTracker.
func NewStateTracker(opts StateTrackerOptions) *StateTracker {
	if opts.FS == nil {
		opts.FS = pathutil.OSStater{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("state-tracker")
	}
	return &StateTracker{
		cfg:       opts.Config,
		fsys:      opts.FS,
		now:       opts.Now,
		validator: opts.Validator,
		logger:    opts.Logger,
	}
}

func (s *StateTracker) Name() string { return "state-tracker" }

func (s *StateTracker) Fallback() any {
	return NewStateResult(string(session.KindSubagentStop), StatusError, s.now())
}

// Handle reconciles state records and reports the aggregate status.
func (s *StateTracker) Handle(ctx context.Context, event *session.Event) any {
	report := s.Track(ctx, event)
	s.logger.WithFields(logrus.Fields{
		"status":  report.Status,
		"root":    report.Root,
		"records": report.Records,
		"recent":  report.Recent,
		"cleared": len(report.Cleared),
	}).Debug("State reconciled")

	kind := event.Kind
	if kind == "" {
		kind = session.KindSubagentStop
	}
	return NewStateResult(string(kind), report.Status, s.now())
}

// Track performs one reconciliation pass.
func (s *StateTracker) Track(ctx context.Context, event *session.Event) *TrackReport {
	report := &TrackReport{}

	if s.cfg.Disabled {
		report.Status = StatusDisabled
		return report
	}

	root, ok := state.FindRoot(s.fsys, event.WorkingDir(), s.cfg.StateDir)
	if !ok {
		report.Status = StatusNoState
		return report
	}
	report.Root = root

	paths, err := state.Discover(root, s.cfg.RecordFile)
	if err != nil {
		s.logger.WithError(err).WithField("root", root).Warn("Failed to list state root")
		report.Status = StatusError
		return report
	}
	if len(paths) == 0 {
		report.Status = StatusNoFiles
		return report
	}

	now := s.now()
	window := s.cfg.RecentWindow()
	for _, path := range paths {
		if ctx.Err() != nil {
			s.logger.WithError(ctx.Err()).Warn("Stopping state reconciliation")
			report.Status = StatusError
			return report
		}

		record, err := state.Load(path, s.validator)
		if err != nil {
			s.logger.WithFields(groveFields(err)).Debug("Skipping state record")
			report.Skipped = append(report.Skipped, path)
			continue
		}
		report.Records++

		if state.RecentlyModified(record.ModTime, now, window) {
			report.Recent++
		}

		if record.ClearSession(now) {
			if err := record.Save(); err != nil {
				s.logger.WithError(err).WithField("path", path).Warn("Failed to clear session")
				continue
			}
			s.logger.WithField("path", path).Debug("Cleared active session")
			report.Cleared = append(report.Cleared, path)
		}
	}

	switch {
	case len(report.Cleared) > 0:
		report.Status = StatusSessionCleared
	case report.Recent > 0:
		report.Status = StatusVerified
	default:
		report.Status = StatusUnchanged
	}
	return report
}
