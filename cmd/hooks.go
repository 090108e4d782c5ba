package cmd

import (
	"bytes"
	"errors"
	"io"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/hooks"
	"github.com/grovetools/hooks/logging"
	"github.com/grovetools/hooks/schema"
	"github.com/grovetools/hooks/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// hookSetup describes how a hook subcommand builds its hook once the
// configuration is known.
type hookSetup struct {
	component string
	dryRun    bool
	debug     func(cfg *config.Config) bool
	build     func(cfg *config.Config, logger *logrus.Entry) hooks.Hook
}

// NewCaptureLogsCmd creates the SessionEnd log capture hook command.
func NewCaptureLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture-logs",
		Short: "SessionEnd hook: archive session logs and commit them",
		Long: `Copies the *.jsonl logs written during the session (the transcript and any
subagent logs) into the project and commits them. Runs only when
CLAUDE_LOG_CAPTURE=1. Always prints {"continue":true} and exits 0.

Examples:
  # Preview which logs would be captured
  echo '{"transcript_path":"/path/abc.jsonl","cwd":"."}' | CLAUDE_LOG_CAPTURE=1 grove-hooks capture-logs --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runHook(cmd, hookSetup{
				component: "log-capture",
				dryRun:    dryRun,
				debug:     func(cfg *config.Config) bool { return cfg.LogCapture.Debug },
				build: func(cfg *config.Config, logger *logrus.Entry) hooks.Hook {
					return hooks.NewLogCapture(hooks.LogCaptureOptions{
						Config: cfg.LogCapture,
						Index:  git.NewCLIRepository().WithTimeout(cfg.Git.Timeout),
						Logger: logger,
						DryRun: dryRun,
					})
				},
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "Select logs without copying or committing")
	return cmd
}

// NewTrackStateCmd creates the SubagentStop state tracking hook command.
func NewTrackStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track-state",
		Short: "SubagentStop hook: reconcile per-feature state records",
		Long: `Finds the nearest .features folder above the working directory, clears the
session id of every feature record that still holds one and reports an
aggregate status as hookSpecificOutput.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, hookSetup{
				component: "state-tracker",
				debug:     func(cfg *config.Config) bool { return cfg.StateTracker.Debug },
				build: func(cfg *config.Config, logger *logrus.Entry) hooks.Hook {
					validator, err := schema.NewFeatureStateValidator()
					if err != nil {
						logger.WithError(err).Warn("Feature state schema unavailable, records are not validated")
					}
					return hooks.NewStateTracker(hooks.StateTrackerOptions{
						Config:    cfg.StateTracker,
						Validator: validator,
						Logger:    logger,
					})
				},
			})
		},
	}
}

// NewStageChangesCmd creates the SessionEnd change staging hook command.
func NewStageChangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage-changes",
		Short: "SessionEnd hook: stage the current project's changes",
		Long: `Stages modified and untracked files of the project containing the working
directory. The project root is the nearest directory holding a .claude
folder, or the git root. Nothing is ever committed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runHook(cmd, hookSetup{
				component: "change-stager",
				dryRun:    dryRun,
				debug:     func(cfg *config.Config) bool { return cfg.ChangeStager.Debug },
				build: func(cfg *config.Config, logger *logrus.Entry) hooks.Hook {
					return hooks.NewChangeStager(hooks.ChangeStagerOptions{
						Config: cfg.ChangeStager,
						Index:  git.NewCLIRepository().WithTimeout(cfg.Git.Timeout),
						Logger: logger,
						DryRun: dryRun,
					})
				},
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "List the files that would be staged without staging them")
	return cmd
}

// runHook reads the payload once to locate the configuration, configures
// logging and hands the payload to the runner. Dry runs always log to
// stderr. It never returns an error:
// hooks must not fail the host's lifecycle.
func runHook(cmd *cobra.Command, setup hookSetup) error {
	payload, _ := io.ReadAll(io.LimitReader(cmd.InOrStdin(), session.MaxInputBytes+1))
	event, _ := session.ReadEvent(bytes.NewReader(payload))

	cfg, cfgErr := cli.LoadConfig(cmd, event.WorkingDir())

	var logCfg logging.Config
	extErr := cfg.UnmarshalExtension("logging", &logCfg)

	logging.Configure(logging.Settings{
		Config:  logCfg,
		Debug:   setup.debug(cfg) || setup.dryRun || cli.GetOptions(cmd).Verbose,
		Stderr:  cmd.ErrOrStderr(),
		BaseDir: event.WorkingDir(),
	})

	logger := logging.NewLogger(setup.component)
	if cfgErr != nil {
		logger.WithError(cfgErr).Warn("Ignoring config file")
	}
	if extErr != nil {
		logger.WithError(extErr).Warn("Ignoring logging config")
	}

	ctx := commandContext(cmd)

	runner := &hooks.Runner{
		Stdin:   bytes.NewReader(payload),
		Stdout:  cmd.OutOrStdout(),
		Timeout: cfg.Timeout,
		Logger:  logger,
	}
	err := runner.Run(ctx, setup.build(cfg, logger))
	if errors.Is(err, hooks.ErrAbandoned) {
		// The hook goroutine may still log; its file sink is closed on exit.
		return nil
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to write hook result")
	}
	logging.Close()
	return nil
}
