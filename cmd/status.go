package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/git"
	"github.com/grovetools/hooks/state"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/spf13/cobra"
)

// StatusOutput is what `status` reports about the current directory.
type StatusOutput struct {
	ConfigFile   string          `json:"config_file,omitempty"`
	LogCapture   bool            `json:"log_capture"`
	StateTracker bool            `json:"state_tracker"`
	ChangeStager bool            `json:"change_stager"`
	Remote       bool            `json:"remote"`
	RemoteSource string          `json:"remote_source,omitempty"`
	ProjectRoot  string          `json:"project_root,omitempty"`
	StateRoot    string          `json:"state_root,omitempty"`
	StateRecords int             `json:"state_records"`
	Features     []FeatureStatus `json:"features,omitempty"`
	Git          *git.StatusInfo `json:"git,omitempty"`
}

// FeatureStatus summarizes one feature state record.
type FeatureStatus struct {
	Name          string `json:"name"`
	Phase         string `json:"phase,omitempty"`
	Cycle         string `json:"cycle,omitempty"`
	Session       string `json:"session,omitempty"`
	LastCompleted string `json:"last_session_completed,omitempty"`
	Invalid       bool   `json:"invalid,omitempty"`
}

// NewStatusCmd creates the `status` command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the hooks would act on from the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			cfg, loadErr := cli.LoadConfig(cmd, cwd)
			if loadErr != nil {
				cli.GetLogger(cmd, "status").WithError(loadErr).Warn("Config file ignored")
			}

			out := StatusOutput{
				ConfigFile:   configSource(cmd, cwd),
				LogCapture:   cfg.LogCapture.Enabled,
				StateTracker: !cfg.StateTracker.Disabled,
				ChangeStager: !cfg.ChangeStager.Disabled,
			}
			out.Remote, out.RemoteSource = config.DetectRemote(nil)

			if root, ok := pathutil.FindMarkerDirectory(nil, cwd, cfg.ChangeStager.ProjectMarker); ok {
				out.ProjectRoot = root
			}
			if root, ok := state.FindRoot(nil, cwd, cfg.StateTracker.StateDir); ok {
				out.StateRoot = root
				if records, err := state.Discover(root, cfg.StateTracker.RecordFile); err == nil {
					out.StateRecords = len(records)
					out.Features = featureStatuses(records)
				}
			}

			ctx := commandContext(cmd)
			repo := git.NewCLIRepository().WithTimeout(cfg.Git.Timeout)
			if repo.IsRepo(ctx, cwd) {
				info, err := repo.Status(ctx, cwd)
				if err != nil {
					return err
				}
				out.Git = info
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printStatus(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

// featureStatuses loads each record for display. Records that cannot be
// parsed are listed as invalid.
func featureStatuses(paths []string) []FeatureStatus {
	features := make([]FeatureStatus, 0, len(paths))
	for _, path := range paths {
		feature := FeatureStatus{Name: filepath.Base(filepath.Dir(path))}
		record, err := state.Load(path, nil)
		if err != nil {
			feature.Invalid = true
			features = append(features, feature)
			continue
		}
		feature.Phase = fieldText(record, state.FieldPhase)
		feature.Cycle = fieldText(record, state.FieldCycle)
		if record.HasActiveSession() {
			feature.Session = fieldText(record, state.FieldSessionID)
		}
		feature.LastCompleted, _ = record.StringField(state.FieldLastSessionCompleted)
		features = append(features, feature)
	}
	return features
}

// fieldText renders a record field: strings unquoted, other values as JSON,
// null and absent fields as "".
func fieldText(record *state.Record, key string) string {
	if s, ok := record.StringField(key); ok {
		return s
	}
	raw, ok := record.Raw(key)
	if !ok || string(raw) == "null" {
		return ""
	}
	return string(raw)
}

func printStatus(w io.Writer, out StatusOutput) {
	s := cli.DefaultStyles
	onOff := func(on bool) string {
		if on {
			return s.Success.Render("enabled")
		}
		return s.Muted.Render("disabled")
	}
	orNone := func(v string) string {
		if v == "" {
			return s.Muted.Render("none")
		}
		return v
	}

	fmt.Fprintln(w, s.Header.Render("HOOKS"))
	fmt.Fprintf(w, "  capture-logs   %s\n", onOff(out.LogCapture))
	fmt.Fprintf(w, "  track-state    %s\n", onOff(out.StateTracker))
	fmt.Fprintf(w, "  stage-changes  %s\n", onOff(out.ChangeStager))

	fmt.Fprintln(w, s.Header.Render("CONTEXT"))
	fmt.Fprintf(w, "  config         %s\n", orNone(out.ConfigFile))
	fmt.Fprintf(w, "  project        %s\n", orNone(out.ProjectRoot))
	fmt.Fprintf(w, "  state root     %s (%d records)\n", orNone(out.StateRoot), out.StateRecords)
	for _, f := range out.Features {
		if f.Invalid {
			fmt.Fprintf(w, "    %-12s %s\n", f.Name, s.Warning.Render("unreadable"))
			continue
		}
		line := fmt.Sprintf("phase %s", orNone(f.Phase))
		if f.Cycle != "" {
			line += ", cycle " + f.Cycle
		}
		if f.Session != "" {
			line += ", " + s.Accent.Render("session "+f.Session)
		} else if f.LastCompleted != "" {
			line += s.Muted.Render(", idle since " + f.LastCompleted)
		}
		fmt.Fprintf(w, "    %-12s %s\n", f.Name, line)
	}
	remote := "local"
	if out.Remote {
		remote = "remote via " + out.RemoteSource
	}
	fmt.Fprintf(w, "  session        %s\n", remote)

	if out.Git == nil {
		fmt.Fprintf(w, "  git            %s\n", s.Muted.Render("not a repository"))
		return
	}
	fmt.Fprintln(w, s.Header.Render("GIT"))
	fmt.Fprintf(w, "  %s on %s\n", s.Accent.Render(out.Git.Repo), out.Git.Branch)
	fmt.Fprintf(w, "  staged %d, modified %d, untracked %d\n", out.Git.StagedCount, out.Git.ModifiedCount, out.Git.UntrackedCount)
	if out.Git.HasUpstream {
		fmt.Fprintf(w, "  ahead %d, behind %d\n", out.Git.AheadCount, out.Git.BehindCount)
	}
}
