package cmd

import (
	"context"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the grove-hooks command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"grove-hooks",
		"Session lifecycle hooks: log capture, state tracking and change staging",
	)
	root.Long = `grove-hooks is invoked by the coding assistant host at SessionEnd and
SubagentStop. Each hook reads a JSON payload on stdin, writes one JSON
result on stdout and always exits 0.

Examples:
  # Print the settings block that installs the hooks
  grove-hooks settings

  # Check what the hooks would act on here
  grove-hooks status`

	root.AddCommand(NewCaptureLogsCmd())
	root.AddCommand(NewTrackStateCmd())
	root.AddCommand(NewStageChangesCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewLogsCmd())
	root.AddCommand(NewSettingsCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(cli.NewVersionCommand("grove-hooks"))

	cli.SetVersionTemplate(root, version.GetInfo())
	cli.SetStyledHelp(root)
	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
