package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the hooks log file",
		Long: `Prints the log file configured under logging.file in the hooks config file.
Hooks never write a log file unless one is configured.

Examples:
  # Follow the hooks log
  grove-hooks logs -f

  # Show the last 50 lines as JSON Lines
  grove-hooks logs -n 50 --json`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().Bool("json", false, "Output logs in JSON Lines format")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, loadErr := cli.LoadConfig(cmd, cwd)
	if loadErr != nil {
		cli.GetLogger(cmd, "logs").WithError(loadErr).Warn("Config file ignored")
	}
	var logCfg logging.Config
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		return err
	}

	path := logging.FileSinkPath(logCfg, cwd)
	if path == "" {
		return fmt.Errorf("no log file configured: set logging.file.enabled and logging.file.path in the hooks config")
	}

	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	emit := func(line string) {
		if jsonOutput {
			printLogJSON(cmd.OutOrStdout(), line)
		} else {
			printLogText(cmd.OutOrStdout(), line)
		}
	}

	ctx := commandContext(cmd)
	return tailLog(ctx, path, lines, follow, emit)
}

// tailLog prints the last n lines of path (all lines when n < 0) and, when
// follow is set, keeps printing appended lines until ctx is done.
func tailLog(ctx context.Context, path string, n int, follow bool, emit func(string)) error {
	if _, err := os.Stat(path); err != nil && !follow {
		return fmt.Errorf("log file not found: %w", err)
	}

	backlog, err := readLines(path, n)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range backlog {
		emit(line)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			emit(line.Text)
		}
	}
}

// readLines returns the last n lines of path, or all of them when n < 0.
func readLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{
		MustExist: true,
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, err
	}
	defer t.Cleanup()

	var lines []string
	for line := range t.Lines {
		if line.Err != nil || line.Text == "" {
			continue
		}
		lines = append(lines, line.Text)
		if n >= 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, nil
}

// printLogJSON prints a log line as JSON, wrapping non-JSON lines.
func printLogJSON(w io.Writer, line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		logMap = map[string]interface{}{"raw_line": line}
	}
	data, _ := json.Marshal(logMap)
	fmt.Fprintln(w, string(data))
}

// printLogText pretty-prints JSON log lines and passes text lines through.
func printLogText(w io.Writer, line string) {
	s := cli.DefaultStyles

	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fmt.Fprintln(w, line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Local().Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = s.Error
	case "warning":
		levelStyle = s.Warning
	case "info":
		levelStyle = s.Info
	default:
		levelStyle = s.Muted
	}

	var keys []string
	for k := range logMap {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", s.Muted.Render(k), logMap[k]))
	}

	fmt.Fprintf(w, "%s %s [%s] %s %s\n",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		s.Accent.Render(component),
		msg,
		strings.Join(fields, " "),
	)
}
