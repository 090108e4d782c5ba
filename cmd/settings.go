package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/logging"
	"github.com/grovetools/hooks/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// settingsFile is the host settings file inside the project marker folder.
const settingsFile = "settings.json"

type hookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type hookMatcher struct {
	Hooks []hookCommand `json:"hooks"`
}

// NewSettingsCmd creates the `settings` command.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print or install the hooks block for .claude/settings.json",
		Long: `Prints the hooks block that wires capture-logs and stage-changes to
SessionEnd and track-state to SubagentStop. With --write the block is
merged into the project's .claude/settings.json; other settings and
other hook events are kept as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, _ := cmd.Flags().GetString("binary")
			write, _ := cmd.Flags().GetBool("write")

			if !write {
				data, err := mergeSettings(nil, binary)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
					fmt.Fprintln(out, cli.DefaultStyles.Muted.Render("# Add to .claude/settings.json"))
				}
				fmt.Fprint(out, string(data))
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			path := settingsPath(cwd)
			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			data, err := mergeSettings(existing, binary)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", path, err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			console := logging.NewConsole(cmd.OutOrStdout())
			console.Success("hooks installed")
			console.Path("settings", path)
			return nil
		},
	}
	cmd.Flags().String("binary", "grove-hooks", "Command used to invoke the hooks")
	cmd.Flags().Bool("write", false, "Merge the hooks block into .claude/settings.json")
	return cmd
}

// settingsPath returns the settings file of the project containing dir.
func settingsPath(dir string) string {
	root, ok := pathutil.FindMarkerDirectory(nil, dir, config.DefaultProjectMarker)
	if !ok {
		root = dir
	}
	return filepath.Join(root, config.DefaultProjectMarker, settingsFile)
}

// hookEvents returns the event to matcher mapping installed by grove-hooks.
func hookEvents(binary string) *orderedmap.OrderedMap[string, []hookMatcher] {
	events := orderedmap.New[string, []hookMatcher]()
	events.Set("SessionEnd", []hookMatcher{{Hooks: []hookCommand{
		{Type: "command", Command: binary + " capture-logs"},
		{Type: "command", Command: binary + " stage-changes"},
	}}})
	events.Set("SubagentStop", []hookMatcher{{Hooks: []hookCommand{
		{Type: "command", Command: binary + " track-state"},
	}}})
	return events
}

// mergeSettings sets the grove-hooks events inside the "hooks" object of
// an existing settings document, keeping every other key in place. A nil
// or empty document yields a document holding only the hooks block.
func mergeSettings(existing []byte, binary string) ([]byte, error) {
	doc := orderedmap.New[string, json.RawMessage]()
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := doc.UnmarshalJSON(existing); err != nil {
			return nil, fmt.Errorf("settings are not a JSON object: %w", err)
		}
	}

	hooksObj := orderedmap.New[string, json.RawMessage]()
	if raw, ok := doc.Get("hooks"); ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := hooksObj.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("\"hooks\" is not a JSON object: %w", err)
		}
	}

	for pair := hookEvents(binary).Oldest(); pair != nil; pair = pair.Next() {
		existing, _ := hooksObj.Get(pair.Key)
		merged, err := mergeEvent(existing, pair.Value)
		if err != nil {
			return nil, fmt.Errorf("hooks.%s: %w", pair.Key, err)
		}
		hooksObj.Set(pair.Key, merged)
	}

	rawHooks, err := hooksObj.MarshalJSON()
	if err != nil {
		return nil, err
	}
	doc.Set("hooks", rawHooks)

	compact, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// mergeEvent appends the commands of wanted that the event's matcher list
// does not run yet. Existing matchers are kept byte for byte.
func mergeEvent(existing json.RawMessage, wanted []hookMatcher) (json.RawMessage, error) {
	var matchers []json.RawMessage
	if trimmed := bytes.TrimSpace(existing); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &matchers); err != nil {
			return nil, fmt.Errorf("not a list of matchers: %w", err)
		}
	}

	present := map[string]bool{}
	for _, raw := range matchers {
		var m hookMatcher
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		for _, h := range m.Hooks {
			present[h.Command] = true
		}
	}

	for _, m := range wanted {
		var missing []hookCommand
		for _, h := range m.Hooks {
			if !present[h.Command] {
				missing = append(missing, h)
			}
		}
		if len(missing) == 0 {
			continue
		}
		raw, err := json.Marshal(hookMatcher{Hooks: missing})
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, raw)
	}

	if matchers == nil {
		matchers = []json.RawMessage{}
	}
	return json.Marshal(matchers)
}
