package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the effective configuration of the three session hooks. It is
// built once per invocation (defaults, optional file, environment) and
// injected into each hook so tests never touch the real environment.
type Config struct {
	LogCapture   LogCaptureConfig   `yaml:"log_capture" json:"log_capture" jsonschema:"description=Session log archiving on SessionEnd"`
	StateTracker StateTrackerConfig `yaml:"state_tracker" json:"state_tracker" jsonschema:"description=Feature state reconciliation on SubagentStop"`
	ChangeStager ChangeStagerConfig `yaml:"change_stager" json:"change_stager" jsonschema:"description=Working tree staging on SessionEnd"`
	Git          GitConfig          `yaml:"git" json:"git" jsonschema:"description=Git subprocess settings"`

	// Timeout bounds a whole hook invocation.
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"type=string,description=Deadline for a whole hook invocation (Go duration; default 60s)"`

	// Extensions holds top-level sections not known to the hooks themselves
	// (for example `logging`). Decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:"-" json:"-"`
}

// LogCaptureConfig configures the SessionEnd log archiver.
type LogCaptureConfig struct {
	// Enabled must be switched on explicitly; CLAUDE_LOG_CAPTURE=1 does the same.
	Enabled bool `yaml:"enabled" json:"enabled" jsonschema:"description=Archive session logs and commit them"`
	// Destination is relative to the session working directory.
	Destination string `yaml:"destination" json:"destination" jsonschema:"description=Directory (relative to cwd) receiving copied *.jsonl logs"`
	Debug       bool   `yaml:"debug" json:"debug" jsonschema:"description=Write diagnostics to stderr"`
}

// StateTrackerConfig configures the SubagentStop state reconciler.
type StateTrackerConfig struct {
	Disabled bool `yaml:"disabled" json:"disabled" jsonschema:"description=Skip state reconciliation"`
	Debug    bool `yaml:"debug" json:"debug" jsonschema:"description=Write diagnostics to stderr"`
	// RecentWindowMinutes is the trailing window used to classify a record as
	// touched by the current session. It is a heuristic: clock skew and
	// concurrent sessions sharing a state root can misclassify records.
	RecentWindowMinutes int    `yaml:"recent_window_minutes" json:"recent_window_minutes" jsonschema:"minimum=1,description=Minutes a record counts as recently modified"`
	StateDir            string `yaml:"state_dir" json:"state_dir" jsonschema:"description=Name of the state folder searched for upward from cwd"`
	RecordFile          string `yaml:"record_file" json:"record_file" jsonschema:"description=File name of the per-feature state record"`
}

// ChangeStagerConfig configures the SessionEnd stager.
type ChangeStagerConfig struct {
	Disabled      bool   `yaml:"disabled" json:"disabled" jsonschema:"description=Skip staging"`
	Debug         bool   `yaml:"debug" json:"debug" jsonschema:"description=Write diagnostics to stderr"`
	ProjectMarker string `yaml:"project_marker" json:"project_marker" jsonschema:"description=Directory name marking a project root"`
	MemoryFile    string `yaml:"memory_file" json:"memory_file" jsonschema:"description=Project memory file staged first"`
	// Exclude lists gitignore-style patterns (relative to the project root)
	// that are never staged.
	Exclude []string `yaml:"exclude" json:"exclude,omitempty" jsonschema:"description=Patterns never staged"`
}

// GitConfig configures git subprocesses.
type GitConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"type=string,description=Per git call timeout (Go duration; default 10s)"`
}

// RecentWindow returns the recent-modification window as a duration.
func (c StateTrackerConfig) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowMinutes) * time.Minute
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.StateTracker.RecentWindowMinutes < 1 {
		return fmt.Errorf("state_tracker.recent_window_minutes must be >= 1, got %d", c.StateTracker.RecentWindowMinutes)
	}
	if c.LogCapture.Destination == "" {
		return fmt.Errorf("log_capture.destination cannot be empty")
	}
	if c.Git.Timeout < 0 || c.Timeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded config file into the provided target struct. The target must be a
// pointer. It is not an error if the extension is absent.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
