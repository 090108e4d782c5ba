package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/hooks/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Well-known names shared with the host's prompts and settings.
const (
	DefaultDestination   = ".claude/session-logs"
	DefaultStateDir      = ".features"
	DefaultRecordFile    = "implement.json"
	DefaultProjectMarker = ".claude"
	DefaultMemoryFile    = "CLAUDE.md"
	DefaultWindowMinutes = 30
	DefaultGitTimeout    = 10 * time.Second
	DefaultHookTimeout   = 60 * time.Second

	// LogCaptureSentinel is the only CLAUDE_LOG_CAPTURE value that enables
	// log capture.
	LogCaptureSentinel = "1"
)

// Environment variables recognized by the hooks.
const (
	EnvLogCapture         = "CLAUDE_LOG_CAPTURE"
	EnvLogCaptureDir      = "CLAUDE_LOG_CAPTURE_DIR"
	EnvLogCaptureDebug    = "CLAUDE_LOG_CAPTURE_DEBUG"
	EnvStateTrackerOff    = "CLAUDE_STATE_TRACKER_DISABLED"
	EnvStateTrackerDebug  = "CLAUDE_STATE_TRACKER_DEBUG"
	EnvStateTrackerWindow = "CLAUDE_STATE_TRACKER_WINDOW"
	EnvAutoStageOff       = "CLAUDE_AUTO_STAGE_DISABLED"
	EnvAutoStageDebug     = "CLAUDE_AUTO_STAGE_DEBUG"
	EnvRemote             = "CLAUDE_CODE_REMOTE"
	EnvGitTimeout         = "GROVE_HOOKS_GIT_TIMEOUT"
	EnvHookTimeout        = "GROVE_HOOKS_TIMEOUT"
	EnvConfigFile         = "GROVE_HOOKS_CONFIG"
)

// secondaryRemoteIndicators are CI/cloud variables that imply the session
// is not running on a developer's machine.
var secondaryRemoteIndicators = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"BUILDKITE",
	"CIRCLECI",
	"CODESPACES",
	"GITPOD_WORKSPACE_ID",
}

// configNames are searched, in order, in every directory from the start
// directory up to the filesystem root.
var configNames = []string{
	".grove-hooks.yml",
	".grove-hooks.yaml",
	".grove-hooks.toml",
	filepath.Join(".claude", "grove-hooks.yml"),
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		LogCapture: LogCaptureConfig{
			Destination: DefaultDestination,
		},
		StateTracker: StateTrackerConfig{
			RecentWindowMinutes: DefaultWindowMinutes,
			StateDir:            DefaultStateDir,
			RecordFile:          DefaultRecordFile,
		},
		ChangeStager: ChangeStagerConfig{
			ProjectMarker: DefaultProjectMarker,
			MemoryFile:    DefaultMemoryFile,
		},
		Git: GitConfig{
			Timeout: DefaultGitTimeout,
		},
		Timeout:    DefaultHookTimeout,
		Extensions: map[string]interface{}{},
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// StartDir is where the upward config file search begins.
	StartDir string
	// ConfigFile skips discovery when set.
	ConfigFile string
	// Lookup reads environment variables; nil means os.LookupEnv.
	Lookup LookupFunc
}

// Load builds the effective configuration: defaults, then the config file
// (if one is found), then environment overrides. A broken config file does
// not stop the hooks: Load still returns a usable configuration together
// with the error so the caller can log it.
func Load(opts LoadOptions) (*Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()
	var fileErr error

	path := opts.ConfigFile
	if path == "" {
		if env, ok := lookup(EnvConfigFile); ok && env != "" {
			path = env
		} else if opts.StartDir != "" {
			path, _ = FindConfigFile(opts.StartDir)
		}
	}

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			fileErr = err
		} else {
			cfg = fileCfg
		}
	}

	ApplyEnv(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		valErr := fmt.Errorf("invalid config after env override: %w", err)
		cfg = Default()
		ApplyEnv(cfg, lookup)
		if cfg.Validate() != nil {
			// Env values alone are broken; fall back to pure defaults.
			cfg = Default()
		}
		if fileErr == nil {
			fileErr = valErr
		}
	}

	return cfg, fileErr
}

// FindConfigFile searches for a hooks config file from startDir up to the
// filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no hooks config file found from %s", startDir)
}

// LoadFile reads a YAML or TOML config file, validates it against the
// embedded schema and decodes it on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}

	cfg, err := LoadFromBytes(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromBytes decodes config content in the given format ("yaml" or "toml").
func LoadFromBytes(data []byte, format string) (*Config, error) {
	raw := map[string]interface{}{}
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(raw); err != nil {
		return nil, err
	}

	cfg := Default()
	known := knownSections()
	for key, value := range raw {
		if !known[key] {
			cfg.Extensions[key] = value
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     cfg,
		TagName:    "yaml",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// knownSections lists the top-level keys owned by Config itself.
func knownSections() map[string]bool {
	known := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if name != "" && name != "-" {
			known[name] = true
		}
	}
	return known
}

// ApplyEnv overlays environment variables on cfg. Unparsable values are
// ignored and the existing value is kept.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	// Any value other than the sentinel leaves log capture off.
	if val, ok := lookup(EnvLogCapture); ok {
		cfg.LogCapture.Enabled = val == LogCaptureSentinel
	}
	if val, ok := lookup(EnvLogCaptureDir); ok && strings.TrimSpace(val) != "" {
		cfg.LogCapture.Destination = strings.TrimSpace(val)
	}
	applyBool(lookup, EnvLogCaptureDebug, &cfg.LogCapture.Debug)

	applyBool(lookup, EnvStateTrackerOff, &cfg.StateTracker.Disabled)
	applyBool(lookup, EnvStateTrackerDebug, &cfg.StateTracker.Debug)
	if val, ok := lookup(EnvStateTrackerWindow); ok && val != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && i > 0 {
			cfg.StateTracker.RecentWindowMinutes = i
		}
	}

	applyBool(lookup, EnvAutoStageOff, &cfg.ChangeStager.Disabled)
	applyBool(lookup, EnvAutoStageDebug, &cfg.ChangeStager.Debug)

	applyDuration(lookup, EnvGitTimeout, &cfg.Git.Timeout)
	applyDuration(lookup, EnvHookTimeout, &cfg.Timeout)
}

func applyBool(lookup LookupFunc, key string, target *bool) {
	val, ok := lookup(key)
	if !ok || val == "" {
		return
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
		*target = b
	}
}

func applyDuration(lookup LookupFunc, key string, target *time.Duration) {
	val, ok := lookup(key)
	if !ok || val == "" {
		return
	}
	if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil && d > 0 {
		*target = d
	}
}

// DetectRemote reports whether the session runs remotely and which
// variable decided it. CLAUDE_CODE_REMOTE is authoritative when set; CI
// variables are consulted only when it is absent.
func DetectRemote(lookup LookupFunc) (bool, string) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if val, ok := lookup(EnvRemote); ok && strings.TrimSpace(val) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b, EnvRemote
	}

	for _, key := range secondaryRemoteIndicators {
		val, ok := lookup(key)
		if !ok {
			continue
		}
		val = strings.TrimSpace(strings.ToLower(val))
		if val == "" || val == "0" || val == "false" {
			continue
		}
		return true, key
	}

	return false, ""
}

// MapLookup adapts a map to a LookupFunc, for tests and dry runs.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		val, ok := env[key]
		return val, ok
	}
}
