package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/hooks/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Settings controls how NewLogger builds loggers for the running process.
type Settings struct {
	// Config is the `logging` extension from the hooks configuration file.
	Config Config
	// Debug turns on the stderr side channel. Hooks keep stderr silent
	// otherwise so the host never sees diagnostic noise.
	Debug bool
	// Stderr overrides the side channel writer. Defaults to os.Stderr.
	Stderr io.Writer
	// BaseDir resolves a relative file sink path.
	BaseDir string
}

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	settings  Settings
	openFiles []*os.File
)

// Configure replaces the process-wide logging settings and drops cached
// loggers so the next NewLogger call picks the new settings up.
func Configure(s Settings) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	closeFilesLocked()
	settings = s
	loggers = make(map[string]*logrus.Entry)
}

// Close flushes and closes any file sinks opened by NewLogger.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	closeFilesLocked()
	loggers = make(map[string]*logrus.Entry)
}

func closeFilesLocked() {
	for _, f := range openFiles {
		_ = f.Close()
	}
	openFiles = nil
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logCfg := settings.Config

	logger.SetLevel(resolveLevel(logCfg, settings.Debug))

	if os.Getenv("GROVE_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	var writers []io.Writer
	stderr := settings.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if settings.Debug {
		writers = append(writers, stderr)
	}

	if logCfg.File.Enabled && logCfg.File.Path != "" {
		if file := openFileSink(logCfg.File.Path, settings.BaseDir); file != nil {
			writers = append(writers, file)
		}
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		// Only colorize when the sole sink is an interactive stderr.
		color := len(writers) == 1 && settings.Debug && isTerminal(stderr)
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format, Color: color})
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// FileSinkPath returns the resolved path of the configured file sink, or ""
// when no file sink is enabled.
func FileSinkPath(cfg Config, baseDir string) string {
	if !cfg.File.Enabled || cfg.File.Path == "" {
		return ""
	}
	path, err := pathutil.Expand(cfg.File.Path, baseDir)
	if err != nil {
		return ""
	}
	return path
}

func resolveLevel(cfg Config, debug bool) logrus.Level {
	levelStr := "info"
	if debug {
		levelStr = "debug"
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	if env := os.Getenv("GROVE_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func openFileSink(path, baseDir string) *os.File {
	logFilePath, err := pathutil.Expand(path, baseDir)
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil
	}
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	openFiles = append(openFiles, file)
	return file
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
