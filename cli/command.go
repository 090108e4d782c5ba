package cli

import (
	"os"

	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the flags shared by every grove-hooks command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
}

// NewStandardCommand creates a root command with the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a grove-hooks config file")

	return cmd
}

// GetOptions extracts the standard options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
	}
}

// GetLogger returns the component logger for maintenance commands. Unlike
// the hooks, these commands report on the command's error stream.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)
	entry.Logger.SetOutput(cmd.ErrOrStderr())
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return entry
}

// LoadConfig loads the effective configuration for startDir, honoring the
// --config flag. An empty startDir means the working directory. The
// returned error describes a broken config file; the configuration is
// usable either way.
func LoadConfig(cmd *cobra.Command, startDir string) (*config.Config, error) {
	if startDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			startDir = cwd
		}
	}
	return config.Load(config.LoadOptions{
		StartDir:   startDir,
		ConfigFile: GetOptions(cmd).ConfigFile,
	})
}
