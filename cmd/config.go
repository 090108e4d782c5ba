package cmd

import (
	"fmt"
	"os"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/config"
	"github.com/grovetools/hooks/errors"
	"github.com/grovetools/hooks/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the hooks configuration",
		Long: `The effective configuration is built in layers:
1. Built-in defaults
2. The nearest config file (.grove-hooks.yml, .grove-hooks.yaml,
   .grove-hooks.toml or .claude/grove-hooks.yml), or GROVE_HOOKS_CONFIG
3. Environment variables such as CLAUDE_LOG_CAPTURE=1`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			cfg, loadErr := cli.LoadConfig(cmd, cwd)
			if loadErr != nil {
				cli.GetLogger(cmd, "config").WithError(loadErr).Warn("Config file ignored")
			}

			out := cmd.OutOrStdout()
			if path := configSource(cmd, cwd); path != "" {
				fmt.Fprintf(out, "# Source: %s\n", path)
			} else {
				fmt.Fprintln(out, "# Source: defaults and environment")
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(out, string(data))

			if len(cfg.Extensions) > 0 {
				ext, err := yaml.Marshal(cfg.Extensions)
				if err != nil {
					return fmt.Errorf("failed to marshal extensions: %w", err)
				}
				fmt.Fprint(out, string(ext))
			}
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a config file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current directory: %w", err)
				}
				if path = configSource(cmd, cwd); path == "" {
					return fmt.Errorf("no config file found from %s", cwd)
				}
			}

			cfg, err := config.LoadFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid config file %s", path))
			}
			console := logging.NewConsole(cmd.OutOrStdout())
			console.Success("configuration is valid")
			console.Path("file", path)
			return nil
		},
	}
}

// configSource returns the config file Load would read for dir.
func configSource(cmd *cobra.Command, dir string) string {
	if path := cli.GetOptions(cmd).ConfigFile; path != "" {
		return path
	}
	if path := os.Getenv(config.EnvConfigFile); path != "" {
		return path
	}
	path, err := config.FindConfigFile(dir)
	if err != nil {
		return ""
	}
	return path
}
