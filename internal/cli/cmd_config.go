package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/plank/internal/config"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage plank configuration.

Configuration is loaded from multiple sources with this priority:
  1. Runtime: CLI flags, environment variables (PLANK_*)
  2. Explicit: the file named by --config
  3. Project: .plank/config.yaml
  4. User: ~/.plank/config.yaml
  5. Defaults: Built-in values

Examples:
  plank config show                   # Show merged config as YAML
  plank config show --source          # Show with source annotations
  plank config get actor.id           # Get one value
  plank config set actor.id u-1       # Set in project config
  plank config set --user actor.id u-1`,
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))
	cmd.AddCommand(newConfigSetCmd(a))
	return cmd
}

// newConfigShowCmd creates the 'config show' subcommand.
func newConfigShowCmd(a *app) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		Long: `Show the merged configuration from all sources.

By default, outputs valid YAML. Use --source to see where each value comes from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showSource {
				return printConfigWithSources(out, tc)
			}
			return printConfigAsYAML(out, tc.Config)
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Show source for each value")
	return cmd
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd(a *app) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific config value",
		Long: `Get a configuration value by key.

Keys use dot notation for nested values (e.g., "database.sqlite.path").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			tc, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}

			value, ok := config.GetValue(tc.Config, key)
			if !ok {
				return plankerrors.ErrConfigInvalid(key, "unknown config key")
			}

			out := cmd.OutOrStdout()
			if showSource {
				_, _ = fmt.Fprintf(out, "%s (from %s)\n", value, tc.GetSource(key))
			} else {
				_, _ = fmt.Fprintln(out, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Show source of the value")
	return cmd
}

// newConfigSetCmd creates the 'config set' subcommand.
func newConfigSetCmd(a *app) *cobra.Command {
	var setUser bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long: `Set a configuration value.

By default, values are saved to the project config (.plank/config.yaml).
Use --user to save to ~/.plank/config.yaml instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			targetPath := filepath.Join(a.workDir, config.PlankDir, config.ConfigFileName)
			if setUser {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("get home directory: %w", err)
				}
				targetPath = filepath.Join(home, config.PlankDir, config.ConfigFileName)
			}

			cfg, err := config.LoadFrom(targetPath)
			if err != nil {
				return err
			}
			if !config.SetValue(cfg, key, value) {
				return plankerrors.ErrConfigInvalid(key, fmt.Sprintf("unknown key or bad value %q", value))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(targetPath); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, targetPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&setUser, "user", false, "Save to user config (~/.plank/config.yaml)")
	return cmd
}

// printConfigAsYAML writes the config as YAML with the password masked.
func printConfigAsYAML(out io.Writer, cfg *config.Config) error {
	c := *cfg
	if c.Database.Postgres.Password != "" {
		c.Database.Postgres.Password = "********"
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func printConfigWithSources(out io.Writer, tc *config.TrackedConfig) error {
	for _, path := range config.AllPaths() {
		value, ok := config.GetValue(tc.Config, path)
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s = %s (%s)\n", path, value, tc.GetSource(path))
	}
	return nil
}
