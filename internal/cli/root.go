// Package cli implements the plank command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/plank/internal/config"
)

// flagKeys maps persistent flags onto the config paths they override.
var flagKeys = map[string]string{
	"db-driver":  "database.driver",
	"db-path":    "database.sqlite.path",
	"actor":      "actor.id",
	"actor-name": "actor.name",
	"log-level":  "logging.level",
}

// app carries the global flags and the viper instance for one invocation.
type app struct {
	cfgFile string
	verbose bool
	jsonOut bool
	noColor bool

	v      *viper.Viper
	stderr io.Writer

	// workDir is the project directory config is discovered from.
	workDir string

	// serving keeps info logs for the long-running serve command.
	serving bool
}

// NewRootCmd builds the plank command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), stderr: os.Stderr, workDir: "."}

	rootCmd := &cobra.Command{
		Use:   "plank",
		Short: "Projects, tasks and milestones backed by a shared database",
		Long: `plank keeps a local mirror of your workspaces, projects and tasks in sync
with a shared SQLite or PostgreSQL database and records every change in an
activity feed.

Quick start:
  plank --actor u-1 project create "Launch"    Create a project
  plank --actor u-1 project list               List projects
  plank --actor u-1 task create <project> "Write docs"
  plank --actor u-1 activity                   Show recent activity
  plank serve                                  Start the HTTP/WebSocket API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.initConfig()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is .plank/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&a.jsonOut, "json", false, "output as JSON")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.String("db-driver", "", "database driver: sqlite or postgres")
	pf.String("db-path", "", "SQLite database file")
	pf.String("actor", "", "id of the acting user")
	pf.String("actor-name", "", "display name of the acting user")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	for name, key := range flagKeys {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}

	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newWorkspaceCmd(a))
	rootCmd.AddCommand(newProjectCmd(a))
	rootCmd.AddCommand(newTaskCmd(a))
	rootCmd.AddCommand(newMilestoneCmd(a))
	rootCmd.AddCommand(newSubtaskCmd(a))
	rootCmd.AddCommand(newActivityCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// Execute runs the root command and prints any error.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		PrintError(cmd.ErrOrStderr(), err, false)
		return err
	}
	return nil
}

// initConfig locates the config file with viper so --verbose can report it.
// Values are loaded by loadConfig.
func (a *app) initConfig() {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(a.workDir + "/" + config.PlankDir)
		a.v.AddConfigPath("$HOME/" + config.PlankDir)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("config")
	}

	a.v.SetEnvPrefix("PLANK")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err == nil && a.verbose {
		fmt.Fprintln(a.stderr, "Using config file:", a.v.ConfigFileUsed())
	}
}

// loadConfig builds the layered config and applies flag overrides.
func (a *app) loadConfig(cmd *cobra.Command) (*config.TrackedConfig, error) {
	tc, err := config.LoadLayered(a.workDir, a.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if config.SetValue(tc.Config, key, a.v.GetString(key)) {
			tc.SetSource(key, config.SourceFlag)
		}
	}

	if err := tc.Config.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}
