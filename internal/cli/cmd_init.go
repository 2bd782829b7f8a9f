package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/bootstrap"
)

// newInitCmd creates the init command.
func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize plank in the current directory",
		Long: `Create .plank/config.yaml and a local SQLite database, and add the
database files to .gitignore.

Example:
  plank init --actor u-1 --actor-name Ada
  plank init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, _ := cmd.Flags().GetString("actor")
			actorName, _ := cmd.Flags().GetString("actor-name")

			res, err := bootstrap.Init(cmd.Context(), bootstrap.InitOptions{
				WorkDir:   a.workDir,
				Force:     force,
				ActorID:   actorID,
				ActorName: actorName,
			})
			if err != nil {
				return err
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(res)
			}
			fmt.Fprintf(out.out, "Initialized plank in %v\n", res.Duration.Round(time.Millisecond))
			fmt.Fprintf(out.out, "  Config:   %s\n", res.ConfigPath)
			fmt.Fprintf(out.out, "  Database: %s\n", res.DatabasePath)
			fmt.Fprintln(out.out, "\nNext steps:")
			fmt.Fprintln(out.out, "  plank project create \"Name\"   # Create your first project")
			fmt.Fprintln(out.out, "  plank serve                  # Start the API")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration")
	return cmd
}
