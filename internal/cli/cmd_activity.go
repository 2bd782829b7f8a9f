package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/schema"
)

// newActivityCmd creates the activity command.
func newActivityCmd(a *app) *cobra.Command {
	var (
		limit  int
		entity string
		action string
	)

	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"log", "feed"},
		Short:   "Show recent activity",
		Long: `Show the most recent changes made by the current actor, newest first.

Example:
  plank activity
  plank activity --limit 5 --entity task
  plank activity --action completed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return invalidFlag("limit", fmt.Errorf("must not be negative"))
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			feed := []schema.Activity{}
			for _, act := range s.store.Snapshot().Activities {
				if entity != "" && act.EntityType != entity {
					continue
				}
				if action != "" && act.Action != action {
					continue
				}
				feed = append(feed, act)
				if limit > 0 && len(feed) == limit {
					break
				}
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(feed)
			}
			if len(feed) == 0 {
				fmt.Fprintln(out.out, "No activity yet.")
				return nil
			}

			w := tabwriter.NewWriter(out.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTION\tENTITY\tNAME\tDETAIL")
			for _, act := range feed {
				name := act.EntityName
				if name == "" {
					name = act.EntityID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					act.CreatedAt.Local().Format("2006-01-02 15:04"), act.Action, act.EntityType,
					out.fit(name, 40), orDash(describeActivity(act)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n entries (default: the whole feed)")
	cmd.Flags().StringVar(&entity, "entity", "", "only this entity type (project, task)")
	cmd.Flags().StringVar(&action, "action", "", "only this action (created, updated, deleted, completed, ...)")
	return cmd
}

// describeActivity summarizes an activity's metadata in one line.
func describeActivity(act schema.Activity) string {
	status := act.Meta("status")
	if prev := act.Meta("previousStatus"); prev.Exists() && status.Exists() {
		return prev.String() + " -> " + status.String()
	}
	if status.Exists() {
		return "status " + status.String()
	}
	if fields := act.Meta("fields").Array(); len(fields) > 0 {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.String()
		}
		return "changed " + strings.Join(names, ", ")
	}
	if n := act.Meta("tasks"); n.Exists() {
		return fmt.Sprintf("%d tasks removed", n.Int())
	}
	return ""
}

// newWorkspaceCmd creates the workspace command.
func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"workspaces", "ws"},
		Short:   "Inspect workspaces",
		Long: `Inspect the workspaces of the current actor.

A first-time actor gets a default workspace on the first load.`,
	}
	cmd.AddCommand(newWorkspaceListCmd(a))
	return cmd
}

func newWorkspaceListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			snap := s.store.Snapshot()
			out := a.printer(cmd)
			if out.json {
				return out.JSON(snap.Workspaces)
			}

			counts := make(map[string]int)
			for _, p := range snap.Projects {
				counts[p.WorkspaceID]++
			}

			w := tabwriter.NewWriter(out.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROJECTS\tNAME")
			for _, ws := range snap.Workspaces {
				fmt.Fprintf(w, "%s\t%d\t%s\n", ws.ID, counts[ws.ID], ws.Name)
			}
			return w.Flush()
		},
	}
}
