package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/schema"
)

// newProjectCmd creates the project command with subcommands.
func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "p"},
		Short:   "Manage projects",
		Long: `Create, inspect and change projects.

Subcommands:
  list       List projects
  show       Show a project with its tasks and milestones
  create     Create a project
  update     Change project fields
  delete     Delete a project and its tasks
  favorite   Toggle the favorite flag`,
	}

	cmd.AddCommand(newProjectListCmd(a))
	cmd.AddCommand(newProjectShowCmd(a))
	cmd.AddCommand(newProjectCreateCmd(a))
	cmd.AddCommand(newProjectUpdateCmd(a))
	cmd.AddCommand(newProjectDeleteCmd(a))
	cmd.AddCommand(newProjectFavoriteCmd(a))
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	var (
		status    string
		tags      []string
		favorites bool
		workspace string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Long: `List the projects in your workspaces.

Example:
  plank project list
  plank project list --status onHold
  plank project list --tag 'team/*' --favorites`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want schema.ProjectStatus
			if status != "" {
				st, err := schema.ParseProjectStatus(status)
				if err != nil {
					return invalidFlag("status", err)
				}
				want = st
			}
			if err := validateTagPatterns(tags); err != nil {
				return err
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			projects := []schema.Project{}
			for _, p := range s.store.Snapshot().Projects {
				if want != "" && p.Status != want {
					continue
				}
				if favorites && !p.Favorite {
					continue
				}
				if workspace != "" && p.WorkspaceID != workspace {
					continue
				}
				if !matchTags(p.Tags, tags) {
					continue
				}
				projects = append(projects, p)
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out.out, "No projects found. Create one with: plank project create \"Name\"")
				return nil
			}

			w := tabwriter.NewWriter(out.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tTASKS\tDUE\tNAME")
			fmt.Fprintln(w, "──\t──────\t────────\t─────\t───\t────")
			for _, p := range projects {
				name := p.Name
				if p.Favorite {
					name = "★ " + name
				}
				fmt.Fprintf(w, "%s\t%s\t%d%%\t%d\t%s\t%s\n",
					p.ID, out.badge(string(p.Status)), p.Progress, len(p.Tasks),
					formatDate(p.DueDate), out.fit(name, len(p.ID)+40))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, completed, onHold)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "filter by tag glob; repeat to require several")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorite projects")
	cmd.Flags().StringVar(&workspace, "workspace", "", "filter by workspace id")
	return cmd
}

func newProjectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its tasks and milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			p, ok := s.store.Snapshot().Project(args[0])
			if !ok {
				return errProjectNotFound(args[0])
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(p)
			}

			fmt.Fprintf(out.out, "%s  %s\n", p.Name, out.badge(string(p.Status)))
			fmt.Fprintln(out.out, "─────────────────────────")
			fmt.Fprintf(out.out, "ID:          %s\n", p.ID)
			fmt.Fprintf(out.out, "Workspace:   %s\n", p.WorkspaceID)
			fmt.Fprintf(out.out, "Progress:    %d%%\n", p.Progress)
			fmt.Fprintf(out.out, "Due:         %s\n", formatDate(p.DueDate))
			fmt.Fprintf(out.out, "Favorite:    %t\n", p.Favorite)
			fmt.Fprintf(out.out, "Tags:        %s\n", joinOrDash(p.Tags))
			fmt.Fprintf(out.out, "Members:     %s\n", joinOrDash(p.Members))
			if p.Description != "" {
				fmt.Fprintf(out.out, "\n%s\n", p.Description)
			}

			if len(p.Milestones) > 0 {
				fmt.Fprintln(out.out, "\nMilestones:")
				for _, m := range p.Milestones {
					mark := "○"
					if m.Completed {
						mark = "●"
					}
					fmt.Fprintf(out.out, "  %s %s  %s  (%s)\n", mark, m.Date.Format("2006-01-02"), m.Title, m.ID)
				}
			}

			if len(p.Tasks) > 0 {
				fmt.Fprintln(out.out, "\nTasks:")
				w := tabwriter.NewWriter(out.out, 0, 0, 2, ' ', 0)
				for _, t := range p.Tasks {
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
						t.ID, out.badge(string(t.Status)), out.badge(string(t.Priority)), out.fit(t.Title, len(t.ID)+30))
				}
				return w.Flush()
			}
			return nil
		},
	}
}

// projectFlags holds the flags shared by create and update.
type projectFlags struct {
	description string
	status      string
	due         string
	clearDue    bool
	progress    int
	color       string
	tags        []string
	members     []string
	workspace   string
	favorite    bool
}

func (f *projectFlags) register(cmd *cobra.Command, update bool) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "project description")
	cmd.Flags().StringVar(&f.status, "status", "", "status (active, completed, onHold)")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.progress, "progress", 0, "progress percentage (0-100)")
	cmd.Flags().StringVar(&f.color, "color", "", "display color, e.g. #6366f1")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tags (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&f.members, "member", nil, "member ids (repeatable or comma separated)")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "workspace id (default: your first workspace)")
	cmd.Flags().BoolVar(&f.favorite, "favorite", false, "mark as favorite")
	if update {
		cmd.Flags().BoolVar(&f.clearDue, "clear-due", false, "remove the due date")
	}
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var f projectFlags

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project in your first workspace, or the one given by --workspace.

Example:
  plank project create "Website relaunch" --due 2026-09-01 --tag web`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := schema.ProjectInput{
				Name:        args[0],
				Description: f.description,
				Progress:    f.progress,
				Members:     f.members,
				WorkspaceID: f.workspace,
				Favorite:    f.favorite,
				Color:       f.color,
				Tags:        f.tags,
			}
			if f.status != "" {
				st, err := schema.ParseProjectStatus(f.status)
				if err != nil {
					return invalidFlag("status", err)
				}
				in.Status = st
			}
			if f.due != "" {
				due, err := parseDate(f.due)
				if err != nil {
					return invalidFlag("due", err)
				}
				in.DueDate = &due
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.store.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(cmd, p, fmt.Sprintf("Created project %s (%s)", p.Name, p.ID))
		},
	}
	f.register(cmd, false)
	return cmd
}

func newProjectUpdateCmd(a *app) *cobra.Command {
	var (
		f    projectFlags
		name string
	)

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change project fields",
		Long: `Change the fields given as flags; everything else is left as is.

Example:
  plank project update p-1 --status completed --progress 100
  plank project update p-1 --clear-due`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch schema.ProjectPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &f.description
			}
			if flags.Changed("status") {
				st, err := schema.ParseProjectStatus(f.status)
				if err != nil {
					return invalidFlag("status", err)
				}
				patch.Status = &st
			}
			if flags.Changed("due") {
				due, err := parseDate(f.due)
				if err != nil {
					return invalidFlag("due", err)
				}
				patch.DueDate = &due
			}
			patch.ClearDueDate = f.clearDue
			if flags.Changed("progress") {
				patch.Progress = &f.progress
			}
			if flags.Changed("color") {
				patch.Color = &f.color
			}
			if flags.Changed("tag") {
				patch.Tags = &f.tags
			}
			if flags.Changed("member") {
				patch.Members = &f.members
			}
			if flags.Changed("workspace") {
				patch.WorkspaceID = &f.workspace
			}
			if flags.Changed("favorite") {
				patch.Favorite = &f.favorite
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.store.UpdateProject(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.printResult(cmd, p, fmt.Sprintf("Updated project %s", p.ID))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	f.register(cmd, true)
	return cmd
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printResult(cmd, map[string]string{"deleted": args[0]}, "Deleted project "+args[0])
		},
	}
}

func newProjectFavoriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <project-id>",
		Short: "Toggle the favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.store.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msg := "Unfavorited " + p.Name
			if p.Favorite {
				msg = "Favorited " + p.Name
			}
			return a.printResult(cmd, p, msg)
		},
	}
}

// printResult prints v as JSON or msg as plain text.
func (a *app) printResult(cmd *cobra.Command, v any, msg string) error {
	out := a.printer(cmd)
	if out.json {
		return out.JSON(v)
	}
	_, err := fmt.Fprintln(out.out, msg)
	return err
}
