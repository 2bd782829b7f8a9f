package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/schema"
)

// newTaskCmd creates the task command with subcommands.
func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Manage tasks",
	}

	cmd.AddCommand(newTaskListCmd(a))
	cmd.AddCommand(newTaskShowCmd(a))
	cmd.AddCommand(newTaskCreateCmd(a))
	cmd.AddCommand(newTaskUpdateCmd(a))
	cmd.AddCommand(newTaskDeleteCmd(a))
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		project  string
		status   string
		priority string
		assignee string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks across projects",
		Long: `List tasks, optionally narrowed to one project.

Example:
  plank task list --project p-1
  plank task list --status inProgress --priority urgent
  plank task list --tag 'bug/**'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				wantStatus   schema.TaskStatus
				wantPriority schema.Priority
			)
			if status != "" {
				st, err := schema.ParseTaskStatus(status)
				if err != nil {
					return invalidFlag("status", err)
				}
				wantStatus = st
			}
			if priority != "" {
				pr, err := schema.ParsePriority(priority)
				if err != nil {
					return invalidFlag("priority", err)
				}
				wantPriority = pr
			}
			if err := validateTagPatterns(tags); err != nil {
				return err
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			snap := s.store.Snapshot()
			if project != "" {
				if _, ok := snap.Project(project); !ok {
					return errProjectNotFound(project)
				}
			}

			tasks := []schema.Task{}
			for _, p := range snap.Projects {
				if project != "" && p.ID != project {
					continue
				}
				for _, t := range p.Tasks {
					if wantStatus != "" && t.Status != wantStatus {
						continue
					}
					if wantPriority != "" && t.Priority != wantPriority {
						continue
					}
					if assignee != "" && t.AssigneeID != assignee {
						continue
					}
					if !matchTags(t.Tags, tags) {
						continue
					}
					tasks = append(tasks, t)
				}
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(out.out, "No tasks found.")
				return nil
			}

			w := tabwriter.NewWriter(out.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tPRIORITY\tASSIGNEE\tSUBTASKS\tTITLE")
			fmt.Fprintln(w, "──\t───────\t──────\t────────\t────────\t────────\t─────")
			for _, t := range tasks {
				done := 0
				for _, st := range t.Subtasks {
					if st.Completed {
						done++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					t.ID, t.ProjectID, out.badge(string(t.Status)), out.badge(string(t.Priority)),
					orDash(t.AssigneeID), done, len(t.Subtasks),
					out.fit(t.Title, len(t.ID)+len(t.ProjectID)+50))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "only tasks of this project")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (backlog, todo, inProgress, inReview, done)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee id")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "filter by tag glob; repeat to require several")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			t, ok := s.store.Snapshot().Task(args[0])
			if !ok {
				return errTaskNotFound(args[0])
			}

			out := a.printer(cmd)
			if out.json {
				return out.JSON(t)
			}

			fmt.Fprintf(out.out, "%s  %s  %s\n", t.Title, out.badge(string(t.Status)), out.badge(string(t.Priority)))
			fmt.Fprintln(out.out, "─────────────────────────")
			fmt.Fprintf(out.out, "ID:        %s\n", t.ID)
			fmt.Fprintf(out.out, "Project:   %s\n", t.ProjectID)
			fmt.Fprintf(out.out, "Assignee:  %s\n", orDash(t.AssigneeID))
			fmt.Fprintf(out.out, "Due:       %s\n", formatDate(t.DueDate))
			fmt.Fprintf(out.out, "Tags:      %s\n", joinOrDash(t.Tags))
			if t.Description != "" {
				fmt.Fprintf(out.out, "\n%s\n", t.Description)
			}
			if len(t.Subtasks) > 0 {
				fmt.Fprintln(out.out, "\nSubtasks:")
				for _, st := range t.Subtasks {
					mark := "[ ]"
					if st.Completed {
						mark = "[x]"
					}
					fmt.Fprintf(out.out, "  %s %s  (%s)\n", mark, st.Title, st.ID)
				}
			}
			return nil
		},
	}
}

// taskFlags holds the flags shared by create and update.
type taskFlags struct {
	description   string
	status        string
	priority      string
	assignee      string
	clearAssignee bool
	due           string
	clearDue      bool
	tags          []string
}

func (f *taskFlags) register(cmd *cobra.Command, update bool) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&f.status, "status", "", "status (backlog, todo, inProgress, inReview, done)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "assignee id")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tags (repeatable or comma separated)")
	if update {
		cmd.Flags().BoolVar(&f.clearAssignee, "clear-assignee", false, "remove the assignee")
		cmd.Flags().BoolVar(&f.clearDue, "clear-due", false, "remove the due date")
	}
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var f taskFlags

	cmd := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create a task in a project",
		Long: `Create a task. Status defaults to todo and priority to medium.

Example:
  plank task create p-1 "Write release notes" --priority high --due 2026-06-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := schema.TaskInput{
				ProjectID:   args[0],
				Title:       args[1],
				Description: f.description,
				AssigneeID:  f.assignee,
				Tags:        f.tags,
			}
			if f.status != "" {
				st, err := schema.ParseTaskStatus(f.status)
				if err != nil {
					return invalidFlag("status", err)
				}
				in.Status = st
			}
			if f.priority != "" {
				pr, err := schema.ParsePriority(f.priority)
				if err != nil {
					return invalidFlag("priority", err)
				}
				in.Priority = pr
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

			t, err := s.store.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(cmd, t, fmt.Sprintf("Created task %s (%s)", t.Title, t.ID))
		},
	}
	f.register(cmd, false)
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var (
		f     taskFlags
		title string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields",
		Long: `Change the fields given as flags; everything else is left as is.
Moving a task to done records a "completed" activity.

Example:
  plank task update t-1 --status done
  plank task update t-1 --clear-assignee`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch schema.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &f.description
			}
			if flags.Changed("status") {
				st, err := schema.ParseTaskStatus(f.status)
				if err != nil {
					return invalidFlag("status", err)
				}
				patch.Status = &st
			}
			if flags.Changed("priority") {
				pr, err := schema.ParsePriority(f.priority)
				if err != nil {
					return invalidFlag("priority", err)
				}
				patch.Priority = &pr
			}
			if flags.Changed("assignee") {
				patch.AssigneeID = &f.assignee
			}
			patch.ClearAssignee = f.clearAssignee
			if flags.Changed("due") {
				due, err := parseDate(f.due)
				if err != nil {
					return invalidFlag("due", err)
				}
				patch.DueDate = &due
			}
			patch.ClearDueDate = f.clearDue
			if flags.Changed("tag") {
				patch.Tags = &f.tags
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.store.UpdateTask(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.printResult(cmd, t, fmt.Sprintf("Updated task %s", t.ID))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	f.register(cmd, true)
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printResult(cmd, map[string]string{"deleted": args[0]}, "Deleted task "+args[0])
		},
	}
}
