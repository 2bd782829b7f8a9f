package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/schema"
)

// newMilestoneCmd creates the milestone command. Milestones live inside
// their project, so every write bumps the project's milestone revision.
func newMilestoneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestone",
		Aliases: []string{"milestones", "ms"},
		Short:   "Manage project milestones",
	}

	cmd.AddCommand(newMilestoneAddCmd(a))
	cmd.AddCommand(newMilestoneUpdateCmd(a))
	cmd.AddCommand(newMilestoneToggleCmd(a))
	cmd.AddCommand(newMilestoneDeleteCmd(a))
	return cmd
}

func newMilestoneAddCmd(a *app) *cobra.Command {
	var (
		date      string
		completed bool
	)

	cmd := &cobra.Command{
		Use:   "add <project-id> <title>",
		Short: "Add a milestone to a project",
		Long: `Add a milestone. The date defaults to today.

Example:
  plank milestone add p-1 "Beta" --date 2026-07-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := schema.MilestoneInput{
				ProjectID: args[0],
				Title:     args[1],
				Date:      time.Now().UTC().Truncate(24 * time.Hour),
				Completed: completed,
			}
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return invalidFlag("date", err)
				}
				in.Date = d
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.store.AddMilestone(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(cmd, m, fmt.Sprintf("Added milestone %s (%s)", m.Title, m.ID))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "milestone date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark as already completed")
	return cmd
}

func newMilestoneUpdateCmd(a *app) *cobra.Command {
	var (
		title     string
		date      string
		completed bool
	)

	cmd := &cobra.Command{
		Use:   "update <milestone-id>",
		Short: "Change milestone fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch schema.MilestonePatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("date") {
				d, err := parseDate(date)
				if err != nil {
					return invalidFlag("date", err)
				}
				patch.Date = &d
			}
			if cmd.Flags().Changed("completed") {
				patch.Completed = &completed
			}

			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.store.UpdateMilestone(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.printResult(cmd, m, "Updated milestone "+m.ID)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&date, "date", "", "new date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion state")
	return cmd
}

func newMilestoneToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <milestone-id>",
		Short: "Flip a milestone between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.store.ToggleMilestone(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "open"
			if m.Completed {
				state = "completed"
			}
			return a.printResult(cmd, m, fmt.Sprintf("Milestone %s is now %s", m.Title, state))
		},
	}
}

func newMilestoneDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <milestone-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a milestone",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.DeleteMilestone(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printResult(cmd, map[string]string{"deleted": args[0]}, "Deleted milestone "+args[0])
		},
	}
}

// newSubtaskCmd creates the subtask command.
func newSubtaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtask",
		Aliases: []string{"subtasks", "st"},
		Short:   "Manage task subtasks",
	}

	cmd.AddCommand(newSubtaskAddCmd(a))
	cmd.AddCommand(newSubtaskRenameCmd(a))
	cmd.AddCommand(newSubtaskToggleCmd(a))
	cmd.AddCommand(newSubtaskDeleteCmd(a))
	return cmd
}

func newSubtaskAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task-id> <title>",
		Short: "Add a subtask to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.store.AddSubtask(cmd.Context(), schema.SubtaskInput{TaskID: args[0], Title: args[1]})
			if err != nil {
				return err
			}
			return a.printResult(cmd, st, fmt.Sprintf("Added subtask %s (%s)", st.Title, st.ID))
		},
	}
}

func newSubtaskRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <subtask-id> <title>",
		Short: "Rename a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.store.UpdateSubtask(cmd.Context(), args[0], schema.SubtaskPatch{Title: &args[1]})
			if err != nil {
				return err
			}
			return a.printResult(cmd, st, "Renamed subtask "+st.ID)
		},
	}
}

func newSubtaskToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <subtask-id>",
		Short: "Flip a subtask between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.store.ToggleSubtask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			mark := "[ ]"
			if st.Completed {
				mark = "[x]"
			}
			return a.printResult(cmd, st, fmt.Sprintf("%s %s", mark, st.Title))
		},
	}
}

func newSubtaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <subtask-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a subtask",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.DeleteSubtask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printResult(cmd, map[string]string{"deleted": args[0]}, "Deleted subtask "+args[0])
		},
	}
}
