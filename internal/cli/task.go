package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dori/mindmap/internal/app"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/model"
)

func newTaskCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCmd(f))
	cmd.AddCommand(newTaskDoneCmd(f))
	cmd.AddCommand(newTaskMoveCmd(f))
	cmd.AddCommand(newTaskRemoveCmd(f))
	return cmd
}

func newTaskAddCmd(f *Flags) *cobra.Command {
	var group, parent string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Quick add a task",
		Long: strings.TrimSpace(`
Quick add a task at the end of a group, or under a parent task.

  Priority:   !1 to !4, or !urgent !high !medium !low
  Scheduled:  on:today on:tomorrow on:friday on:nextweek on:2026-01-15
              (due: works too)`),
		Example: `  mindmap task add --group Errands "Buy milk !2 on:friday"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := f.Now()
			q := parseQuickAdd(strings.Join(args, " "), now)
			if q.Title == "" {
				return errors.New("task title is empty")
			}

			return withEngine(f, func(a *app.App) error {
				eng := a.Engine
				nt := engine.NewTask{Title: q.Title}
				switch {
				case parent != "":
					p, err := resolveTask(eng, parent)
					if err != nil {
						return err
					}
					nt.ParentTaskID = &p.ID
				case group != "":
					g, err := resolveGroup(eng, group)
					if err != nil {
						return err
					}
					nt.GroupID = g.ID
				default:
					groups := eng.Groups()
					if len(groups) == 0 {
						return errors.New(`no groups yet, add one with "mindmap group add"`)
					}
					nt.GroupID = groups[0].ID
				}

				id, create, err := eng.CreateTask(nt)
				if err != nil {
					return err
				}
				if err := flush(eng, create); err != nil {
					return err
				}

				patch := model.TaskPatch{Priority: q.Priority, ScheduledAt: q.ScheduledAt}
				if !patch.IsEmpty() {
					update, err := eng.UpdateTask(id, patch)
					if err != nil {
						return err
					}
					if err := flush(eng, update); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				t, _ := eng.Task(id)
				fmt.Fprintf(out, "Created: %s  [%s]\n", t.Title, t.ID)
				if t.ScheduledAt != nil {
					fmt.Fprintf(out, "Scheduled: %s\n", formatDate(*t.ScheduledAt, now))
				}
				if t.Priority != nil {
					fmt.Fprintf(out, "Priority: !%d\n", *t.Priority)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Group id or title (default: the first group)")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task id or id prefix")
	return cmd
}

func newTaskDoneCmd(f *Flags) *cobra.Command {
	var reopen bool

	cmd := &cobra.Command{
		Use:   "done <task>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(f, func(a *app.App) error {
				t, err := resolveTask(a.Engine, args[0])
				if err != nil {
					return err
				}
				status := model.StatusDone
				if reopen {
					status = model.StatusTodo
				}
				update, err := a.Engine.UpdateTask(t.ID, model.TaskPatch{Status: &status})
				if err != nil {
					return err
				}
				return flush(a.Engine, update)
			})
		},
	}
	cmd.Flags().BoolVar(&reopen, "reopen", false, "Mark the task todo again")
	return cmd
}

func newTaskMoveCmd(f *Flags) *cobra.Command {
	var group, parent string

	cmd := &cobra.Command{
		Use:   "mv <task>",
		Short: "Move a task under another task, or to the top level of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (group == "") == (parent == "") {
				return errors.New("give exactly one of --group or --parent")
			}
			return withEngine(f, func(a *app.App) error {
				eng := a.Engine
				t, err := resolveTask(eng, args[0])
				if err != nil {
					return err
				}

				var parentID *string
				var groupID string
				if parent != "" {
					p, err := resolveTask(eng, parent)
					if err != nil {
						return err
					}
					parentID, groupID = &p.ID, p.GroupID
				} else {
					g, err := resolveGroup(eng, group)
					if err != nil {
						return err
					}
					groupID = g.ID
				}

				ok, move := eng.MoveTask(t.ID, parentID, groupID)
				if !ok {
					return fmt.Errorf("cannot move %q there", t.Title)
				}
				return flush(eng, move)
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Destination group id or title")
	cmd.Flags().StringVar(&parent, "parent", "", "Destination parent task")
	return cmd
}

func newTaskRemoveCmd(f *Flags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks and everything below them",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(f, func(a *app.App) error {
				ids := make([]string, 0, len(args))
				for _, arg := range args {
					t, err := resolveTask(a.Engine, arg)
					if err != nil {
						return err
					}
					ids = append(ids, t.ID)
				}
				remove, err := a.Engine.DeleteTasks(ids)
				if err != nil {
					return err
				}
				return flush(a.Engine, remove)
			})
		},
	}
}

// resolveTask finds a task by id or unique id prefix
func resolveTask(eng *engine.Engine, s string) (model.Task, error) {
	if t, ok := eng.Task(s); ok {
		return t, nil
	}
	var found []model.Task
	for _, t := range eng.Tasks() {
		if strings.HasPrefix(t.ID, s) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("no task %q", s)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, fmt.Errorf("task prefix %q is ambiguous", s)
	}
}
