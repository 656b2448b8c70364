package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dori/mindmap/internal/app"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/focus"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/tree"
)

func newTreeCmd(f *Flags) *cobra.Command {
	var group string
	var ids bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the outline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(f, func(a *app.App) error {
				t := a.Engine.Tree()
				groups := t.Groups()
				if group != "" {
					g, err := resolveGroup(a.Engine, group)
					if err != nil {
						return err
					}
					groups = []model.Group{g}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, a.Project.Name)
				for _, g := range groups {
					if ids {
						writeWithIDs(out, t, g)
						continue
					}
					fmt.Fprint(out, focus.Outline(t, tree.GroupRef(g.ID)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Only print this group (id or title)")
	cmd.Flags().BoolVar(&ids, "ids", false, "Show node ids")
	return cmd
}

func writeWithIDs(w io.Writer, t *tree.Tree, g model.Group) {
	fmt.Fprintf(w, "%s  [%s]\n", g.Title, g.ID)
	for _, task := range t.GroupTasks(g.ID) {
		mark := ""
		if task.IsDone() {
			mark = "[x] "
		}
		fmt.Fprintf(w, "%s- %s%s  [%s]\n", strings.Repeat("  ", t.Depth(task.ID)+1), mark, task.Title, task.ID)
	}
}

// resolveGroup finds a group by id, then by case-insensitive title
func resolveGroup(eng *engine.Engine, s string) (model.Group, error) {
	if g, ok := eng.Group(s); ok {
		return g, nil
	}
	var found []model.Group
	for _, g := range eng.Groups() {
		if strings.EqualFold(g.Title, s) {
			found = append(found, g)
		}
	}
	switch len(found) {
	case 0:
		return model.Group{}, fmt.Errorf("no group %q", s)
	case 1:
		return found[0], nil
	default:
		return model.Group{}, fmt.Errorf("%d groups are titled %q, use the id", len(found), s)
	}
}
