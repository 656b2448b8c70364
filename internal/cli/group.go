package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dori/mindmap/internal/app"
)

func newGroupCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}
	cmd.AddCommand(newGroupAddCmd(f))
	cmd.AddCommand(newGroupRenameCmd(f))
	return cmd
}

func newGroupAddCmd(f *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Add a group at the end of the outline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return withEngine(f, func(a *app.App) error {
				after := ""
				if groups := a.Engine.Groups(); len(groups) > 0 {
					after = groups[len(groups)-1].ID
				}
				id, create := a.Engine.CreateGroup(title, after)
				if err := flush(a.Engine, create); err != nil {
					return err
				}
				g, _ := a.Engine.Group(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Created group: %s  [%s]\n", g.Title, g.ID)
				return nil
			})
		},
	}
}

func newGroupRenameCmd(f *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <group> <title>",
		Short: "Rename a group (by id or title)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(f, func(a *app.App) error {
				g, err := resolveGroup(a.Engine, args[0])
				if err != nil {
					return err
				}
				rename, err := a.Engine.UpdateGroupTitle(g.ID, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return flush(a.Engine, rename)
			})
		},
	}
}
