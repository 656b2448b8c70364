package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dori/mindmap/internal/app"
	"github.com/dori/mindmap/internal/model"
)

func newProjectCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List projects; the one in use is starred",
		Long: strings.TrimSpace(`
Every project is a separate outline in the same database. Pick one with
--project <id> or the project.id setting; a new id creates the project.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(f, func(a *app.App) error {
				ctx, cancel := storeContext(a)
				defer cancel()
				projects, err := a.DB.GetProjects(ctx)
				if err != nil {
					return fmt.Errorf("list projects: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, p := range projects {
					mark := " "
					if p.ID == a.Project.ID {
						mark = "*"
					}
					fmt.Fprintf(out, "%s %s  [%s]\n", mark, p.Name, p.ID)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "rename <title>",
		Short:   "Rename the project in use",
		Example: "  mindmap --project work project rename Day job",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.ProjectName(strings.Join(args, " "))
			return withEngine(f, func(a *app.App) error {
				ctx, cancel := storeContext(a)
				defer cancel()
				if err := a.DB.RenameProject(ctx, a.Project.ID, name); err != nil {
					return fmt.Errorf("rename project: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed project: %s\n", name)
				return nil
			})
		},
	})
	return cmd
}
