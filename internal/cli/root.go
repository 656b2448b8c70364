// Package cli holds the mindmap command line. With no subcommand it starts
// the interactive outline; the subcommands are one-shot and scriptable.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/app"
	"github.com/dori/mindmap/internal/config"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/ui"
)

var version = "0.1.0"

// Flags are the persistent flags shared by every command
type Flags struct {
	Config  string
	DB      string
	Project string
	Theme   string

	// Now is the reference time for quick-add dates; tests pin it
	Now func() time.Time
	// RunTUI replaces the interactive program; tests stub it
	RunTUI func(a *app.App) error
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Flags{})
}

func newRootCmd(f *Flags) *cobra.Command {
	if f.Now == nil {
		f.Now = time.Now
	}
	if f.RunTUI == nil {
		f.RunTUI = runProgram
	}

	cmd := &cobra.Command{
		Use:          "mindmap",
		Short:        "Hierarchical task outline in the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive outline
  mindmap

  # Print the outline
  mindmap tree

  # Add a group, then a task in it
  mindmap group add Errands
  mindmap task add --group Errands "Buy milk !2 on:friday"
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(f)
		},
	}

	cmd.PersistentFlags().StringVar(&f.Config, "config", "", "Path to the config file (default ~/.config/mindmap/config.yaml)")
	cmd.PersistentFlags().StringVar(&f.DB, "db", "", "Path to the database file")
	cmd.PersistentFlags().StringVar(&f.Project, "project", "", "Project id to open")
	cmd.PersistentFlags().StringVar(&f.Theme, "theme", "", "Theme (nord, dracula, gruvbox, catppuccin)")

	cmd.AddCommand(newTreeCmd(f))
	cmd.AddCommand(newGroupCmd(f))
	cmd.AddCommand(newTaskCmd(f))
	cmd.AddCommand(newProjectCmd(f))
	cmd.AddCommand(newConfigCmd(f))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command with os.Args
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mindmap v%s\n", version)
		},
	}
}

// loadConfig reads the config file and applies the persistent flags on top
func loadConfig(f *Flags) (*config.Config, error) {
	var opts []config.Option
	if f.Config != "" {
		opts = append(opts, config.WithUserConfig(f.Config))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	overrides := map[string]any{}
	if f.DB != "" {
		overrides[config.KeyDatabasePath] = f.DB
	}
	if f.Project != "" {
		overrides[config.KeyProjectID] = f.Project
	}
	if f.Theme != "" {
		overrides[config.KeyTheme] = f.Theme
	}
	cfg.ApplyOverrides(overrides)
	return cfg, nil
}

func runTUI(f *Flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{Exclusive: true})
	if err != nil {
		return err
	}
	defer a.Close()
	return f.RunTUI(a)
}

// runProgram runs the TUI, then gives saves it dispatched last the store
// timeout to land before the store is closed
func runProgram(a *app.App) error {
	p := tea.NewProgram(
		ui.New(a),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	_, err := p.Run()

	ctx, cancel := storeContext(a)
	defer cancel()
	return multierr.Append(err, a.Engine.Drain(ctx))
}

// withEngine opens the app without the instance lock, loads the project and
// hands the engine to fn. The TUI may hold the lock; SQLite's WAL lets both
// work on the same file.
func withEngine(f *Flags, fn func(a *app.App) error) (err error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	if err := flush(a.Engine, a.Engine.Load()); err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	return fn(a)
}

// flush runs cmd and collects every store failure it reports
func flush(eng *engine.Engine, cmd tea.Cmd) error {
	var err error
	for _, out := range eng.Flush(cmd) {
		if out.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", out.Op, out.Err))
		}
	}
	return err
}

// storeContext bounds a direct store call made outside the engine
func storeContext(a *app.App) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.Config.GetDuration(config.KeyStoreTimeout))
}
