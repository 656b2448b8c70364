package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(f *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.AllSettings())
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s\n", cfg.Path())
			_, err = w.Write(out)
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Write one setting to the config file",
		Example: "  mindmap config set theme dracula",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return cfg.Save(args[0], args[1])
		},
	})
	return cmd
}
