package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/strest/internal/stress/config"
)

// configFind looks up the default configuration file of a directory.
var configFind = configFindIn

func configFindIn(dir string) (string, error) { return config.Find(dir) }

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")

			path, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is valid\n", path)
			for _, t := range cfg.Tests {
				spec := t.Spec()
				if _, err := t.Factory(); err != nil {
					return fmt.Errorf("test %q: %w", t.Name, err)
				}
				fmt.Fprintf(out, "  %s (%s lifecycle, %d cases)\n", t.Name, t.Lifecycle.Kind, len(spec.Sequences)*spec.Repetitions())
				for _, seq := range spec.Sequences {
					fmt.Fprintf(out, "    %s\n", seq.Label())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Configuration file (default: strest.yaml, strest.yml or strest.json)")
	return cmd
}
