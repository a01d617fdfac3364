// Package cli implements the strest command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// ErrCasesFailed is returned by the run command when at least one case failed.
var ErrCasesFailed = errors.New("some test cases failed")

// NewRootCmd builds the strest command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "strest",
		Short:   "Directive-driven stress tests for services",
		Version: version,
		Long: `Strest runs declarative stress tests. Each test describes a lifecycle
(setup, scenario, teardown and their reports) and one or more sequences of
directives that launch instances of it serially or in parallel, with pauses
in between. Reports are written to JSON, HTML, msgpack, S3 or Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command line with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, ErrCasesFailed) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the strest version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "strest %s\n", version)
		},
	}
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return configFind(wd)
}
