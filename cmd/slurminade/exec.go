package main

import (
	"github.com/spf13/cobra"

	"slurminade/internal/worker"
)

func newExecCmd(a *app) *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a job payload read from stdin",
		Long:  "Runs the calls of a payload in order. Submitted job scripts invoke this command.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := worker.NewExecutor(a.registry, keepGoing, a.logger)
			return e.ExecuteReader(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "run remaining calls after a failure")

	return cmd
}
