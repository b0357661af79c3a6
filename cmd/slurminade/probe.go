package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"slurminade/internal/slurm"
)

var errUnreachable = errors.New("slurm is not reachable")

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether jobs can be submitted from this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := slurm.NewClient(a.cfg.Slurm, a.logger)
			if !client.Reachable(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not found, batches run locally\n", a.cfg.Slurm.Binary)
				return errUnreachable
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: available\n", a.cfg.Slurm.Binary)
			return nil
		},
	}
}
