package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slurminade/internal/batcher"
	"slurminade/internal/slurm"
)

// localOnly is a prober that never finds a scheduler
type localOnly struct{}

func (localOnly) Reachable(context.Context) bool { return false }

func newRunCmd(a *app) *cobra.Command {
	var (
		count        int
		message      string
		sleeps       int
		sleepSeconds float64
		maxBatchSize int
		local        bool
		noReport     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Batch built-in calls through one session",
		Long: "Adds echo and sleep calls to a batching session and a report call that runs\n" +
			"after all of them. Calls are submitted with sbatch, or run in this process when\n" +
			"sbatch is not available.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("max-batch-size") {
				maxBatchSize = a.cfg.Batching.MaxBatchSize
			}

			resolver := batcher.ResolverFunc(a.cfg.Resolve)
			cache, err := batcher.NewConfigCache(a.cfg.Batching.ConfigCacheSize, resolver)
			if err != nil {
				return err
			}

			client := slurm.NewClient(a.cfg.Slurm, a.logger)
			var prober batcher.Prober = client
			if local {
				prober = localOnly{}
			}

			echo, _ := a.registry.Lookup(fnEcho)
			sleep, _ := a.registry.Lookup(fnSleep)
			report, _ := a.registry.Lookup(fnReport)

			res := batcher.Run(cmd.Context(), client, prober, func(b *batcher.AutoBatch) error {
				for i := 0; i < count; i++ {
					if err := b.Add(echo, []any{fmt.Sprintf("%s %d", message, i)}, nil); err != nil {
						return err
					}
				}
				for i := 0; i < sleeps; i++ {
					if err := b.Add(sleep, []any{sleepSeconds}, nil); err != nil {
						return err
					}
				}
				if !noReport {
					if err := b.OnCompletion(report, []any{count + sleeps}, nil); err != nil {
						return err
					}
				}

				stats := b.Stats()
				a.logger.Info().
					Str("session", b.ID()).
					Int("calls", stats.Calls).
					Int("groups", stats.Groups).
					Int("completions", stats.Completions).
					Msg("batch prepared")
				return nil
			},
				batcher.WithMaxBatchSize(maxBatchSize),
				batcher.WithResolver(resolver),
				batcher.WithRegistry(a.registry),
				batcher.WithConfigCache(cache),
				batcher.WithLogger(a.logger),
			)

			printResult(cmd, res)
			return res.Err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 3, "number of echo calls")
	cmd.Flags().StringVarP(&message, "message", "m", "hello from call", "echo message prefix")
	cmd.Flags().IntVar(&sleeps, "sleeps", 0, "number of sleep calls")
	cmd.Flags().Float64Var(&sleepSeconds, "sleep-seconds", 1, "duration of each sleep call")
	cmd.Flags().IntVar(&maxBatchSize, "max-batch-size", 0, "calls per job, 0 for unbounded (default from config)")
	cmd.Flags().BoolVar(&local, "local", false, "run in this process even if sbatch is available")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "do not add the completion report call")

	return cmd
}

func printResult(cmd *cobra.Command, res batcher.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", res.Status)
	if len(res.JobIDs) > 0 {
		fmt.Fprintf(out, "jobs: %s\n", joinIDs(res.JobIDs))
	}
	if len(res.CompletionJobIDs) > 0 {
		fmt.Fprintf(out, "completion jobs: %s\n", joinIDs(res.CompletionJobIDs))
	}
}

func joinIDs(ids []batcher.JobID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " ")
}
