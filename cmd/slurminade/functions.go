package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"slurminade/internal/function"
)

// Built-in function ids. A worker only runs what its registry knows, so the
// submitting process and the job must register the same set.
const (
	fnEcho   = "echo"
	fnSleep  = "sleep"
	fnReport = "report"
)

// newRegistry registers the built-in functions, writing their output to out
func newRegistry(out io.Writer, logger zerolog.Logger) *function.Registry {
	reg := function.NewRegistry(logger)

	reg.MustRegister(fnEcho, func(_ context.Context, args []any, _ map[string]any) error {
		_, err := fmt.Fprintln(out, args...)
		return err
	}, function.Options{"ntasks": 1})

	reg.MustRegister(fnSleep, func(ctx context.Context, args []any, _ map[string]any) error {
		if len(args) != 1 {
			return fmt.Errorf("sleep takes 1 argument, got %d", len(args))
		}
		seconds, err := toFloat(args[0])
		if err != nil {
			return err
		}

		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}, function.Options{"ntasks": 1, "cpus-per-task": 1})

	reg.MustRegister(fnReport, func(_ context.Context, args []any, _ map[string]any) error {
		if len(args) == 0 {
			_, err := fmt.Fprintln(out, "batch finished")
			return err
		}
		_, err := fmt.Fprintf(out, "batch finished: %v calls\n", args[0])
		return err
	}, function.Options{"ntasks": 1})

	return reg
}

// toFloat accepts the numeric kinds arguments arrive as, locally or decoded from a payload
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func newFunctionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions jobs can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, id := range a.registry.IDs() {
				fn, _ := a.registry.Lookup(id)
				opts := a.cfg.Resolve(fn.Options())
				data, err := json.Marshal(opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", id, data)
			}
			return nil
		},
	}
}
