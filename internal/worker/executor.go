package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"slurminade/internal/function"
	"slurminade/internal/wire"
)

// Executor runs job payloads inside a Slurm job
type Executor struct {
	registry  *function.Registry
	keepGoing bool
	logger    zerolog.Logger
}

// NewExecutor creates an executor resolving calls through registry.
// With keepGoing, a failing call does not stop the calls after it.
func NewExecutor(registry *function.Registry, keepGoing bool, logger zerolog.Logger) *Executor {
	return &Executor{
		registry:  registry,
		keepGoing: keepGoing,
		logger:    logger.With().Str("component", "worker").Logger(),
	}
}

// ExecuteReader reads a payload from r and executes it
func (e *Executor) ExecuteReader(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	return e.Execute(ctx, data)
}

// Execute decodes a payload and runs its calls in order
func (e *Executor) Execute(ctx context.Context, data []byte) error {
	batch, err := wire.ParseBatch(data)
	if err != nil {
		return err
	}

	calls, err := batch.Invocations()
	if err != nil {
		return err
	}

	logger := e.logger.With().Str("payload", batch.ID).Logger()

	// check every id up front so a typo does not surface after half the batch ran
	for _, call := range calls {
		if _, ok := e.registry.Lookup(call.Function()); !ok {
			return fmt.Errorf("%w: %s", function.ErrUnknownFunction, call.Function())
		}
	}

	start := time.Now()
	var errs []error
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := e.registry.Call(ctx, call); err != nil {
			logger.Error().
				Err(err).
				Int("call", i).
				Str("function", call.Function()).
				Msg("call failed")

			errs = append(errs, fmt.Errorf("call %d: %w", i, err))
			if !e.keepGoing {
				break
			}
			continue
		}

		logger.Debug().Int("call", i).Str("function", call.Function()).Msg("call done")
	}

	logger.Info().
		Int("calls", len(calls)).
		Int("failed", len(errs)).
		Dur("duration", time.Since(start)).
		Msg("payload executed")

	return errors.Join(errs...)
}
