package batcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"slurminade/internal/function"
)

// DependencyOption is the sbatch option carrying job dependencies
const DependencyOption = "dependency"

// CompletionEntry is an invocation waiting for the batch's jobs to finish
type CompletionEntry struct {
	Call     function.Invocation
	Override function.Options
}

// CompletionRegistry queues invocations that run after all jobs of a batch.
// The queue is separate from the batch groups; each entry becomes its own job.
type CompletionRegistry struct {
	entries    []CompletionEntry
	dispatcher Dispatcher
	resolver   Resolver
	logger     zerolog.Logger
}

// NewCompletionRegistry creates an empty registry
func NewCompletionRegistry(dispatcher Dispatcher, resolver Resolver, logger zerolog.Logger) *CompletionRegistry {
	if resolver == nil {
		resolver = identityResolver
	}
	return &CompletionRegistry{
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger.With().Str("component", "completion").Logger(),
	}
}

// Register queues inv with optional option overrides
func (r *CompletionRegistry) Register(inv function.Invocation, override function.Options) {
	r.entries = append(r.entries, CompletionEntry{
		Call:     inv,
		Override: override.Clone(),
	})
}

// Len returns the number of queued entries
func (r *CompletionRegistry) Len() int {
	return len(r.entries)
}

// Drain returns the queued entries in registration order and clears the queue
func (r *CompletionRegistry) Drain() []CompletionEntry {
	entries := r.entries
	r.entries = nil
	return entries
}

// Materialize submits every queued entry as a single-call job depending on
// jobIDs. It must be called after all jobs of the batch are submitted.
// Submission stops at the first failure; ids of the entries submitted so far are returned.
func (r *CompletionRegistry) Materialize(ctx context.Context, jobIDs []JobID) ([]JobID, error) {
	entries := r.Drain()
	if len(entries) == 0 {
		return nil, nil
	}

	submitted := make([]JobID, 0, len(entries))
	for _, entry := range entries {
		opts := r.resolver.Resolve(entry.Override)
		if opts == nil {
			opts = function.Options{}
		}
		if dep := ComposeDependency(existingDependency(opts), jobIDs); dep != "" {
			opts[DependencyOption] = dep
		}

		id, err := r.dispatcher.DispatchSingle(ctx, entry.Call, opts)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("function", entry.Call.Function()).
				Msg("failed to submit completion job")
			return submitted, &SubmissionError{Submitted: submitted, Err: err}
		}

		r.logger.Debug().
			Str("function", entry.Call.Function()).
			Str("jobId", id.String()).
			Interface("dependency", opts[DependencyOption]).
			Msg("completion job submitted")
		submitted = append(submitted, id)
	}

	return submitted, nil
}

// ComposeDependency appends an afterany clause over ids to an existing dependency expression.
// With no ids the existing expression is returned unchanged.
func ComposeDependency(existing string, ids []JobID) string {
	if len(ids) == 0 {
		return existing
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	clause := "afterany:" + strings.Join(parts, ":")

	if existing == "" {
		return clause
	}
	return existing + "," + clause
}

// existingDependency returns the dependency option of opts as text
func existingDependency(opts function.Options) string {
	v, ok := opts[DependencyOption]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
