package batcher

import (
	"context"

	"slurminade/internal/function"
)

// JobID is an opaque scheduler-assigned job identifier
type JobID string

// String returns the id as text
func (id JobID) String() string {
	return string(id)
}

// Dispatcher submits jobs to the scheduler
type Dispatcher interface {
	// DispatchBatch submits one job running all calls in order
	DispatchBatch(ctx context.Context, calls []function.Invocation, opts function.Options) (JobID, error)
	// DispatchSingle submits one job running a single call
	DispatchSingle(ctx context.Context, call function.Invocation, opts function.Options) (JobID, error)
}

// Prober reports whether the scheduler can be reached from this host
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Resolver merges a function's declared options with process-wide defaults
type Resolver interface {
	Resolve(overrides function.Options) function.Options
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(overrides function.Options) function.Options

// Resolve calls f
func (f ResolverFunc) Resolve(overrides function.Options) function.Options {
	return f(overrides)
}

// identityResolver uses the declared options as they are
var identityResolver = ResolverFunc(func(overrides function.Options) function.Options {
	return overrides.Clone()
})

// Group is a run of invocations sharing one scheduler configuration
type Group struct {
	Key     ConfigKey
	Options function.Options
	Calls   []function.Invocation
}

// Status describes how a session ended
type Status int

const (
	// StatusOpen means the session has not run its terminal action
	StatusOpen Status = iota
	// StatusSubmitted means the batch was submitted to the scheduler
	StatusSubmitted
	// StatusRanLocally means the batch ran in-process
	StatusRanLocally
	// StatusAborted means the session body failed and nothing ran
	StatusAborted
	// StatusClosed means the terminal action had already run
	StatusClosed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusSubmitted:
		return "submitted"
	case StatusRanLocally:
		return "ran-locally"
	case StatusAborted:
		return "aborted"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result is the outcome of closing a session
type Result struct {
	Status Status
	// JobIDs holds the batch jobs in submission order
	JobIDs []JobID
	// CompletionJobIDs holds the jobs chained behind JobIDs
	CompletionJobIDs []JobID
	// Err is the body error for StatusAborted, or the error of the terminal action
	Err error
}

// Stats counts what a session holds
type Stats struct {
	Calls       int
	Groups      int
	Completions int
}
