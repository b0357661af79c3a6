package batcher

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"slurminade/internal/function"
)

// state of an AutoBatch session
type state int

const (
	stateOpen state = iota
	stateTerminating
	stateClosed
)

// Option configures an AutoBatch
type Option func(*AutoBatch) error

// WithMaxBatchSize bounds the number of calls per job. 0 means unbounded.
func WithMaxBatchSize(n int) Option {
	return func(b *AutoBatch) error {
		if n < 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, n)
		}
		b.maxBatchSize = n
		return nil
	}
}

// WithResolver sets the configuration merge applied to each function's declared options
func WithResolver(r Resolver) Option {
	return func(b *AutoBatch) error {
		if r != nil {
			b.resolver = r
		}
		return nil
	}
}

// WithRegistry restricts the session to functions of reg.
// Jobs are executed by a worker that only knows reg, so handles from other
// registries are rejected as not batchable.
func WithRegistry(reg *function.Registry) Option {
	return func(b *AutoBatch) error {
		b.registry = reg
		return nil
	}
}

// WithConfigCache reuses resolved configurations across sessions.
// The cache must have been created with the same resolver.
func WithConfigCache(c *ConfigCache) Option {
	return func(b *AutoBatch) error {
		b.cache = c
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(b *AutoBatch) error {
		b.logger = logger
		return nil
	}
}

// AutoBatch is one batching session.
// Calls are accumulated while the session is open; exactly one terminal
// action (Distribute, RunLocally or Close) drains them. It is not safe for
// concurrent use.
type AutoBatch struct {
	id           ulid.ULID
	maxBatchSize int
	dispatcher   Dispatcher
	prober       Prober
	resolver     Resolver
	registry     *function.Registry
	cache        *ConfigCache
	tasks        *Accumulator
	completions  *CompletionRegistry
	handles      map[string]*function.Function
	state        state
	logger       zerolog.Logger
}

// New opens a session submitting through dispatcher.
// prober is consulted once by Close to pick between submission and local execution.
func New(dispatcher Dispatcher, prober Prober, opts ...Option) (*AutoBatch, error) {
	b := &AutoBatch{
		id:         ulid.Make(),
		dispatcher: dispatcher,
		prober:     prober,
		resolver:   identityResolver,
		tasks:      NewAccumulator(),
		handles:    make(map[string]*function.Function),
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	sessionLogger := b.logger.With().Str("session", b.id.String()).Logger()
	b.logger = sessionLogger.With().Str("component", "autobatch").Logger()
	b.completions = NewCompletionRegistry(dispatcher, b.resolver, sessionLogger)

	return b, nil
}

// ID returns the session id
func (b *AutoBatch) ID() string {
	return b.id.String()
}

// MaxBatchSize returns the chunk bound, 0 if unbounded
func (b *AutoBatch) MaxBatchSize() int {
	return b.maxBatchSize
}

// Stats returns the pending calls, groups and completion entries
func (b *AutoBatch) Stats() Stats {
	return Stats{
		Calls:       b.tasks.Len(),
		Groups:      b.tasks.GroupCount(),
		Completions: b.completions.Len(),
	}
}

// Add records a call of fn to be batched
func (b *AutoBatch) Add(fn *function.Function, args []any, kwargs map[string]any) error {
	if err := b.checkAdd(fn); err != nil {
		return err
	}

	key, opts, err := b.effective(fn)
	if err != nil {
		return err
	}

	b.tasks.AddKeyed(key, opts, function.NewInvocation(fn.ID(), args, kwargs))
	b.handles[fn.ID()] = fn
	return nil
}

// OnCompletion records a call of fn to run after every job of the batch has finished
func (b *AutoBatch) OnCompletion(fn *function.Function, args []any, kwargs map[string]any) error {
	if err := b.checkAdd(fn); err != nil {
		return err
	}

	// the key is not needed, but invalid options should fail here rather than at submission
	if _, _, err := b.effective(fn); err != nil {
		return err
	}

	b.completions.Register(function.NewInvocation(fn.ID(), args, kwargs), fn.Options())
	b.handles[fn.ID()] = fn
	return nil
}

// checkAdd validates the session state and the function handle
func (b *AutoBatch) checkAdd(fn *function.Function) error {
	if b.state != stateOpen {
		return ErrSessionClosed
	}
	if fn == nil {
		return &NotBatchableError{Reason: "nil function"}
	}
	if reg := fn.Registry(); reg == nil || !reg.Owns(fn) {
		return &NotBatchableError{Function: fn.ID(), Reason: "not a registered function handle"}
	}
	if b.registry != nil && fn.Registry() != b.registry {
		return &NotBatchableError{Function: fn.ID(), Reason: "registered in a different registry"}
	}
	if prev, ok := b.handles[fn.ID()]; ok && prev != fn {
		return &NotBatchableError{Function: fn.ID(), Reason: "another function with this id is already in the batch"}
	}
	return nil
}

// effective resolves fn's configuration and its key
func (b *AutoBatch) effective(fn *function.Function) (ConfigKey, function.Options, error) {
	if b.cache != nil {
		return b.cache.Get(fn)
	}
	opts := b.resolver.Resolve(fn.Options())
	key, err := NewConfigKey(opts)
	if err != nil {
		return ConfigKey{}, nil, err
	}
	return key, opts, nil
}

// begin moves the session to terminating and drains the batch groups.
// ok is false if a terminal action already ran.
func (b *AutoBatch) begin() ([]*Group, bool) {
	if b.state != stateOpen {
		return nil, false
	}
	b.state = stateTerminating
	return b.tasks.Drain(), true
}

// finish closes the session, dropping anything still queued
func (b *AutoBatch) finish() {
	b.tasks.Drain()
	b.completions.Drain()
	b.state = stateClosed
}

// Distribute submits the batch: one job per chunk of each group, then one job
// per completion entry depending on all of them. It returns the batch job ids
// in submission order. After the session is closed it does nothing and returns nil.
//
// The first submission failure stops the run: remaining chunks and the
// completion entries are dropped and a *SubmissionError listing the jobs
// already submitted is returned together with their ids.
func (b *AutoBatch) Distribute(ctx context.Context) ([]JobID, error) {
	ids, _, err := b.distribute(ctx)
	return ids, err
}

func (b *AutoBatch) distribute(ctx context.Context) ([]JobID, []JobID, error) {
	groups, ok := b.begin()
	if !ok {
		return nil, nil, nil
	}
	defer b.finish()

	var jobIDs []JobID
	for _, group := range groups {
		chunks := Chunks(group.Calls, b.maxBatchSize)
		for i, chunk := range chunks {
			id, err := b.dispatcher.DispatchBatch(ctx, chunk, group.Options.Clone())
			if err != nil {
				b.logger.Error().
					Err(err).
					Str("config", group.Key.String()).
					Int("chunk", i).
					Int("submitted", len(jobIDs)).
					Msg("batch submission failed, dropping the rest of the batch")
				return jobIDs, nil, &SubmissionError{Submitted: jobIDs, Err: err}
			}

			b.logger.Debug().
				Str("jobId", id.String()).
				Uint64("config", group.Key.Hash()).
				Int("chunk", i).
				Int("calls", len(chunk)).
				Msg("batch job submitted")
			jobIDs = append(jobIDs, id)
		}
	}

	completionIDs, err := b.completions.Materialize(ctx, jobIDs)
	if err != nil {
		return jobIDs, completionIDs, err
	}

	b.logger.Info().
		Int("groups", len(groups)).
		Int("jobs", len(jobIDs)).
		Int("completionJobs", len(completionIDs)).
		Msg("batch distributed")

	return jobIDs, completionIDs, nil
}

// RunLocally runs the batch in-process: every group's calls in order, then the
// completion entries. The first failing call stops the run and its error is
// returned wrapped in a *function.CallError. After the session is closed it does nothing.
func (b *AutoBatch) RunLocally(ctx context.Context) error {
	groups, ok := b.begin()
	if !ok {
		return nil
	}
	entries := b.completions.Drain()
	defer b.finish()

	calls := 0
	for _, group := range groups {
		for _, call := range group.Calls {
			if err := b.invoke(ctx, call); err != nil {
				return err
			}
			calls++
		}
	}
	for _, entry := range entries {
		if err := b.invoke(ctx, entry.Call); err != nil {
			return err
		}
		calls++
	}

	b.logger.Info().Int("calls", calls).Msg("batch ran locally")
	return nil
}

func (b *AutoBatch) invoke(ctx context.Context, call function.Invocation) error {
	fn, ok := b.handles[call.Function()]
	if !ok {
		return fmt.Errorf("%w: %s", function.ErrUnknownFunction, call.Function())
	}
	if err := fn.Invoke(ctx, call.Args(), call.Kwargs()); err != nil {
		return &function.CallError{Function: call.Function(), Err: err}
	}
	return nil
}

// Close is the session's scope exit.
// A non-nil bodyErr aborts the session: nothing is submitted or run and the
// error is reported in the result. Otherwise the scheduler is probed once and
// the batch is either distributed or run locally.
func (b *AutoBatch) Close(ctx context.Context, bodyErr error) Result {
	if b.state != stateOpen {
		return Result{Status: StatusClosed}
	}

	if bodyErr != nil {
		stats := b.Stats()
		b.state = stateTerminating
		b.finish()
		b.logger.Error().
			Err(bodyErr).
			Int("droppedCalls", stats.Calls).
			Int("droppedCompletions", stats.Completions).
			Msg("aborted due to error")
		return Result{Status: StatusAborted, Err: bodyErr}
	}

	if b.prober == nil || !b.prober.Reachable(ctx) {
		b.logger.Warn().Msg("no Slurm environment available, running batch locally")
		return Result{Status: StatusRanLocally, Err: b.RunLocally(ctx)}
	}

	jobIDs, completionIDs, err := b.distribute(ctx)
	return Result{
		Status:           StatusSubmitted,
		JobIDs:           jobIDs,
		CompletionJobIDs: completionIDs,
		Err:              err,
	}
}

// Scope runs body against the session and closes it.
// A panic in body is recovered and treated like a returned error.
func (b *AutoBatch) Scope(ctx context.Context, body func(*AutoBatch) error) Result {
	return b.Close(ctx, runBody(b, body))
}

func runBody(b *AutoBatch, body func(*AutoBatch) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in autobatch body: %v", r)
		}
	}()
	return body(b)
}

// Run opens a session, runs body in it and closes it
func Run(ctx context.Context, dispatcher Dispatcher, prober Prober, body func(*AutoBatch) error, opts ...Option) Result {
	b, err := New(dispatcher, prober, opts...)
	if err != nil {
		return Result{Status: StatusAborted, Err: err}
	}
	return b.Scope(ctx, body)
}
