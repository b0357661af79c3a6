package function

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownFunction is returned when an invocation names an unregistered function
	ErrUnknownFunction = errors.New("unknown function")
	// ErrDuplicateFunction is returned when an id is registered twice
	ErrDuplicateFunction = errors.New("duplicate function")
)

// CallError wraps an error returned by a function during local execution
type CallError struct {
	Function string
	Err      error
}

// Error implements the error interface
func (e *CallError) Error() string {
	return fmt.Sprintf("call %s: %v", e.Function, e.Err)
}

// Unwrap returns the function's error
func (e *CallError) Unwrap() error {
	return e.Err
}

// Registry maps stable function ids to callables.
// It is populated at startup, before any session or worker looks functions up.
type Registry struct {
	funcs  map[string]*Function
	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		funcs:  make(map[string]*Function),
		logger: logger.With().Str("component", "function-registry").Logger(),
	}
}

// Register adds a function under id with its declared scheduler options
func (r *Registry) Register(id string, fn Func, opts Options) (*Function, error) {
	if id == "" {
		return nil, errors.New("function id is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("function %s: nil func", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFunction, id)
	}

	f := &Function{
		id:       id,
		fn:       fn,
		options:  opts.Clone(),
		registry: r,
	}
	r.funcs[id] = f

	r.logger.Debug().Str("function", id).Int("options", len(opts)).Msg("function registered")
	return f, nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(id string, fn Func, opts Options) *Function {
	f, err := r.Register(id, fn, opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Lookup returns the function registered under id
func (r *Registry) Lookup(id string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[id]
	return f, ok
}

// Owns reports whether f is a handle issued by this registry
func (r *Registry) Owns(f *Function) bool {
	if f == nil || f.registry != r {
		return false
	}
	registered, ok := r.Lookup(f.id)
	return ok && registered == f
}

// IDs returns all registered ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.funcs))
	for id := range r.funcs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Call looks up the invocation's function and invokes it in-process.
// Errors from the function come back wrapped in a *CallError.
func (r *Registry) Call(ctx context.Context, inv Invocation) error {
	f, ok := r.Lookup(inv.Function())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, inv.Function())
	}

	if err := f.Invoke(ctx, inv.Args(), inv.Kwargs()); err != nil {
		return &CallError{Function: inv.Function(), Err: err}
	}
	return nil
}
