package function

import (
	"context"
	"maps"
	"slices"
)

// Options holds scheduler submission options (sbatch long-option name -> value)
type Options map[string]any

// Clone returns a shallow copy of the options
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	return maps.Clone(o)
}

// Func is the signature of a batchable function.
// Args and kwargs are whatever the caller recorded; after a trip through a job
// payload numbers arrive as json.Number.
type Func func(ctx context.Context, args []any, kwargs map[string]any) error

// Function is a registered, batchable function handle
type Function struct {
	id       string
	fn       Func
	options  Options
	registry *Registry
}

// ID returns the stable identity the function was registered under
func (f *Function) ID() string {
	return f.id
}

// Options returns a copy of the scheduler options declared for the function
func (f *Function) Options() Options {
	return f.options.Clone()
}

// Registry returns the registry that owns this handle
func (f *Function) Registry() *Registry {
	return f.registry
}

// Invoke calls the function directly in-process
func (f *Function) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	return f.fn(ctx, args, kwargs)
}

// Invocation is one deferred call: a function identity plus recorded arguments.
// It is immutable once created; accessors hand out copies.
type Invocation struct {
	function string
	args     []any
	kwargs   map[string]any
}

// NewInvocation creates an invocation, copying args and kwargs
func NewInvocation(functionID string, args []any, kwargs map[string]any) Invocation {
	inv := Invocation{
		function: functionID,
		args:     slices.Clone(args),
		kwargs:   maps.Clone(kwargs),
	}
	if inv.args == nil {
		inv.args = []any{}
	}
	if inv.kwargs == nil {
		inv.kwargs = map[string]any{}
	}
	return inv
}

// Function returns the target function id
func (i Invocation) Function() string {
	return i.function
}

// Args returns a copy of the positional arguments
func (i Invocation) Args() []any {
	return slices.Clone(i.args)
}

// Kwargs returns a copy of the keyword arguments
func (i Invocation) Kwargs() map[string]any {
	return maps.Clone(i.kwargs)
}
