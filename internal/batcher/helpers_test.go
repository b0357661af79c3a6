package batcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"slurminade/internal/function"
)

type batchCall struct {
	calls []function.Invocation
	opts  function.Options
}

type singleCall struct {
	call function.Invocation
	opts function.Options
}

// fakeDispatcher records submissions and hands out sequential job ids
type fakeDispatcher struct {
	next     int
	batches  []batchCall
	singles  []singleCall
	failAt   int // 1-based DispatchBatch call that fails, 0 for never
	failWith error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{next: 100}
}

func (d *fakeDispatcher) DispatchBatch(_ context.Context, calls []function.Invocation, opts function.Options) (JobID, error) {
	if d.failAt > 0 && len(d.batches)+1 == d.failAt {
		d.failAt = 0
		return "", d.failWith
	}
	d.batches = append(d.batches, batchCall{calls: calls, opts: opts})
	d.next++
	return JobID(fmt.Sprint(d.next)), nil
}

func (d *fakeDispatcher) DispatchSingle(_ context.Context, call function.Invocation, opts function.Options) (JobID, error) {
	d.singles = append(d.singles, singleCall{call: call, opts: opts})
	d.next++
	return JobID(fmt.Sprint(d.next)), nil
}

type staticProber bool

func (p staticProber) Reachable(context.Context) bool {
	return bool(p)
}

// recorder collects the args of local calls in execution order
type recorder struct {
	calls []string
	fail  map[string]error
}

func (r *recorder) fn(name string) function.Func {
	return func(_ context.Context, args []any, _ map[string]any) error {
		r.calls = append(r.calls, fmt.Sprintf("%s%v", name, args))
		if err, ok := r.fail[name]; ok {
			return err
		}
		return nil
	}
}

var errBoom = errors.New("boom")

func newRegistry(t *testing.T) *function.Registry {
	t.Helper()
	return function.NewRegistry(zerolog.Nop())
}

func mustRegister(t *testing.T, reg *function.Registry, id string, fn function.Func, opts function.Options) *function.Function {
	t.Helper()
	f, err := reg.Register(id, fn, opts)
	require.NoError(t, err)
	return f
}

func functionIDs(calls []function.Invocation) []string {
	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = fmt.Sprintf("%s%v", c.Function(), c.Args())
	}
	return ids
}
