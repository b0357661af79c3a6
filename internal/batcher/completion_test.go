package batcher

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurminade/internal/function"
)

func TestComposeDependency(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		ids      []JobID
		want     string
	}{
		{"existing clause", "afterok:5", []JobID{"10", "11"}, "afterok:5,afterany:10:11"},
		{"no existing", "", []JobID{"10", "11"}, "afterany:10:11"},
		{"single id", "", []JobID{"7"}, "afterany:7"},
		{"no ids", "afterok:5", nil, "afterok:5"},
		{"nothing", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeDependency(tt.existing, tt.ids))
		})
	}
}

func TestCompletionRegistry_Materialize(t *testing.T) {
	d := newFakeDispatcher()
	r := NewCompletionRegistry(d, nil, zerolog.Nop())

	r.Register(inv("report", 1), function.Options{"dependency": "afterok:5", "mem": "2G"})
	r.Register(inv("cleanup"), nil)
	assert.Equal(t, 2, r.Len())

	ids, err := r.Materialize(context.Background(), []JobID{"10", "11"})
	require.NoError(t, err)
	assert.Equal(t, []JobID{"101", "102"}, ids)
	assert.Zero(t, r.Len())

	require.Len(t, d.singles, 2)
	assert.Equal(t, "report", d.singles[0].call.Function())
	assert.Equal(t, function.Options{"dependency": "afterok:5,afterany:10:11", "mem": "2G"}, d.singles[0].opts)
	assert.Equal(t, function.Options{"dependency": "afterany:10:11"}, d.singles[1].opts)
	assert.Empty(t, d.batches)
}

func TestCompletionRegistry_UsesResolver(t *testing.T) {
	d := newFakeDispatcher()
	resolver := ResolverFunc(func(o function.Options) function.Options {
		merged := function.Options{"partition": "short", "dependency": "afterok:1"}
		for k, v := range o {
			merged[k] = v
		}
		return merged
	})
	r := NewCompletionRegistry(d, resolver, zerolog.Nop())
	r.Register(inv("report"), function.Options{"partition": "long"})

	_, err := r.Materialize(context.Background(), []JobID{"3"})
	require.NoError(t, err)
	require.Len(t, d.singles, 1)
	assert.Equal(t, function.Options{"partition": "long", "dependency": "afterok:1,afterany:3"}, d.singles[0].opts)
}

func TestCompletionRegistry_OverrideCopied(t *testing.T) {
	d := newFakeDispatcher()
	r := NewCompletionRegistry(d, nil, zerolog.Nop())

	override := function.Options{"mem": "1G"}
	r.Register(inv("report"), override)
	override["mem"] = "64G"

	entries := r.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, "1G", entries[0].Override["mem"])
}

func TestCompletionRegistry_MaterializeEmpty(t *testing.T) {
	d := newFakeDispatcher()
	r := NewCompletionRegistry(d, nil, zerolog.Nop())

	ids, err := r.Materialize(context.Background(), []JobID{"1"})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, d.singles)
}
