package batcher

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurminade/internal/function"
)

func TestConfigCache_Get(t *testing.T) {
	reg := function.NewRegistry(zerolog.Nop())
	f := reg.MustRegister("f", (&recorder{}).fn("f"), function.Options{"cpus": 2})
	g := reg.MustRegister("g", (&recorder{}).fn("g"), function.Options{"cpus": 2.0})

	resolves := 0
	cache, err := NewConfigCache(2, ResolverFunc(func(o function.Options) function.Options {
		resolves++
		return o.Clone()
	}))
	require.NoError(t, err)

	k1, opts, err := cache.Get(f)
	require.NoError(t, err)
	opts["cpus"] = 99 // callers get a copy

	k2, opts2, err := cache.Get(f)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, 2, opts2["cpus"])
	assert.Equal(t, 1, resolves)

	k3, _, err := cache.Get(g)
	require.NoError(t, err)
	assert.Equal(t, k1, k3)
	assert.Equal(t, 2, cache.Len())
}

func TestConfigCache_Evicts(t *testing.T) {
	reg := function.NewRegistry(zerolog.Nop())
	cache, err := NewConfigCache(1, nil)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		f := reg.MustRegister(id, (&recorder{}).fn(id), nil)
		_, _, err := cache.Get(f)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestConfigCache_InvalidNotCached(t *testing.T) {
	reg := function.NewRegistry(zerolog.Nop())
	f := reg.MustRegister("f", (&recorder{}).fn("f"), function.Options{"x": []int{1}})

	cache, err := NewConfigCache(4, nil)
	require.NoError(t, err)

	_, _, err = cache.Get(f)
	var cfgErr *InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, cache.Len())
}

func TestNewConfigCache_InvalidSize(t *testing.T) {
	_, err := NewConfigCache(0, nil)
	require.Error(t, err)
}
