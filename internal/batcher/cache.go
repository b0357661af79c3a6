package batcher

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"slurminade/internal/function"
)

// DefaultConfigCacheSize is the number of functions whose resolved config is kept
const DefaultConfigCacheSize = 1024

// resolvedConfig is the effective configuration of one function
type resolvedConfig struct {
	key     ConfigKey
	options function.Options
}

// ConfigCache remembers the resolved options and ConfigKey of each function,
// so repeated Adds of the same function skip the merge and key construction.
// Entries are only valid for the resolver the cache was created with.
type ConfigCache struct {
	cache    *lru.Cache[*function.Function, resolvedConfig]
	resolver Resolver
}

// NewConfigCache creates a cache holding up to size functions
func NewConfigCache(size int, resolver Resolver) (*ConfigCache, error) {
	cache, err := lru.New[*function.Function, resolvedConfig](size)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = identityResolver
	}
	return &ConfigCache{
		cache:    cache,
		resolver: resolver,
	}, nil
}

// Get returns the key and a copy of the effective options for fn
func (c *ConfigCache) Get(fn *function.Function) (ConfigKey, function.Options, error) {
	if rc, ok := c.cache.Get(fn); ok {
		return rc.key, rc.options.Clone(), nil
	}

	opts := c.resolver.Resolve(fn.Options())
	key, err := NewConfigKey(opts)
	if err != nil {
		return ConfigKey{}, nil, err
	}

	c.cache.Add(fn, resolvedConfig{key: key, options: opts})
	return key, opts.Clone(), nil
}

// Len returns the number of cached functions
func (c *ConfigCache) Len() int {
	return c.cache.Len()
}
