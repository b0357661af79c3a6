package batcher

import (
	"slurminade/internal/function"
)

// Accumulator collects invocations grouped by ConfigKey.
// Groups keep the order in which their key first arrived; calls keep arrival
// order within a group. It is not safe for concurrent use.
type Accumulator struct {
	groups map[ConfigKey]*Group
	order  []ConfigKey
	calls  int
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		groups: make(map[ConfigKey]*Group),
	}
}

// Add appends inv to the group for opts and returns the group's key
func (a *Accumulator) Add(inv function.Invocation, opts function.Options) (ConfigKey, error) {
	key, err := NewConfigKey(opts)
	if err != nil {
		return ConfigKey{}, err
	}
	a.AddKeyed(key, opts, inv)
	return key, nil
}

// AddKeyed appends inv to the group for an already built key.
// opts must be the options key was built from; only the first arrival's copy is kept.
func (a *Accumulator) AddKeyed(key ConfigKey, opts function.Options, inv function.Invocation) {
	group := a.groups[key]
	if group == nil {
		group = &Group{
			Key:     key,
			Options: opts.Clone(),
		}
		a.groups[key] = group
		a.order = append(a.order, key)
	}
	group.Calls = append(group.Calls, inv)
	a.calls++
}

// Drain returns all groups in first-arrival order and clears the accumulator.
// A second Drain returns nil.
func (a *Accumulator) Drain() []*Group {
	if len(a.order) == 0 {
		return nil
	}

	groups := make([]*Group, 0, len(a.order))
	for _, key := range a.order {
		groups = append(groups, a.groups[key])
	}

	a.groups = make(map[ConfigKey]*Group)
	a.order = nil
	a.calls = 0

	return groups
}

// Len returns the number of pending invocations
func (a *Accumulator) Len() int {
	return a.calls
}

// GroupCount returns the number of distinct configurations
func (a *Accumulator) GroupCount() int {
	return len(a.order)
}

// Chunks splits calls into consecutive slices of at most size calls.
// size <= 0 means unbounded: the whole slice is one chunk.
func Chunks(calls []function.Invocation, size int) [][]function.Invocation {
	if len(calls) == 0 {
		return nil
	}
	if size <= 0 || size >= len(calls) {
		return [][]function.Invocation{calls}
	}

	chunks := make([][]function.Invocation, 0, (len(calls)+size-1)/size)
	for start := 0; start < len(calls); start += size {
		end := start + size
		if end > len(calls) {
			end = len(calls)
		}
		chunks = append(chunks, calls[start:end:end])
	}
	return chunks
}
