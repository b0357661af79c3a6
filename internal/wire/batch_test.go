package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurminade/internal/function"
)

func TestNewBatch_RoundTrip(t *testing.T) {
	calls := []function.Invocation{
		function.NewInvocation("compute", []any{7, "input.csv", 0.5}, map[string]any{"verbose": true}),
		function.NewInvocation("report", nil, nil),
	}

	b, err := NewBatch(calls)
	require.NoError(t, err)
	assert.Equal(t, Version, b.Version)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 2, b.Len())

	data, err := b.Bytes()
	require.NoError(t, err)

	parsed, err := ParseBatch(data)
	require.NoError(t, err)
	assert.Equal(t, b.ID, parsed.ID)

	invs, err := parsed.Invocations()
	require.NoError(t, err)
	require.Len(t, invs, 2)

	assert.Equal(t, "compute", invs[0].Function())
	assert.Equal(t, []any{json.Number("7"), "input.csv", json.Number("0.5")}, invs[0].Args())
	assert.Equal(t, map[string]any{"verbose": true}, invs[0].Kwargs())

	assert.Equal(t, "report", invs[1].Function())
	assert.Empty(t, invs[1].Args())
	assert.Empty(t, invs[1].Kwargs())
}

func TestNewBatch_Errors(t *testing.T) {
	_, err := NewBatch(nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = NewBatch([]function.Invocation{function.NewInvocation("f", []any{make(chan int)}, nil)})
	require.Error(t, err)
}

func TestNewBatch_UniqueIDs(t *testing.T) {
	calls := []function.Invocation{function.NewInvocation("f", nil, nil)}
	a, err := NewBatch(calls)
	require.NoError(t, err)
	b, err := NewBatch(calls)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParseBatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"wrong version", `{"version":"0","id":"x","calls":[{"fn":"f"}]}`},
		{"no calls", `{"version":"1","id":"x","calls":[]}`},
		{"missing function", `{"version":"1","id":"x","calls":[{"args":[1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatch([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestBatch_InvocationsBadArgs(t *testing.T) {
	b, err := ParseBatch([]byte(`{"version":"1","id":"x","calls":[{"fn":"f","args":{"not":"a list"}}]}`))
	require.NoError(t, err)

	_, err = b.Invocations()
	require.Error(t, err)
}
