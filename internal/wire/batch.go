package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"slurminade/internal/function"
)

// ErrEmptyBatch is returned for a payload without calls
var ErrEmptyBatch = errors.New("batch has no calls")

// NewBatch encodes invocations into a payload with a fresh id
func NewBatch(calls []function.Invocation) (*Batch, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}

	b := &Batch{
		Version: Version,
		ID:      ulid.Make().String(),
		Calls:   make([]Call, 0, len(calls)),
	}

	for i, inv := range calls {
		call := Call{Function: inv.Function()}

		if args := inv.Args(); len(args) > 0 {
			data, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("call %d (%s): failed to marshal args: %w", i, inv.Function(), err)
			}
			call.Args = data
		}
		if kwargs := inv.Kwargs(); len(kwargs) > 0 {
			data, err := json.Marshal(kwargs)
			if err != nil {
				return nil, fmt.Errorf("call %d (%s): failed to marshal kwargs: %w", i, inv.Function(), err)
			}
			call.Kwargs = data
		}

		b.Calls = append(b.Calls, call)
	}

	return b, nil
}

// ParseBatch decodes and validates a payload
func ParseBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks the payload version and calls
func (b *Batch) Validate() error {
	if b.Version != Version {
		return fmt.Errorf("unsupported batch version: %q", b.Version)
	}
	if len(b.Calls) == 0 {
		return ErrEmptyBatch
	}
	for i, call := range b.Calls {
		if call.Function == "" {
			return fmt.Errorf("call %d: function is required", i)
		}
	}
	return nil
}

// Invocations decodes the calls.
// Numbers are kept as json.Number so integers are not turned into floats.
func (b *Batch) Invocations() ([]function.Invocation, error) {
	invs := make([]function.Invocation, 0, len(b.Calls))
	for i, call := range b.Calls {
		var args []any
		if err := decodeRaw(call.Args, &args); err != nil {
			return nil, fmt.Errorf("call %d (%s): invalid args: %w", i, call.Function, err)
		}
		var kwargs map[string]any
		if err := decodeRaw(call.Kwargs, &kwargs); err != nil {
			return nil, fmt.Errorf("call %d (%s): invalid kwargs: %w", i, call.Function, err)
		}
		invs = append(invs, function.NewInvocation(call.Function, args, kwargs))
	}
	return invs, nil
}

// Bytes returns the payload as JSON
func (b *Batch) Bytes() ([]byte, error) {
	return json.Marshal(b)
}

// Len returns the number of calls
func (b *Batch) Len() int {
	return len(b.Calls)
}

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
