package batcher

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"slurminade/internal/function"
)

// ConfigKey is the grouping identity of a set of scheduler options.
// Two option sets with the same key/value pairs produce equal keys no matter
// the insertion order, so ConfigKey can be used directly as a map key.
type ConfigKey struct {
	canonical string
	hash      uint64
}

// NewConfigKey builds the key for opts.
// Only scalar values (strings, bools, integers, floats) are allowed.
func NewConfigKey(opts function.Options) (ConfigKey, error) {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	entryHashes := make([]uint64, 0, len(names))
	for _, name := range names {
		text, ok := canonicalValue(opts[name])
		if !ok {
			return ConfigKey{}, &InvalidConfigError{Option: name, Value: opts[name]}
		}
		entry := strconv.Quote(name) + "=" + text
		sb.WriteString(entry)
		sb.WriteByte(';')
		entryHashes = append(entryHashes, xxhash.Sum64String(entry))
	}

	return ConfigKey{
		canonical: sb.String(),
		hash:      combineHashes(entryHashes),
	}, nil
}

// String returns the canonical text of the key
func (k ConfigKey) String() string {
	if k.canonical == "" {
		return "{}"
	}
	return k.canonical
}

// Hash returns the order-independent hash of the key
func (k ConfigKey) Hash() uint64 {
	return k.hash
}

// combineHashes hashes the sorted per-entry hashes
func combineHashes(hashes []uint64) uint64 {
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	d := xxhash.New()
	var buf [8]byte
	for _, h := range hashes {
		binary.LittleEndian.PutUint64(buf[:], h)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// canonicalValue encodes a scalar with a type tag.
// Integral floats and in-range unsigned values encode as integers so that
// 2, int64(2) and 2.0 all group together.
func canonicalValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return "s" + strconv.Quote(x), true
	case bool:
		return "b" + strconv.FormatBool(x), true
	case int:
		return intValue(int64(x)), true
	case int8:
		return intValue(int64(x)), true
	case int16:
		return intValue(int64(x)), true
	case int32:
		return intValue(int64(x)), true
	case int64:
		return intValue(x), true
	case uint:
		return uintValue(uint64(x)), true
	case uint8:
		return uintValue(uint64(x)), true
	case uint16:
		return uintValue(uint64(x)), true
	case uint32:
		return uintValue(uint64(x)), true
	case uint64:
		return uintValue(x), true
	case float32:
		return floatValue(float64(x))
	case float64:
		return floatValue(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return intValue(n), true
		}
		if f, err := x.Float64(); err == nil {
			return floatValue(f)
		}
		return "", false
	default:
		return "", false
	}
}

func intValue(n int64) string {
	return "i" + strconv.FormatInt(n, 10)
}

func uintValue(n uint64) string {
	if n <= math.MaxInt64 {
		return intValue(int64(n))
	}
	return "u" + strconv.FormatUint(n, 10)
}

func floatValue(f float64) (string, bool) {
	if math.IsNaN(f) {
		// NaN never equals itself
		return "", false
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return intValue(int64(f)), true
	}
	return "f" + strconv.FormatFloat(f, 'g', -1, 64), true
}
