package slurm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"slurminade/internal/batcher"
	"slurminade/internal/function"
)

// payloadDelimiter ends the here-document carrying the payload.
// Encoded JSON never contains a bare newline, so it cannot collide.
const payloadDelimiter = "SLURMINADE_PAYLOAD"

// BuildArgs turns scheduler options into sbatch arguments, sorted by option name.
// true booleans become bare flags and false booleans are left out.
func BuildArgs(opts function.Options) ([]string, error) {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []string{"--parsable"}
	for _, name := range names {
		flag := strings.TrimPrefix(name, "--")
		if flag == "" || strings.ContainsAny(flag, "= \t\n") {
			return nil, fmt.Errorf("invalid sbatch option name %q", name)
		}

		switch v := opts[name].(type) {
		case bool:
			if v {
				args = append(args, "--"+flag)
			}
			continue
		case nil:
			return nil, fmt.Errorf("sbatch option %q has no value", name)
		}

		value, err := formatValue(opts[name])
		if err != nil {
			return nil, fmt.Errorf("sbatch option %q: %w", name, err)
		}
		args = append(args, "--"+flag+"="+value)
	}

	return args, nil
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// BuildScript renders the job script fed to sbatch on stdin.
// The payload reaches the worker's stdin through a quoted here-document.
func BuildScript(shell, workerCommand string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("#!" + shell + "\n")
	buf.WriteString(workerCommand + " exec <<'" + payloadDelimiter + "'\n")
	buf.Write(payload)
	buf.WriteString("\n" + payloadDelimiter + "\n")
	return buf.Bytes()
}

// ParseJobID extracts the job id from `sbatch --parsable` output ("id" or "id;cluster")
func ParseJobID(out []byte) (batcher.JobID, error) {
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	id, _, _ := strings.Cut(line, ";")

	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrUnexpectedOutput)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrUnexpectedOutput, line)
		}
	}
	return batcher.JobID(id), nil
}
