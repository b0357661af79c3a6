package slurm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedOutput is returned when sbatch output does not start with a job id
var ErrUnexpectedOutput = errors.New("unexpected sbatch output")

// Runner runs a command with stdin and returns its stdout and stderr
type Runner func(ctx context.Context, name string, args []string, stdin []byte) (stdout []byte, stderr []byte, err error)

// CommandError is returned when sbatch exits with an error
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, stderr)
}

// Unwrap returns the underlying error
func (e *CommandError) Unwrap() error {
	return e.Err
}
