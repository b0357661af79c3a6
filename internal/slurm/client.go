package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"slurminade/internal/batcher"
	"slurminade/internal/config"
	"slurminade/internal/function"
	"slurminade/internal/wire"
)

// Client submits batches with sbatch.
// It implements batcher.Dispatcher and batcher.Prober.
type Client struct {
	binary        string
	workerCommand string
	shell         string
	attempts      int
	retryDelay    time.Duration
	run           Runner
	lookPath      func(file string) (string, error)
	logger        zerolog.Logger
}

// NewClient creates a new Client
func NewClient(cfg config.SlurmConfig, logger zerolog.Logger) *Client {
	attempts := cfg.SubmitAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Client{
		binary:        cfg.Binary,
		workerCommand: cfg.WorkerCommand,
		shell:         cfg.Shell,
		attempts:      attempts,
		retryDelay:    cfg.GetSubmitRetryDelayDuration(),
		run:           runCommand,
		lookPath:      exec.LookPath,
		logger:        logger.With().Str("component", "slurm").Logger(),
	}
}

// SetRunner replaces the command runner
func (c *Client) SetRunner(run Runner) {
	c.run = run
}

// SetLookPath replaces the executable lookup used by Reachable
func (c *Client) SetLookPath(lookPath func(file string) (string, error)) {
	c.lookPath = lookPath
}

// Reachable reports whether the sbatch binary is available on this host
func (c *Client) Reachable(ctx context.Context) bool {
	path, err := c.lookPath(c.binary)
	if err != nil {
		c.logger.Debug().Err(err).Str("binary", c.binary).Msg("sbatch not found")
		return false
	}
	c.logger.Debug().Str("path", path).Msg("sbatch found")
	return true
}

// DispatchBatch submits one job running calls in order
func (c *Client) DispatchBatch(ctx context.Context, calls []function.Invocation, opts function.Options) (batcher.JobID, error) {
	payload, err := wire.NewBatch(calls)
	if err != nil {
		return "", fmt.Errorf("failed to build payload: %w", err)
	}
	return c.submit(ctx, payload, opts)
}

// DispatchSingle submits one job running a single call
func (c *Client) DispatchSingle(ctx context.Context, call function.Invocation, opts function.Options) (batcher.JobID, error) {
	return c.DispatchBatch(ctx, []function.Invocation{call}, opts)
}

// submit runs sbatch for one payload, retrying failed runs.
// A run that exited cleanly but printed something unparseable is not retried:
// the job may already exist.
func (c *Client) submit(ctx context.Context, payload *wire.Batch, opts function.Options) (batcher.JobID, error) {
	args, err := BuildArgs(opts)
	if err != nil {
		return "", err
	}

	data, err := payload.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	script := BuildScript(c.shell, c.workerCommand, data)

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryDelay); err != nil {
				return "", err
			}
		}

		stdout, stderr, err := c.run(ctx, c.binary, args, script)
		if err == nil {
			id, perr := ParseJobID(stdout)
			if perr != nil {
				return "", perr
			}

			c.logger.Debug().
				Str("jobId", id.String()).
				Str("payload", payload.ID).
				Int("calls", payload.Len()).
				Strs("args", args).
				Msg("job submitted")
			return id, nil
		}

		lastErr = &CommandError{
			Command: c.binary + " " + strings.Join(args, " "),
			Stderr:  string(stderr),
			Err:     err,
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt+1 < c.attempts {
			c.logger.Warn().
				Int("attempt", attempt+1).
				Int("maxAttempts", c.attempts).
				Err(lastErr).
				Str("payload", payload.ID).
				Msg("submission failed, retrying")
		}
	}

	return "", fmt.Errorf("sbatch failed after %d attempt(s): %w", c.attempts, lastErr)
}

// runCommand is the default Runner
func runCommand(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// compile-time interface checks
var (
	_ batcher.Dispatcher = (*Client)(nil)
	_ batcher.Prober     = (*Client)(nil)
)

