package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurminade/internal/batcher"
	"slurminade/internal/function"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"logLevel": "debug",
		"batching": {"maxBatchSize": 50},
		"slurm": {"binary": "/opt/slurm/bin/sbatch", "workerCommand": "/usr/local/bin/worker", "submitAttempts": 3},
		"defaults": {"partition": "short", "cpus-per-task": 2}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.Batching.MaxBatchSize)
	assert.Equal(t, DefaultConfigCacheSize, cfg.Batching.ConfigCacheSize)
	assert.Equal(t, "/opt/slurm/bin/sbatch", cfg.Slurm.Binary)
	assert.Equal(t, "/usr/local/bin/worker", cfg.Slurm.WorkerCommand)
	assert.Equal(t, DefaultShell, cfg.Slurm.Shell)
	assert.Equal(t, 3, cfg.Slurm.SubmitAttempts)
	assert.Equal(t, "short", cfg.Defaults["partition"])
	assert.Equal(t, json.Number("2"), cfg.Defaults["cpus-per-task"])
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
logLevel: warn
batching:
  maxBatchSize: 10
slurm:
  submitRetryDelay: 250
defaults:
  partition: long
  exclusive: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Batching.MaxBatchSize)
	assert.Equal(t, DefaultSlurmBinary, cfg.Slurm.Binary)
	assert.Equal(t, 250*time.Millisecond, cfg.Slurm.GetSubmitRetryDelayDuration())
	assert.Equal(t, map[string]any{"partition": "long", "exclusive": true}, cfg.Defaults)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad json", `{`},
		{"bad log level", `{"logLevel": "trace"}`},
		{"negative batch size", `{"batching": {"maxBatchSize": -1}}`},
		{"negative cache size", `{"batching": {"configCacheSize": -5}}`},
		{"negative attempts", `{"slurm": {"submitAttempts": -1}}`},
		{"negative delay", `{"slurm": {"submitRetryDelay": -1}}`},
		{"non-scalar default", `{"defaults": {"nodelist": ["a", "b"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatJSON)
			require.Error(t, err)
		})
	}

	_, err := Parse([]byte(`{}`), Format("toml"))
	require.Error(t, err)
}

func TestParse_NonScalarDefaultIsInvalidConfig(t *testing.T) {
	_, err := Parse([]byte(`{"defaults": {"nodelist": ["a"]}}`), FormatJSON)
	var cfgErr *batcher.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nodelist", cfgErr.Option)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultMaxBatchSize, cfg.Batching.MaxBatchSize)
	assert.Equal(t, DefaultSubmitAttempts, cfg.Slurm.SubmitAttempts)
	assert.NotEmpty(t, cfg.Slurm.WorkerCommand)
	assert.NotNil(t, cfg.Defaults)
	assert.Zero(t, cfg.Slurm.SubmitRetryDelay)
}

func TestParse_RetryDelayDefaultsWithRetries(t *testing.T) {
	cfg, err := Parse([]byte(`{"slurm": {"submitAttempts": 3}}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, DefaultSubmitRetryDelay, cfg.Slurm.SubmitRetryDelay)
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Defaults = map[string]any{"partition": "short", "time": "00:10:00"}

	got := cfg.Resolve(function.Options{"partition": "long", "cpus-per-task": 4})
	assert.Equal(t, function.Options{
		"partition":     "long",
		"time":          "00:10:00",
		"cpus-per-task": 4,
	}, got)

	got["time"] = "01:00:00"
	assert.Equal(t, "00:10:00", cfg.Defaults["time"], "resolve must not alias defaults")

	assert.Equal(t, function.Options{"partition": "short", "time": "00:10:00"}, cfg.Resolve(nil))
}

func TestResolve_GroupsEquivalentConfigs(t *testing.T) {
	cfg := Default()
	cfg.Defaults = map[string]any{"partition": "short"}

	a, err := batcher.NewConfigKey(cfg.Resolve(function.Options{"cpus-per-task": 2}))
	require.NoError(t, err)
	b, err := batcher.NewConfigKey(cfg.Resolve(function.Options{"cpus-per-task": 2, "partition": "short"}))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
