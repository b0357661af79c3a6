package config

import "time"

// Config represents the main configuration structure
type Config struct {
	LogLevel string         `json:"logLevel" yaml:"logLevel"`
	Batching BatchingConfig `json:"batching" yaml:"batching"`
	Slurm    SlurmConfig    `json:"slurm" yaml:"slurm"`
	// Defaults are process-wide scheduler options; a function's declared options override them
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// BatchingConfig controls how invocations are grouped into jobs
type BatchingConfig struct {
	MaxBatchSize    int `json:"maxBatchSize" yaml:"maxBatchSize"`       // 0 means unbounded
	ConfigCacheSize int `json:"configCacheSize" yaml:"configCacheSize"` // functions whose resolved options are cached
}

// SlurmConfig controls job submission
type SlurmConfig struct {
	Binary           string `json:"binary" yaml:"binary"`                     // sbatch executable
	WorkerCommand    string `json:"workerCommand" yaml:"workerCommand"`       // command a job runs; "exec" is appended
	Shell            string `json:"shell" yaml:"shell"`                       // interpreter line of the job script
	SubmitAttempts   int    `json:"submitAttempts" yaml:"submitAttempts"`     // tries per job before giving up
	SubmitRetryDelay int    `json:"submitRetryDelay" yaml:"submitRetryDelay"` // ms between tries
}

// Default values
const (
	DefaultLogLevel         = "info"
	DefaultMaxBatchSize     = 0
	DefaultConfigCacheSize  = 1024
	DefaultSlurmBinary      = "sbatch"
	DefaultShell            = "/bin/sh"
	DefaultSubmitAttempts   = 1
	DefaultSubmitRetryDelay = 1000 // ms
)

// GetSubmitRetryDelayDuration returns the submit retry delay as time.Duration
func (c *SlurmConfig) GetSubmitRetryDelayDuration() time.Duration {
	return time.Duration(c.SubmitRetryDelay) * time.Millisecond
}
