package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"slurminade/internal/batcher"
	"slurminade/internal/function"
)

// Format is a configuration file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads and parses the configuration file.
// The format follows the extension: .yaml and .yml are YAML, anything else JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	return Parse(data, format)
}

// Parse decodes, defaults and validates configuration data
func Parse(data []byte, format Format) (*Config, error) {
	cfg := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	// MaxBatchSize default is 0, which is valid (unbounded)
	if cfg.Batching.ConfigCacheSize == 0 {
		cfg.Batching.ConfigCacheSize = DefaultConfigCacheSize
	}
	if cfg.Slurm.Binary == "" {
		cfg.Slurm.Binary = DefaultSlurmBinary
	}
	if cfg.Slurm.WorkerCommand == "" {
		cfg.Slurm.WorkerCommand = defaultWorkerCommand()
	}
	if cfg.Slurm.Shell == "" {
		cfg.Slurm.Shell = DefaultShell
	}
	if cfg.Slurm.SubmitAttempts == 0 {
		cfg.Slurm.SubmitAttempts = DefaultSubmitAttempts
	}
	if cfg.Slurm.SubmitAttempts > 1 && cfg.Slurm.SubmitRetryDelay == 0 {
		cfg.Slurm.SubmitRetryDelay = DefaultSubmitRetryDelay
	}
	if cfg.Defaults == nil {
		cfg.Defaults = map[string]any{}
	}
}

// defaultWorkerCommand is the running executable, so jobs call back into the same binary
func defaultWorkerCommand() string {
	exe, err := os.Executable()
	if err != nil {
		return "slurminade"
	}
	return exe
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Batching.MaxBatchSize < 0 {
		return fmt.Errorf("batching.maxBatchSize must be non-negative")
	}

	if cfg.Batching.ConfigCacheSize < 0 {
		return fmt.Errorf("batching.configCacheSize must be non-negative")
	}

	if cfg.Slurm.SubmitAttempts < 0 {
		return fmt.Errorf("slurm.submitAttempts must be positive")
	}

	if cfg.Slurm.SubmitRetryDelay < 0 {
		return fmt.Errorf("slurm.submitRetryDelay must be non-negative")
	}

	if _, err := batcher.NewConfigKey(cfg.Defaults); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	return nil
}

// Resolve merges a function's declared options over the process-wide defaults
func (c *Config) Resolve(overrides function.Options) function.Options {
	merged := make(function.Options, len(c.Defaults)+len(overrides))
	for k, v := range c.Defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
