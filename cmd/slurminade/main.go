package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"slurminade/internal/config"
	"slurminade/internal/function"
)

// app is the state shared by all subcommands, filled in before any of them runs
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *function.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "slurminade",
		Short:         "Batch function calls into Slurm jobs",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			a.cfg = cfg
			a.logger = setupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			a.registry = newRegistry(cmd.OutOrStdout(), a.logger)

			a.logger.Debug().
				Str("config", configPath).
				Str("sbatch", cfg.Slurm.Binary).
				Int("maxBatchSize", cfg.Batching.MaxBatchSize).
				Msg("configuration loaded")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")

	cmd.AddCommand(
		newRunCmd(a),
		newExecCmd(a),
		newProbeCmd(a),
		newFunctionsCmd(a),
	)

	return cmd
}

// loadConfig reads path, or returns the defaults when no path is given
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string, out io.Writer) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// stdout carries function output inside jobs, logs go to stderr
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
