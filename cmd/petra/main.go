package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petradb/petra/internal/config"
	"github.com/petradb/petra/internal/engine"
	"github.com/petradb/petra/internal/log"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

type serveOptions struct {
	configFile  string
	dataDir     string
	logLevel    string
	maxSessions int
	salvage     bool
}

func main() {
	root := &cobra.Command{
		Use:           "petra",
		Short:         "Petra embedded storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Petra v%s (commit: %s)\n", version, commit)
		},
	}
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the engine and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "path to configuration file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.dataDir, "data", "", "data directory")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&opts.maxSessions, "max-sessions", 0, "maximum concurrent sessions")
	cmd.Flags().BoolVar(&opts.salvage, "salvage", false, "attempt best-effort repair of corrupted files")

	return cmd
}

func serve(opts *serveOptions) error {
	var cfg *config.Config
	if opts.configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(opts.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	cfg.LoadFromFlags(opts.dataDir, opts.logLevel, opts.maxSessions)
	if opts.salvage {
		cfg.Salvage = true
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := log.NewTextLogger(level)

	logger.Info("starting Petra",
		"version", version,
		"commit", commit,
		"data_dir", cfg.DataDir)

	eng, err := engine.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := eng.Close(); err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}
