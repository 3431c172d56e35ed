package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/config"
	"github.com/rulesweep/rulesweep/pkg/console"
	"github.com/rulesweep/rulesweep/pkg/store"
)

var (
	// Flags
	configFile string
	debug      bool
)

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: rulesweep.yaml, then XDG config dir)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setup wires logging, config, the store, and the console into the shared
// opts before any subcommand runs.
func setup(cmd *cobra.Command, o *opts.RootOpts) error {
	logger := setupLogging()
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return err
	}
	o.Config = cfg

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	o.Store = s

	o.Console = console.New(ctx)
	return nil
}

func teardown(o *opts.RootOpts) {
	if o.Store != nil {
		_ = o.Store.Close()
	}
}

// setupLogging configures zerolog based on flags
func setupLogging() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func errLogger() *zerolog.Event {
	logger := setupLogging()
	return logger.Error()
}
