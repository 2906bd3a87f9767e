// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tether-shell dials a tether-console listener, runs a local shell, and
// relays its standard streams over the connection. When a session ends
// it pauses and dials again; it keeps retrying until interrupted.
//
// Exit status: 0 after an interrupt once connected, 1 after an
// interrupt while still connecting or when the shell cannot be
// started, 2 for invalid flags or configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/lib/config"
	"github.com/bureau-foundation/tether/lib/logging"
	"github.com/bureau-foundation/tether/lib/metrics"
	"github.com/bureau-foundation/tether/lib/process"
	"github.com/bureau-foundation/tether/lib/version"
	"github.com/bureau-foundation/tether/relay"
)

func main() {
	process.Main(run)
}

func run() error {
	var (
		configPath    string
		address       string
		shell         string
		noPTY         bool
		logLevel      string
		logFormat     string
		metricsListen string
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("tether-shell", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (.yaml, .toml, .json, .jsonc); defaults to $TETHER_CONFIG")
	flagSet.StringVarP(&address, "address", "a", "", "listener host:port to dial (default 127.0.0.1:4546)")
	flagSet.StringVar(&shell, "shell", "", "shell to spawn (default "+relay.DefaultShell()+")")
	flagSet.BoolVar(&noPTY, "no-pty", false, "use pipes instead of a pseudo-terminal (implied on windows)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.StringVar(&logFormat, "log-format", "", "log format: auto, text, json")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return process.Exit(2, err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		version.Print("tether-shell")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return process.Exit(2, fmt.Errorf("unexpected argument: %s", args[0]))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return process.Exit(2, err)
	}
	if flagSet.Changed("address") {
		cfg.Initiator.Address = address
	}
	if flagSet.Changed("shell") {
		cfg.Initiator.Shell = shell
	}
	if flagSet.Changed("no-pty") {
		cfg.Initiator.NoPTY = noPTY
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flagSet.Changed("metrics-listen") {
		cfg.Metrics.Listen = metricsListen
	}
	if err := cfg.Validate(); err != nil {
		return process.Exit(2, err)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, logging.Format(cfg.Logging.Format))
	if err != nil {
		return process.Exit(2, err)
	}
	slog.SetDefault(logger)

	shellPath := cfg.Initiator.Shell
	if shellPath == "" {
		shellPath = relay.DefaultShell()
	}
	if _, err := exec.LookPath(shellPath); err != nil {
		return fmt.Errorf("shell %s not found: %w", shellPath, err)
	}
	mode := relay.DefaultMode(cfg.Initiator.NoPTY)
	if hint := relay.PipeModeHint(shellPath, mode); hint != "" {
		logger.Info(hint)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instruments, err := metrics.Start(ctx, cfg.Metrics.Listen, logger)
	if err != nil {
		return err
	}

	logger.Info("tether-shell starting",
		"version", version.Info(),
		"address", cfg.Initiator.Address,
		"shell", shellPath,
		"mode", string(mode),
	)

	initiator := &relay.Initiator{
		Connector: &relay.Connector{
			Address: cfg.Initiator.Address,
			Backoff: relay.NewBackoff(cfg.Initiator.Backoff.Initial.Std(), cfg.Initiator.Backoff.Max.Std()),
			Logger:  logger,
			Metrics: instruments,
		},
		Shell:          shellPath,
		Mode:           mode,
		GracePeriod:    cfg.Initiator.GracePeriod.Std(),
		ReconnectPause: cfg.Initiator.ReconnectPause.Std(),
		Logger:         logger,
		Metrics:        instruments,
	}
	return exitStatus(initiator.Run(ctx), logger)
}

// exitStatus maps the error that ended Initiator.Run to the process
// exit status.
func exitStatus(err error, logger *slog.Logger) error {
	var abort *relay.AbortError
	if errors.As(err, &abort) {
		if abort.Connecting {
			logger.Info("interrupted while connecting")
			return process.Exit(1, nil)
		}
		logger.Info("interrupted, exiting")
		return nil
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tether-shell - dial a tether-console and relay a local shell.

The shell runs under a pseudo-terminal where the platform has one, or
with plain pipes under --no-pty and on windows. Sessions end when the
console sends its quit token, the shell exits, or either side closes;
tether-shell then pauses and dials again.

Usage:
  tether-shell [flags]

Examples:
  tether-shell --address 10.0.0.5:4546
  tether-shell --address 10.0.0.5:4546 --no-pty --shell /bin/sh

Configuration is read from --config or $TETHER_CONFIG, then overridden
by TETHER_* environment variables (TETHER_INITIATOR_ADDRESS,
TETHER_INITIATOR_SHELL, TETHER_INITIATOR_NO_PTY, ...), then by flags.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
