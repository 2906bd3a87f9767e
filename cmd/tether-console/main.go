// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tether-console listens for tether-shell connections and binds each
// one, in turn, to this terminal: standard input goes to the remote
// shell and the shell's output is written to standard output. Ending
// standard input (Ctrl-D) sends the quit token and ends the session;
// the console then waits for the next connection.
//
// Exit status: 0 after an interrupt, 1 when the address cannot be
// bound, 2 for invalid flags or configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/lib/config"
	"github.com/bureau-foundation/tether/lib/logging"
	"github.com/bureau-foundation/tether/lib/metrics"
	"github.com/bureau-foundation/tether/lib/netutil"
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
		listen        string
		raw           bool
		logLevel      string
		logFormat     string
		metricsListen string
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("tether-console", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (.yaml, .toml, .json, .jsonc); defaults to $TETHER_CONFIG")
	flagSet.StringVarP(&listen, "listen", "l", "", "address to listen on (default 0.0.0.0:4546)")
	flagSet.BoolVar(&raw, "raw", false, "put the terminal in raw mode during sessions")
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
		version.Print("tether-console")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return process.Exit(2, fmt.Errorf("unexpected argument: %s", args[0]))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return process.Exit(2, err)
	}
	if flagSet.Changed("listen") {
		cfg.Listener.Address = listen
	}
	if flagSet.Changed("raw") {
		cfg.Listener.Raw = raw
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

	// Session bytes own stdout; logs go to stderr.
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, logging.Format(cfg.Logging.Format))
	if err != nil {
		return process.Exit(2, err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instruments, err := metrics.Start(ctx, cfg.Metrics.Listen, logger)
	if err != nil {
		return err
	}

	listener := &relay.Listener{
		Address: cfg.Listener.Address,
		KeepAlive: netutil.KeepAlive{
			Idle:     cfg.Listener.KeepAlive.Idle.Std(),
			Interval: cfg.Listener.KeepAlive.Interval.Std(),
			Count:    cfg.Listener.KeepAlive.Count,
		},
		Console:    relay.NewConsole(),
		RawConsole: cfg.Listener.Raw,
		Logger:     logger,
		Metrics:    instruments,
	}
	if err := listener.Listen(); err != nil {
		return err
	}
	defer listener.Close()

	logger.Info("tether-console ready", "version", version.Info(), "address", listener.Addr().String())
	if err := listener.Serve(ctx); err != nil {
		return err
	}
	logger.Info("interrupted, exiting")
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tether-console - accept tether-shell connections on this terminal.

One connection is served at a time; others wait in the accept queue
until the current session ends. Closing standard input (Ctrl-D) sends
the quit token, which makes the remote side terminate its shell.

With --raw and a terminal on standard input, keystrokes such as Ctrl-C
and arrow keys are passed to the remote shell instead of being handled
locally. Ctrl-D is then forwarded as a byte; interrupt tether-console
from another terminal or end the remote shell with "exit".

Usage:
  tether-console [flags]

Examples:
  tether-console --listen 0.0.0.0:4546
  tether-console --listen 127.0.0.1:9000 --raw

Configuration is read from --config or $TETHER_CONFIG, then overridden
by TETHER_* environment variables (TETHER_LISTENER_ADDRESS,
TETHER_LISTENER_RAW, ...), then by flags.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
