// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetherlab/tether/internal/config"
	"github.com/tetherlab/tether/internal/logging"
	"github.com/tetherlab/tether/internal/metrics"
	"github.com/tetherlab/tether/internal/transport"
)

var (
	configFile string

	// Resolved in PersistentPreRunE
	cfg           *config.Config
	logger        = zap.NewNop()
	logCloser     io.Closer
	linkMetrics   *metrics.LinkMetrics
	metricsServer *metrics.Server
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Open Interface driver for Create 2 robots",
	Long: `Tether - A CLI tool for driving and monitoring iRobot Create 2 robots over the
Open Interface (OI) serial protocol.

Provides validated raw commands, sensor queries and polling, OI streaming with
error statistics, a tethered-drive TUI and a CBOR sensor recorder.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from tether.yaml (./ or ~/.config/tether/) or from
TETHER_* environment variables; flags take precedence.

For WebSocket authentication, the password is read from the TETHER_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./tether.yaml)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringP("port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().Duration("timeout", transport.DefaultTimeout, "Reply read timeout")
	rootCmd.PersistentFlags().Duration("command-gap", transport.DefaultCommandGap, "Minimum gap between commands")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().String("username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Ambient
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
}

func setup(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}

	logger, logCloser, err = logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		linkMetrics = metrics.NewLinkMetrics(reg)
		metricsServer = metrics.Serve(cfg.Metrics.Addr, cfg.Metrics.Path, reg, logger.Named("metrics"))
	}
	return nil
}

func teardown() {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}
	_ = logger.Sync()
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	defer teardown()
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// exitCode lets a command request a specific process exit status after
// printing its own diagnostics.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}
