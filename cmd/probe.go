// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

var probeCount int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the link by reading the robot's OI mode",
	Long: `Query the OI mode packet (35) and wait for a reply.

Each attempt waits up to --timeout for the one-byte answer. Any reply, even
"OFF", means the robot is powered and the cable works.

Exit codes:
  0 - Every probe answered
  1 - One or more probes timed out or failed
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVarP(&probeCount, "count", "c", 1, "Number of probes to send")
}

func runProbe(cmd *cobra.Command, args []string) error {
	r, err := OpenRobot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return exitCode(2)
	}
	defer r.Disconnect()

	fmt.Printf("Tether - Link Probe\n")
	fmt.Printf("Connection: %s\n", connectionInfo())
	fmt.Printf("Timeout: %v per probe\n\n", cfg.Timeout)

	failures := 0
	for i := 1; i <= probeCount; i++ {
		start := time.Now()
		mode, err := r.SyncMode()
		elapsed := time.Since(start)

		var incomplete *oi.IncompleteReplyError
		switch {
		case err == nil:
			fmt.Printf("Probe %d: mode %s (%v)\n", i, mode, elapsed.Round(time.Millisecond))
		case errors.As(err, &incomplete):
			failures++
			fmt.Fprintf(os.Stderr, "Probe %d: TIMEOUT after %v\n", i, elapsed.Round(time.Millisecond))
		case errors.Is(err, transport.ErrNotConnected):
			fmt.Fprintf(os.Stderr, "Probe %d: connection lost\n", i)
			return exitCode(2)
		default:
			failures++
			fmt.Fprintf(os.Stderr, "Probe %d: FAILED: %v\n", i, err)
		}
	}

	fmt.Printf("\n%d/%d probes answered\n", probeCount-failures, probeCount)
	if failures > 0 {
		return exitCode(1)
	}
	return nil
}
