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
)

var linkTestDuration time.Duration

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test raw link stability",
	Long: `Open the link without sending any OI command and log every byte that
arrives until --duration elapses. A Create 2 prints a banner on power-up and
after a reset, so pressing the power button during the test shows whether
data flows.

Exit codes:
  0 - Test completed normally
  1 - Link failed during the test
  2 - Connection error`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().DurationVar(&linkTestDuration, "duration", 30*time.Second, "Test duration")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	r, err := OpenRobot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return exitCode(2)
	}
	defer r.Disconnect()
	link := r.Transport()

	fmt.Printf("Tether - Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connectionInfo())
	fmt.Printf("Duration: %v\n\n", linkTestDuration)
	fmt.Printf("Listening for data...\n\n")

	start := time.Now()
	endTime := start.Add(linkTestDuration)
	lastHeartbeat := start
	bytesReceived := 0
	chunksReceived := 0

	for time.Now().Before(endTime) {
		data, err := link.ReadChunk(256, 100*time.Millisecond)
		if err != nil && !errors.Is(err, transport.ErrReadTimeout) {
			fmt.Printf("\n[%s] Link error: %v\n", time.Now().Format("15:04:05.000"), err)
			fmt.Printf("\n--- Test Results ---\n")
			fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("Chunks received: %d\n", chunksReceived)
			fmt.Printf("Bytes received: %d\n", bytesReceived)
			fmt.Printf("Result: FAILED (link error)\n")
			return exitCode(1)
		}

		if len(data) > 0 {
			bytesReceived += len(data)
			chunksReceived++
			fmt.Printf("[%s] Received %d bytes: % x\n",
				time.Now().Format("15:04:05.000"), len(data), data)
			continue
		}

		if time.Since(lastHeartbeat) >= time.Second {
			lastHeartbeat = time.Now()
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				lastHeartbeat.Format("15:04:05.000"), time.Until(endTime).Seconds())
		}
	}

	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", linkTestDuration)
	fmt.Printf("Chunks received: %d\n", chunksReceived)
	fmt.Printf("Bytes received: %d\n", bytesReceived)
	fmt.Printf("Result: PASSED (link stable)\n")
	return nil
}
