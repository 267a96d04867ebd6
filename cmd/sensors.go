// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/pkg/oi"
)

var (
	sensorsWatch    bool
	sensorsInterval time.Duration
	sensorsValidate bool
	sensorsStart    bool
)

var sensorsCmd = &cobra.Command{
	Use:   "sensors [packet...]",
	Short: "Query sensor packets",
	Long: `Query one or more sensor packets and print the decoded values.

Packets may be given by ID or by name (e.g. 7, bumps_and_wheeldrops,
group_3). With no packets, group 100 (every sensor) is queried.

With --watch the query repeats every --interval until Ctrl+C. Queries
that include the OI mode packet (35) also correct the host's view of the
robot's mode.

The robot's mode is read before the first query, since sensor queries need
at least the Passive mode. Use --start to send START instead.`,
	RunE: runSensors,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
	sensorsCmd.Flags().BoolVarP(&sensorsWatch, "watch", "w", false, "Poll until interrupted")
	sensorsCmd.Flags().DurationVarP(&sensorsInterval, "interval", "i", time.Second, "Polling interval (with --watch)")
	sensorsCmd.Flags().BoolVar(&sensorsValidate, "validate", false, "Flag implausible values")
	sensorsCmd.Flags().BoolVar(&sensorsStart, "start", false, "Send START before querying")
}

func runSensors(cmd *cobra.Command, args []string) error {
	ids, err := parsePacketIDs(args, oi.GroupAll)
	if err != nil {
		return err
	}

	r, err := OpenRobot()
	if err != nil {
		return err
	}
	defer r.Disconnect()

	if err := prepareMode(r, sensorsStart); err != nil {
		return err
	}

	if !sensorsWatch {
		snap, err := r.QuerySensors(ids...)
		observeSnapshot(err)
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	}

	fmt.Printf("Tether - Sensor Watch\n")
	fmt.Printf("Connection: %s\n", connectionInfo())
	fmt.Printf("Interval: %v\n", sensorsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = r.StartPolling(sensorsInterval, ids, func(snap *oi.Snapshot, err error) {
		observeSnapshot(err)
		if err != nil {
			fmt.Printf("[%s] \033[1;31mERROR:\033[0m %v\n\n", time.Now().Format("15:04:05.000"), err)
			return
		}
		printSnapshot(snap)
		fmt.Println()
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	r.StopPolling()
	return nil
}

func printSnapshot(snap *oi.Snapshot) {
	fmt.Print(oi.FormatSnapshot(snap))
	if _, ok := snap.Get(oi.PacketBatteryCapacity); ok {
		fmt.Printf("  %-30s %s\n", "BATTERY:", oi.FormatBattery(snap))
	}
	if !sensorsValidate {
		return
	}
	for _, v := range oi.ValidateSnapshot(snap) {
		fmt.Printf("  \033[1;33mANOMALY:\033[0m %s\n", v.Message)
	}
}

func observeSnapshot(err error) {
	if linkMetrics != nil {
		linkMetrics.ObserveSnapshot(err)
	}
}
