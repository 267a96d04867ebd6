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
	"go.uber.org/zap"

	"github.com/tetherlab/tether/internal/recorder"
	"github.com/tetherlab/tether/pkg/oi"
)

var (
	recordOut      string
	recordInterval time.Duration
	recordCount    int
	recordStart    bool
)

var recordCmd = &cobra.Command{
	Use:   "record [packet...]",
	Short: "Poll sensors and append the snapshots to a CBOR log",
	Long: `Poll sensor packets at a fixed interval and append every result to a
CBOR log file. Failed polls are recorded too, so gaps are visible when the
log is replayed with 'tether dump'.

Packets may be given by ID or name; the default is group 100. The robot's
mode is read before polling starts; use --start to send START instead.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Output file (appended)")
	recordCmd.Flags().DurationVarP(&recordInterval, "interval", "i", time.Second, "Polling interval")
	recordCmd.Flags().IntVarP(&recordCount, "count", "n", 0, "Stop after this many records (0 = until Ctrl+C)")
	recordCmd.Flags().BoolVar(&recordStart, "start", false, "Send START before polling")
	_ = recordCmd.MarkFlagRequired("out")
}

func runRecord(cmd *cobra.Command, args []string) error {
	ids, err := parsePacketIDs(args, oi.GroupAll)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(recordOut, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", recordOut, err)
	}
	defer f.Close()

	r, err := OpenRobot()
	if err != nil {
		return err
	}
	defer r.Disconnect()

	if err := prepareMode(r, recordStart); err != nil {
		return err
	}

	w, err := recorder.NewWriter(f, r.Transport().Session())
	if err != nil {
		return err
	}

	fmt.Printf("Tether - Sensor Recorder\n")
	fmt.Printf("Connection: %s\n", connectionInfo())
	fmt.Printf("Output: %s\n", recordOut)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The poll callback runs on one goroutine; w needs no lock.
	err = r.StartPolling(recordInterval, ids, func(snap *oi.Snapshot, pollErr error) {
		observeSnapshot(pollErr)
		if pollErr != nil {
			err := w.WriteError(time.Now(), pollErr)
			if err != nil {
				logger.Error("Failed to record poll error", zap.Error(err))
			}
		} else if err := w.Write(snap); err != nil {
			logger.Error("Failed to record snapshot", zap.Error(err))
		}

		fmt.Printf("\rRecords: %d", w.Count())
		if recordCount > 0 && w.Count() >= recordCount {
			r.StopPolling()
			stop()
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	r.Disconnect()
	fmt.Printf("\nWrote %d records to %s\n", w.Count(), recordOut)
	return nil
}
